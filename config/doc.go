/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads repository settings from YAML files and the
// environment. Environment variables always win over file values, so a
// single config file can serve multiple deployments.
package config
