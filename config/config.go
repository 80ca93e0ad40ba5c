/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/genericrepo"
)

// Settings describes one repository binding, typically loaded from a YAML
// file with environment overrides layered on top.
type Settings struct {
	TableName          string `yaml:"tableName"`
	PrimaryKeyName     string `yaml:"primaryKeyName"`
	Region             string `yaml:"region"`
	IndexName          string `yaml:"indexName"`
	DataExpirationDays int    `yaml:"dataExpirationDays"`
	DebugMode          bool   `yaml:"debugMode"`
}

// Load reads settings from a YAML file and applies environment overrides.
// A .env file in the working directory is honored when present.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromEnv builds settings from environment variables alone, loading a .env
// file first when one exists.
func FromEnv() (*Settings, error) {
	var s Settings
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("REPO_TABLE_NAME"); v != "" {
		s.TableName = v
	}
	if v := os.Getenv("REPO_PRIMARY_KEY"); v != "" {
		s.PrimaryKeyName = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		s.Region = v
	}
	if v := os.Getenv("REPO_INDEX_NAME"); v != "" {
		s.IndexName = v
	}
	if v := os.Getenv("REPO_EXPIRATION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			s.DataExpirationDays = days
		}
	}
	if v := os.Getenv("REPO_DEBUG_MODE"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			s.DebugMode = debug
		}
	}
}

// Validate checks that the settings can construct a working repository.
func (s *Settings) Validate() error {
	if s.TableName == "" {
		return fmt.Errorf("tableName is required")
	}
	if s.PrimaryKeyName == "" {
		return fmt.Errorf("primaryKeyName is required")
	}
	if s.DataExpirationDays < 0 {
		return fmt.Errorf("dataExpirationDays must not be negative")
	}
	return nil
}

// RepositoryConfig converts the settings to the repository's own config.
func (s *Settings) RepositoryConfig() genericrepo.Config {
	return genericrepo.Config{
		TableName:          s.TableName,
		PrimaryKeyName:     s.PrimaryKeyName,
		DataExpirationDays: s.DataExpirationDays,
		DebugMode:          s.DebugMode,
	}
}
