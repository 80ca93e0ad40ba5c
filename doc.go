/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package genericrepo provides a schemaless repository layer over a single
// DynamoDB table. A Repository binds a table name and partition key
// attribute at construction and then offers item CRUD, partition and index
// queries with a declarative filter vocabulary, conditional partial
// updates, batched writes and deletes, and a streaming full-table read.
//
// Items are plain map[string]any values; the dynavalue package handles the
// coercion to and from DynamoDB attribute values, preserving exact decimal
// representations of numbers. Filters are described with filter.Spec maps
// and compiled server-side, never evaluated in process.
//
// Every operation has a blocking form on Repository and a non-blocking
// channel form on the AsyncRepository view returned by Async.
//
// In debug mode a repository logs every intended write and performs none of
// them, while reads behave normally. This supports trial runs against
// production tables.
package genericrepo
