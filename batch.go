/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/genericrepo/dynavalue"
)

// maxBatchSize is the store's per-request ceiling for batch writes and
// batch PartiQL statements.
const maxBatchSize = 25

// maxUnprocessedPasses bounds resubmission of unprocessed batch entries
// before giving up with an error.
const maxUnprocessedPasses = 3

// chunk splits items into slices of at most size elements, preserving order.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		out = append(out, items[:size])
		items = items[size:]
	}
	return append(out, items)
}

// SaveBatch persists a collection of items in store-sized batches, in order.
// Expiration stamping applies to every item exactly as in Save. Chunks are
// submitted sequentially and the first failing chunk aborts the rest, so a
// failure can leave earlier chunks persisted.
func (r *Repository) SaveBatch(ctx context.Context, items []Item, opts ...WriteOption) error {
	if len(items) == 0 {
		return nil
	}
	o := newWriteOptions(opts)

	requests := make([]types.WriteRequest, 0, len(items))
	for i, item := range items {
		stamped := r.stampExpiration(item, o.setExpiration)
		av, err := dynavalue.CoerceMap(stamped)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}
	return r.runBatchWrite(ctx, requests)
}

// DeleteBatchByKeys removes a collection of items by key in store-sized
// batches. Each key may be a scalar primary key value or a composite key map.
func (r *Repository) DeleteBatchByKeys(ctx context.Context, keys []any) error {
	if len(keys) == 0 {
		return nil
	}
	requests := make([]types.WriteRequest, 0, len(keys))
	for i, key := range keys {
		keyAV, _, err := r.resolveKey(key)
		if err != nil {
			return fmt.Errorf("key %d: %w", i, err)
		}
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: keyAV},
		})
	}
	return r.runBatchWrite(ctx, requests)
}

func (r *Repository) runBatchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for _, batch := range chunk(requests, maxBatchSize) {
		pending := batch
		for pass := 0; len(pending) > 0; pass++ {
			if pass >= maxUnprocessedPasses {
				return fmt.Errorf("batch write: %d requests unprocessed after %d passes",
					len(pending), maxUnprocessedPasses)
			}
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					r.tableName: pending,
				},
			})
			if err != nil {
				r.logger.Error("error in batch write",
					zap.String("table", r.tableName), zap.Error(err))
				return fmt.Errorf("batch write: %w", err)
			}
			pending = out.UnprocessedItems[r.tableName]
			if len(pending) > 0 {
				r.logger.Warn("resubmitting unprocessed batch entries",
					zap.String("table", r.tableName), zap.Int("count", len(pending)))
			}
		}
	}
	return nil
}

func (r *Repository) runBatchStatements(ctx context.Context, requests []types.BatchStatementRequest) error {
	for _, batch := range chunk(requests, maxBatchSize) {
		out, err := r.client.BatchExecuteStatement(ctx, &dynamodb.BatchExecuteStatementInput{
			Statements: batch,
		})
		if err != nil {
			r.logger.Error("error in batch statement",
				zap.String("table", r.tableName), zap.Error(err))
			return fmt.Errorf("batch statement: %w", err)
		}
		for _, resp := range out.Responses {
			if resp.Error != nil {
				return fmt.Errorf("batch statement: %s: %s",
					resp.Error.Code, aws.ToString(resp.Error.Message))
			}
		}
	}
	return nil
}
