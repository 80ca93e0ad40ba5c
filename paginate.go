/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/genericrepo/dynavalue"
)

// StreamResult carries one item or a terminal error on a streaming read
// channel. After a result with a non-nil Err the channel is closed.
type StreamResult struct {
	Item Item
	Err  error
}

// collectQueryRaw drains every page of a query, following the continuation
// token until exhaustion, and returns the raw attribute-value items.
func (r *Repository) collectQueryRaw(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			r.logger.Error("error querying items",
				zap.String("table", r.tableName), zap.Error(err))
			return nil, fmt.Errorf("query: %w", err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// collectQuery drains every page of a query and decodes the items to native
// values. An empty match is an empty slice, never nil.
func (r *Repository) collectQuery(ctx context.Context, input *dynamodb.QueryInput) ([]Item, error) {
	raw, err := r.collectQueryRaw(ctx, input)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(raw))
	for _, av := range raw {
		items = append(items, Item(dynavalue.DecodeMap(av)))
	}
	return items, nil
}

// streamScan pages through a scan in a worker goroutine, emitting decoded
// items on the returned channel. The channel closes when the table is
// exhausted, a page fails, or the context is cancelled.
func (r *Repository) streamScan(ctx context.Context, input *dynamodb.ScanInput, o streamOptions) <-chan StreamResult {
	ch := make(chan StreamResult, o.bufferSize)
	go func() {
		defer close(ch)
		for {
			out, err := r.client.Scan(ctx, input)
			if err != nil {
				r.logger.Error("error scanning items",
					zap.String("table", r.tableName), zap.Error(err))
				select {
				case ch <- StreamResult{Err: fmt.Errorf("scan: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			for _, av := range out.Items {
				select {
				case ch <- StreamResult{Item: Item(dynavalue.DecodeMap(av))}:
				case <-ctx.Done():
					return
				}
			}
			if out.LastEvaluatedKey == nil {
				return
			}
			input.ExclusiveStartKey = out.LastEvaluatedKey
		}
	}()
	return ch
}
