/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/genericrepo/dynavalue"
	"github.com/suparena/genericrepo/errors"
	"github.com/suparena/genericrepo/filter"
)

// ConditionalCheckFailedCode is the store error code surfaced in an
// UpdateResult when a conditional update is rejected.
const ConditionalCheckFailedCode = "ConditionalCheckFailedException"

const defaultRejectionMessage = "condition not satisfied"

// UpdateResult is the structured outcome of an update. A rejected condition
// is a value, not an error: Success is false and the diagnostic fields are
// populated. Infrastructure failures are returned as errors instead.
type UpdateResult struct {
	// Success reports whether the write was applied.
	Success bool

	// Item is the item state after a successful update, when available.
	Item Item

	// ErrorCode is ConditionalCheckFailedCode on rejection, empty otherwise.
	ErrorCode string

	// Message is the caller-supplied or default rejection message.
	Message string

	// Condition echoes the condition spec that rejected the write.
	Condition filter.Spec
}

// Update applies a partial attribute patch to the item under the given key,
// which may be a scalar primary key value or a composite key map. Patched
// attributes are overwritten; all others are untouched. With WithCondition
// the write is applied only if the stored item satisfies the spec, and a
// rejection comes back as a non-error UpdateResult.
func (r *Repository) Update(ctx context.Context, key any, patch Item, opts ...UpdateOption) (*UpdateResult, error) {
	if len(patch) == 0 {
		return nil, errors.NewValidationError("patch", "must contain at least one attribute")
	}
	o := newUpdateOptions(opts)

	keyAV, composite, err := r.resolveKey(key)
	if err != nil {
		return nil, err
	}

	expr, names, values, err := buildUpdateExpression(patch)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       keyAV,
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if len(o.condition) > 0 {
		cond, err := filter.Compile(o.condition)
		if err != nil {
			return nil, err
		}
		input.ConditionExpression = aws.String(cond.Expression)
		for k, v := range cond.Names {
			input.ExpressionAttributeNames[k] = v
		}
		for k, v := range cond.Values {
			input.ExpressionAttributeValues[k] = v
		}
	}

	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			msg := o.rejectionMessage
			if msg == "" {
				msg = defaultRejectionMessage
			}
			r.logger.Info("conditional update rejected",
				zap.String("table", r.tableName), zap.String("message", msg))
			return &UpdateResult{
				ErrorCode: ConditionalCheckFailedCode,
				Message:   msg,
				Condition: o.condition,
			}, nil
		}
		r.logger.Error("error updating item", zap.String("table", r.tableName), zap.Error(err))
		return nil, fmt.Errorf("update item: %w", err)
	}

	result := &UpdateResult{Success: true}
	if r.dryRun {
		return result, nil
	}

	if composite {
		// Reading back would require re-deriving the key shape; echo a merged
		// view of the patch over the key instead.
		view := make(Item, len(patch)+2)
		if keyMap, ok := key.(Item); ok {
			for k, v := range keyMap {
				view[k] = v
			}
		} else if keyMap, ok := key.(map[string]any); ok {
			for k, v := range keyMap {
				view[k] = v
			}
		}
		for k, v := range patch {
			view[k] = v
		}
		result.Item = view
		return result, nil
	}

	item, err := r.getItem(ctx, keyAV)
	if err != nil {
		return nil, err
	}
	result.Item = item
	return result, nil
}

// buildUpdateExpression folds a patch into a SET expression with placeholder
// indirection, so attribute names never collide with reserved words. Patch
// attributes fold in sorted order for a deterministic expression.
func buildUpdateExpression(patch Item) (string, map[string]string, map[string]types.AttributeValue, error) {
	attrs := make([]string, 0, len(patch))
	for k := range patch {
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)

	names := make(map[string]string, len(attrs))
	values := make(map[string]types.AttributeValue, len(attrs))
	clauses := make([]string, 0, len(attrs))

	for i, attr := range attrs {
		av, err := dynavalue.Coerce(patch[attr])
		if err != nil {
			return "", nil, nil, fmt.Errorf("attribute %s: %w", attr, err)
		}
		namePH := fmt.Sprintf("#u%d", i)
		valuePH := fmt.Sprintf(":u%d", i)
		names[namePH] = attr
		values[valuePH] = av
		clauses = append(clauses, fmt.Sprintf("%s = %s", namePH, valuePH))
	}
	return "SET " + strings.Join(clauses, ", "), names, values, nil
}
