/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/suparena/genericrepo/dynavalue"
)

// Typed-model convenience layer. Callers with a fixed struct shape can skip
// the schemaless Item maps and marshal through the SDK codec directly, using
// `dynamodbav` struct tags.

// LoadInto retrieves an item by primary key and unmarshals it into out,
// which must be a non-nil pointer. It reports whether the item existed;
// absence leaves out untouched.
func (r *Repository) LoadInto(ctx context.Context, primaryKeyValue any, out any) (bool, error) {
	key, err := r.keyFor(primaryKeyValue)
	if err != nil {
		return false, err
	}
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		r.logger.Error("error loading item", zap.String("table", r.tableName), zap.Error(err))
		return false, fmt.Errorf("get item: %w", err)
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal item: %w", err)
	}
	return true, nil
}

// SaveModel fully replaces the item under the given primary key with the
// marshaled struct model. Expiration stamping and write options behave as
// in Save; the model itself is not echoed back.
func (r *Repository) SaveModel(ctx context.Context, primaryKeyValue any, model any, opts ...WriteOption) error {
	o := newWriteOptions(opts)

	av, err := attributevalue.MarshalMap(model)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	keyAV, err := dynavalue.Coerce(primaryKeyValue)
	if err != nil {
		return fmt.Errorf("primary key value: %w", err)
	}
	av[r.primaryKeyName] = keyAV
	if o.setExpiration && r.expirationDays > 0 {
		expireAV, err := dynavalue.Coerce(r.expireAt())
		if err != nil {
			return err
		}
		av[ExpirationAttribute] = expireAV
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		r.logger.Error("error saving item", zap.String("table", r.tableName), zap.Error(err))
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}
