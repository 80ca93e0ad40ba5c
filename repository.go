/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/genericrepo/dynavalue"
	"github.com/suparena/genericrepo/errors"
	"github.com/suparena/genericrepo/filter"
)

// Item is a schemaless table item: attribute name to value. Values follow
// the dynavalue conventions (numbers surface as json.Number).
type Item map[string]any

// ExpirationAttribute is the reserved attribute carrying the absolute
// epoch-seconds expiry instant. Absence means the item does not expire.
// Expired items are reaped by the table's own TTL process, never by this
// library.
const ExpirationAttribute = "_expireAt"

// Config holds the per-table settings of a Repository.
type Config struct {
	// TableName is the DynamoDB table to operate on.
	TableName string

	// PrimaryKeyName is the partition key attribute name. For composite-key
	// tables the sort key attribute is not tracked here; callers supply it
	// inside composite-key payloads and key maps.
	PrimaryKeyName string

	// DataExpirationDays, when positive, stamps every write with an
	// expiration instant this many days in the future.
	DataExpirationDays int

	// DebugMode makes every mutating operation log its intent and skip the
	// store call. Reads are unaffected.
	DebugMode bool
}

func (c *Config) validate() error {
	if c.TableName == "" {
		return errors.NewValidationError("tableName", "must not be empty")
	}
	if c.PrimaryKeyName == "" {
		return errors.NewValidationError("primaryKeyName", "must not be empty")
	}
	if c.DataExpirationDays < 0 {
		return errors.NewValidationError("dataExpirationDays", "must not be negative")
	}
	return nil
}

// Repository provides a uniform CRUD/query surface over one DynamoDB table,
// for both simple primary key and composite (partition + sort) key layouts.
// It holds no per-call state and is safe for concurrent use as long as the
// underlying client is.
type Repository struct {
	client         DynamoDBAPI
	tableName      string
	primaryKeyName string
	expirationDays int
	dryRun         bool
	logger         *zap.Logger
	now            func() time.Time
}

// New constructs a Repository over the given client. In debug mode the
// client is wrapped in a dry-run gateway that logs and swallows every write.
func New(client DynamoDBAPI, cfg Config, opts ...Option) (*Repository, error) {
	if client == nil {
		return nil, errors.NewValidationError("client", "must not be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &Repository{
		client:         client,
		tableName:      cfg.TableName,
		primaryKeyName: cfg.PrimaryKeyName,
		expirationDays: cfg.DataExpirationDays,
		dryRun:         cfg.DebugMode,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dryRun {
		r.client = &dryRunGateway{inner: client, logger: r.logger}
	}
	return r, nil
}

// TableName returns the table this repository operates on.
func (r *Repository) TableName() string { return r.tableName }

// PrimaryKeyName returns the partition key attribute name.
func (r *Repository) PrimaryKeyName() string { return r.primaryKeyName }

// ===========================
// KEY AND EXPIRATION HELPERS
// ===========================

func (r *Repository) keyFor(primaryKeyValue any) (map[string]types.AttributeValue, error) {
	av, err := dynavalue.Coerce(primaryKeyValue)
	if err != nil {
		return nil, fmt.Errorf("primary key value: %w", err)
	}
	return map[string]types.AttributeValue{r.primaryKeyName: av}, nil
}

// resolveKey accepts either a scalar primary key value or a composite key
// map and returns the native key along with whether it was composite.
func (r *Repository) resolveKey(key any) (map[string]types.AttributeValue, bool, error) {
	switch k := key.(type) {
	case Item:
		av, err := dynavalue.CoerceMap(k)
		return av, true, err
	case map[string]any:
		av, err := dynavalue.CoerceMap(k)
		return av, true, err
	default:
		av, err := r.keyFor(key)
		return av, false, err
	}
}

func (r *Repository) expireAt() int64 {
	return r.now().Add(time.Duration(r.expirationDays) * 24 * time.Hour).Unix()
}

// stampExpiration copies the model and applies the expiration attribute when
// configured and not suppressed.
func (r *Repository) stampExpiration(model Item, setExpiration bool) Item {
	item := make(Item, len(model)+2)
	for k, v := range model {
		item[k] = v
	}
	if setExpiration && r.expirationDays > 0 {
		item[ExpirationAttribute] = r.expireAt()
	}
	return item
}

// emptyKeyValue reports whether a partition key value is absent in the sense
// that short-circuits FindAll: nil, empty string, numeric zero, false.
func emptyKeyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t) == "0"
	case float32, float64:
		return fmt.Sprint(t) == "0"
	}
	return false
}

// ===========================
// BASIC READ OPERATIONS
// ===========================

// Load retrieves an item by primary key. Absence is a normal result: the
// returned item is nil and the error is nil.
func (r *Repository) Load(ctx context.Context, primaryKeyValue any) (Item, error) {
	key, err := r.keyFor(primaryKeyValue)
	if err != nil {
		return nil, err
	}
	return r.getItem(ctx, key)
}

// LoadByCompositeKey retrieves an item by a composite key map containing
// both partition and sort key values.
func (r *Repository) LoadByCompositeKey(ctx context.Context, keyMap Item) (Item, error) {
	key, err := dynavalue.CoerceMap(keyMap)
	if err != nil {
		return nil, fmt.Errorf("composite key: %w", err)
	}
	return r.getItem(ctx, key)
}

func (r *Repository) getItem(ctx context.Context, key map[string]types.AttributeValue) (Item, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		r.logger.Error("error loading item", zap.String("table", r.tableName), zap.Error(err))
		return nil, fmt.Errorf("get item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return Item(dynavalue.DecodeMap(out.Item)), nil
}

// LoadOrFail retrieves an item by primary key and returns a NotFoundError
// when it does not exist.
func (r *Repository) LoadOrFail(ctx context.Context, primaryKeyValue any) (Item, error) {
	item, err := r.Load(ctx, primaryKeyValue)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.NewNotFoundError(r.tableName,
			fmt.Sprintf("%s=%v", r.primaryKeyName, primaryKeyValue))
	}
	return item, nil
}

// ===========================
// BASIC WRITE/DELETE OPERATIONS
// ===========================

// Save fully replaces the item under the given primary key with the model
// merged with the key field. When the repository has a retention period and
// the write does not suppress it, the expiration attribute is stamped. The
// post-write item is read back and returned unless WithoutReturnModel is
// given; in debug mode Save returns nil.
func (r *Repository) Save(ctx context.Context, primaryKeyValue any, model Item, opts ...WriteOption) (Item, error) {
	o := newWriteOptions(opts)

	item := r.stampExpiration(model, o.setExpiration)
	item[r.primaryKeyName] = primaryKeyValue

	if err := r.putItem(ctx, item); err != nil {
		return nil, err
	}
	if !o.returnModel || r.dryRun {
		return nil, nil
	}
	return r.Load(ctx, primaryKeyValue)
}

// SaveWithCompositeKey fully replaces an item in a composite-key table. The
// payload must already contain both partition and sort key attributes.
//
// When the saved item is returned, it is the caller's input echoed back
// (plus the expiration stamp), not a verified read-back: reconstructing the
// sort key from a partial payload is not generally possible, so the echo is
// best-effort and does not reflect server-side defaults.
func (r *Repository) SaveWithCompositeKey(ctx context.Context, itemData Item, opts ...WriteOption) (Item, error) {
	o := newWriteOptions(opts)

	item := r.stampExpiration(itemData, o.setExpiration)
	if err := r.putItem(ctx, item); err != nil {
		return nil, err
	}
	if !o.returnModel || r.dryRun {
		return nil, nil
	}
	return item, nil
}

func (r *Repository) putItem(ctx context.Context, item Item) error {
	av, err := dynavalue.CoerceMap(item)
	if err != nil {
		return fmt.Errorf("serialize item: %w", err)
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

// Delete removes the item under the given primary key. Deleting a missing
// item is not an error.
func (r *Repository) Delete(ctx context.Context, primaryKeyValue any) error {
	key, err := r.keyFor(primaryKeyValue)
	if err != nil {
		return err
	}
	return r.deleteItem(ctx, key)
}

// DeleteByCompositeKey removes the item under the given composite key map.
func (r *Repository) DeleteByCompositeKey(ctx context.Context, keyMap Item) error {
	key, err := dynavalue.CoerceMap(keyMap)
	if err != nil {
		return fmt.Errorf("composite key: %w", err)
	}
	return r.deleteItem(ctx, key)
}

func (r *Repository) deleteItem(ctx context.Context, key map[string]types.AttributeValue) error {
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	}); err != nil {
		r.logger.Error("error deleting item", zap.String("table", r.tableName), zap.Error(err))
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ===========================
// QUERY OPERATIONS
// ===========================

// FindAll returns every item sharing the given partition key value, with an
// optional filter spec applied server-side. An absent partition key value
// short-circuits to an empty result without any store call. For composite
// key tables this spans all sort keys under the partition.
func (r *Repository) FindAll(ctx context.Context, primaryKeyValue any, filters filter.Spec) ([]Item, error) {
	if emptyKeyValue(primaryKeyValue) {
		return []Item{}, nil
	}
	return r.queryByKey(ctx, nil, r.primaryKeyName, primaryKeyValue, filters)
}

// FindAllWithIndex returns every item matching an equality query on a named
// secondary index, with an optional filter spec.
func (r *Repository) FindAllWithIndex(ctx context.Context, indexName, keyName string, keyValue any, filters filter.Spec) ([]Item, error) {
	return r.queryByKey(ctx, aws.String(indexName), keyName, keyValue, filters)
}

// FindOneWithIndex returns the first item matching an index query, or nil
// when nothing matches. The full matching set is still fetched; no
// server-side limit is applied.
func (r *Repository) FindOneWithIndex(ctx context.Context, indexName, keyName string, keyValue any, filters filter.Spec) (Item, error) {
	items, err := r.FindAllWithIndex(ctx, indexName, keyName, keyValue, filters)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (r *Repository) queryByKey(ctx context.Context, indexName *string, keyName string, keyValue any, filters filter.Spec) ([]Item, error) {
	cond, err := filter.Compile(filters)
	if err != nil {
		return nil, err
	}
	keyAV, err := dynavalue.Coerce(keyValue)
	if err != nil {
		return nil, fmt.Errorf("key value: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              indexName,
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": keyName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": keyAV,
		},
	}
	if cond != nil {
		input.FilterExpression = aws.String(cond.Expression)
		for k, v := range cond.Names {
			input.ExpressionAttributeNames[k] = v
		}
		for k, v := range cond.Values {
			input.ExpressionAttributeValues[k] = v
		}
	}
	return r.collectQuery(ctx, input)
}

// LoadAll scans the whole table, streaming items through a channel as pages
// arrive. Memory use is bounded by one page plus the channel buffer. This is
// the expensive path, intended for small tables or administrative use. A
// failure on any page terminates the stream with an error result.
func (r *Repository) LoadAll(ctx context.Context, filters filter.Spec, opts ...StreamOption) (<-chan StreamResult, error) {
	cond, err := filter.Compile(filters)
	if err != nil {
		return nil, err
	}
	o := newStreamOptions(opts)

	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	}
	if o.pageSize > 0 {
		input.Limit = aws.Int32(o.pageSize)
	}
	if cond != nil {
		input.FilterExpression = aws.String(cond.Expression)
		input.ExpressionAttributeNames = cond.Names
		input.ExpressionAttributeValues = cond.Values
	}
	return r.streamScan(ctx, input, o), nil
}

// ===========================
// UTILITY OPERATIONS
// ===========================

// Count returns the table's item count from table metadata. The value is
// approximate: DynamoDB refreshes it roughly every six hours, so recent
// writes may not be reflected.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	out, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		r.logger.Error("error counting items", zap.String("table", r.tableName), zap.Error(err))
		return 0, fmt.Errorf("describe table: %w", err)
	}
	return aws.ToInt64(out.Table.ItemCount), nil
}

// DeleteAllByPrimaryKey removes every item sharing the given partition key
// value using server-side PartiQL delete statements, batched at the store's
// statement ceiling. In debug mode the operation logs and returns without
// contacting the store at all.
func (r *Repository) DeleteAllByPrimaryKey(ctx context.Context, primaryKeyValue any) error {
	if r.dryRun {
		r.logger.Info("debug mode: skipping delete all",
			zap.String("table", r.tableName),
			zap.String("key", fmt.Sprint(primaryKeyValue)))
		return nil
	}

	keyAttrs, err := r.keySchema(ctx)
	if err != nil {
		return err
	}

	keys, err := r.queryKeys(ctx, primaryKeyValue, keyAttrs)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("DELETE FROM %q WHERE %q = ?", r.tableName, keyAttrs[0])
	if len(keyAttrs) > 1 {
		stmt += fmt.Sprintf(" AND %q = ?", keyAttrs[1])
	}

	requests := make([]types.BatchStatementRequest, 0, len(keys))
	for _, key := range keys {
		params := make([]types.AttributeValue, 0, len(keyAttrs))
		for _, attr := range keyAttrs {
			params = append(params, key[attr])
		}
		requests = append(requests, types.BatchStatementRequest{
			Statement:  aws.String(stmt),
			Parameters: params,
		})
	}
	return r.runBatchStatements(ctx, requests)
}

// keySchema returns the table's key attribute names, partition key first.
func (r *Repository) keySchema(ctx context.Context) ([]string, error) {
	out, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		r.logger.Error("error describing table", zap.String("table", r.tableName), zap.Error(err))
		return nil, fmt.Errorf("describe table: %w", err)
	}

	var hash, rangeKey string
	for _, el := range out.Table.KeySchema {
		switch el.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(el.AttributeName)
		case types.KeyTypeRange:
			rangeKey = aws.ToString(el.AttributeName)
		}
	}
	if hash == "" {
		return nil, fmt.Errorf("table %s reports no partition key", r.tableName)
	}
	attrs := []string{hash}
	if rangeKey != "" {
		attrs = append(attrs, rangeKey)
	}
	return attrs, nil
}

// queryKeys fetches only the key attributes of every item under a partition.
func (r *Repository) queryKeys(ctx context.Context, primaryKeyValue any, keyAttrs []string) ([]map[string]types.AttributeValue, error) {
	keyAV, err := dynavalue.Coerce(primaryKeyValue)
	if err != nil {
		return nil, fmt.Errorf("key value: %w", err)
	}

	names := map[string]string{"#pk": keyAttrs[0]}
	projection := "#pk"
	if len(keyAttrs) > 1 {
		names["#sk"] = keyAttrs[1]
		projection += ", #sk"
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("#pk = :pk"),
		ProjectionExpression:      aws.String(projection),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": keyAV},
	}
	return r.collectQueryRaw(ctx, input)
}
