/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeStore is an in-memory stand-in for the DynamoDB client. It keeps items
// under composite string keys, evaluates the expression subset the
// repository emits, and counts calls per operation so tests can assert that
// debug mode and short-circuits issue no store traffic.
type fakeStore struct {
	mu sync.Mutex

	hashKey  string
	rangeKey string
	items    map[string]map[string]types.AttributeValue

	calls map[string]int

	// pageSize forces Query and Scan to page with this many items.
	pageSize int

	// failNextBatch makes the next BatchWriteItem call fail outright.
	failNextBatch bool

	// unprocessedOnce returns every request of the first BatchWriteItem
	// call as unprocessed, then behaves normally.
	unprocessedOnce bool

	// alwaysUnprocessed never accepts any batch write request.
	alwaysUnprocessed bool

	errByOp map[string]error
}

func newFakeStore(hashKey string) *fakeStore {
	return &fakeStore{
		hashKey: hashKey,
		items:   map[string]map[string]types.AttributeValue{},
		calls:   map[string]int{},
		errByOp: map[string]error{},
	}
}

func newCompositeFakeStore(hashKey, rangeKey string) *fakeStore {
	s := newFakeStore(hashKey)
	s.rangeKey = rangeKey
	return s
}

func (s *fakeStore) storageKey(key map[string]types.AttributeValue) string {
	parts := []string{avString(key[s.hashKey])}
	if s.rangeKey != "" {
		parts = append(parts, avString(key[s.rangeKey]))
	}
	return strings.Join(parts, "\x00")
}

func avString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("B:%t", v.Value)
	case nil:
		return "missing"
	default:
		return fmt.Sprintf("%v", av)
	}
}

func (s *fakeStore) put(item map[string]types.AttributeValue) {
	copied := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		copied[k] = v
	}
	s.items[s.storageKey(item)] = copied
}

func (s *fakeStore) record(op string) error {
	s.calls[op]++
	return s.errByOp[op]
}

func (s *fakeStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) writeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls["PutItem"] + s.calls["UpdateItem"] + s.calls["DeleteItem"] +
		s.calls["BatchWriteItem"] + s.calls["BatchExecuteStatement"]
}

func (s *fakeStore) sortedKeys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ===========================
// CLIENT SURFACE
// ===========================

func (s *fakeStore) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("GetItem"); err != nil {
		return nil, err
	}
	item, ok := s.items[s.storageKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (s *fakeStore) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("PutItem"); err != nil {
		return nil, err
	}
	s.put(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (s *fakeStore) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteItem"); err != nil {
		return nil, err
	}
	delete(s.items, s.storageKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (s *fakeStore) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateItem"); err != nil {
		return nil, err
	}

	sk := s.storageKey(params.Key)
	item, ok := s.items[sk]
	if !ok {
		item = map[string]types.AttributeValue{}
		for k, v := range params.Key {
			item[k] = v
		}
	}

	if params.ConditionExpression != nil {
		pass, err := evalExpression(item, aws.ToString(params.ConditionExpression),
			params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !pass {
			return nil, &types.ConditionalCheckFailedException{
				Message: aws.String("The conditional request failed"),
			}
		}
	}

	if err := applySetExpression(item, aws.ToString(params.UpdateExpression),
		params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	s.items[sk] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

func (s *fakeStore) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("BatchWriteItem"); err != nil {
		return nil, err
	}
	if s.failNextBatch {
		s.failNextBatch = false
		return nil, fmt.Errorf("provisioned throughput exceeded")
	}

	for table, reqs := range params.RequestItems {
		if len(reqs) > 25 {
			return nil, fmt.Errorf("too many items in request for table %s: %d", table, len(reqs))
		}
		if s.alwaysUnprocessed || s.unprocessedOnce {
			s.unprocessedOnce = false
			return &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]types.WriteRequest{table: reqs},
			}, nil
		}
		for _, req := range reqs {
			switch {
			case req.PutRequest != nil:
				s.put(req.PutRequest.Item)
			case req.DeleteRequest != nil:
				delete(s.items, s.storageKey(req.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (s *fakeStore) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Query"); err != nil {
		return nil, err
	}

	keyAttr, keyValue, err := parseKeyCondition(
		aws.ToString(params.KeyConditionExpression),
		params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	var matched []map[string]types.AttributeValue
	for _, sk := range s.sortedKeys() {
		item := s.items[sk]
		if !attributeEquals(item[keyAttr], keyValue) {
			continue
		}
		if params.FilterExpression != nil {
			pass, err := evalExpression(item, aws.ToString(params.FilterExpression),
				params.ExpressionAttributeNames, params.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !pass {
				continue
			}
		}
		matched = append(matched, s.project(item, params.ProjectionExpression, params.ExpressionAttributeNames))
	}
	page, last := s.page(matched, params.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: page, LastEvaluatedKey: last}, nil
}

func (s *fakeStore) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Scan"); err != nil {
		return nil, err
	}
	// The real store rejects a present-but-empty value table.
	if params.ExpressionAttributeValues != nil && len(params.ExpressionAttributeValues) == 0 {
		return nil, fmt.Errorf("ValidationException: ExpressionAttributeValues must not be empty")
	}

	var matched []map[string]types.AttributeValue
	for _, sk := range s.sortedKeys() {
		item := s.items[sk]
		if params.FilterExpression != nil {
			pass, err := evalExpression(item, aws.ToString(params.FilterExpression),
				params.ExpressionAttributeNames, params.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !pass {
				continue
			}
		}
		matched = append(matched, item)
	}
	page, last := s.page(matched, params.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: page, LastEvaluatedKey: last}, nil
}

func (s *fakeStore) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DescribeTable"); err != nil {
		return nil, err
	}

	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(s.hashKey), KeyType: types.KeyTypeHash},
	}
	if s.rangeKey != "" {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(s.rangeKey), KeyType: types.KeyTypeRange,
		})
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName: params.TableName,
			ItemCount: aws.Int64(int64(len(s.items))),
			KeySchema: schema,
		},
	}, nil
}

var deleteStmtRE = regexp.MustCompile(`^DELETE FROM "([^"]+)" WHERE "([^"]+)" = \?(?: AND "([^"]+)" = \?)?$`)

func (s *fakeStore) BatchExecuteStatement(ctx context.Context, params *dynamodb.BatchExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchExecuteStatementOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("BatchExecuteStatement"); err != nil {
		return nil, err
	}
	if len(params.Statements) > 25 {
		return nil, fmt.Errorf("too many statements: %d", len(params.Statements))
	}

	out := &dynamodb.BatchExecuteStatementOutput{}
	for _, stmt := range params.Statements {
		m := deleteStmtRE.FindStringSubmatch(aws.ToString(stmt.Statement))
		if m == nil {
			return nil, fmt.Errorf("unsupported statement: %s", aws.ToString(stmt.Statement))
		}
		key := map[string]types.AttributeValue{m[2]: stmt.Parameters[0]}
		if m[3] != "" {
			key[m[3]] = stmt.Parameters[1]
		}
		delete(s.items, s.storageKey(key))
		out.Responses = append(out.Responses, types.BatchStatementResponse{})
	}
	return out, nil
}

func (s *fakeStore) project(item map[string]types.AttributeValue, projection *string, names map[string]string) map[string]types.AttributeValue {
	if projection == nil {
		return item
	}
	out := map[string]types.AttributeValue{}
	for _, ph := range strings.Split(aws.ToString(projection), ", ") {
		attr := names[ph]
		if v, ok := item[attr]; ok {
			out[attr] = v
		}
	}
	return out
}

// page slices matched items according to pageSize and the continuation key.
// The continuation key is the full key of the last returned item.
func (s *fakeStore) page(matched []map[string]types.AttributeValue, start map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	offset := 0
	if start != nil {
		marker := s.storageKey(start)
		for i, item := range matched {
			if s.storageKey(item) == marker {
				offset = i + 1
				break
			}
		}
	}
	matched = matched[offset:]
	if s.pageSize <= 0 || len(matched) <= s.pageSize {
		return matched, nil
	}
	page := matched[:s.pageSize]
	lastItem := page[len(page)-1]
	last := map[string]types.AttributeValue{s.hashKey: lastItem[s.hashKey]}
	if s.rangeKey != "" {
		last[s.rangeKey] = lastItem[s.rangeKey]
	}
	return page, last
}

// ===========================
// EXPRESSION EVALUATION
// ===========================

func parseKeyCondition(expr string, names map[string]string, values map[string]types.AttributeValue) (string, types.AttributeValue, error) {
	parts := strings.Split(expr, " = ")
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("unsupported key condition: %s", expr)
	}
	attr, ok := names[parts[0]]
	if !ok {
		return "", nil, fmt.Errorf("unresolved name placeholder: %s", parts[0])
	}
	value, ok := values[parts[1]]
	if !ok {
		return "", nil, fmt.Errorf("unresolved value placeholder: %s", parts[1])
	}
	return attr, value, nil
}

// splitClauses splits an AND-joined expression while keeping BETWEEN
// operands attached to their clause.
func splitClauses(expr string) []string {
	raw := strings.Split(expr, " AND ")
	var out []string
	for _, seg := range raw {
		if strings.HasPrefix(seg, ":") && len(out) > 0 {
			out[len(out)-1] += " AND " + seg
			continue
		}
		out = append(out, seg)
	}
	return out
}

func evalExpression(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, clause := range splitClauses(expr) {
		ok, err := evalClause(item, clause, names, values)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

var (
	funcClauseRE    = regexp.MustCompile(`^(begins_with|contains)\((#\w+), (:\w+)\)$`)
	existsClauseRE  = regexp.MustCompile(`^(attribute_exists|attribute_not_exists)\((#\w+)\)$`)
	betweenClauseRE = regexp.MustCompile(`^(#\w+) BETWEEN (:\w+) AND (:\w+)$`)
	inClauseRE      = regexp.MustCompile(`^(#\w+) IN \((.+)\)$`)
	cmpClauseRE     = regexp.MustCompile(`^(#\w+) (=|<>|<=|>=|<|>) (:\w+)$`)
)

func evalClause(item map[string]types.AttributeValue, clause string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if m := existsClauseRE.FindStringSubmatch(clause); m != nil {
		_, present := item[names[m[2]]]
		if m[1] == "attribute_exists" {
			return present, nil
		}
		return !present, nil
	}
	if m := funcClauseRE.FindStringSubmatch(clause); m != nil {
		attr, ok := item[names[m[2]]].(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		operand, ok := values[m[3]].(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		if m[1] == "begins_with" {
			return strings.HasPrefix(attr.Value, operand.Value), nil
		}
		return strings.Contains(attr.Value, operand.Value), nil
	}
	if m := betweenClauseRE.FindStringSubmatch(clause); m != nil {
		av, present := item[names[m[1]]]
		if !present {
			return false, nil
		}
		lo, hi := values[m[2]], values[m[3]]
		cmpLo, err := compareAttributes(av, lo)
		if err != nil {
			return false, err
		}
		cmpHi, err := compareAttributes(av, hi)
		if err != nil {
			return false, err
		}
		return cmpLo >= 0 && cmpHi <= 0, nil
	}
	if m := inClauseRE.FindStringSubmatch(clause); m != nil {
		av, present := item[names[m[1]]]
		if !present {
			return false, nil
		}
		for _, ph := range strings.Split(m[2], ", ") {
			if attributeEquals(av, values[ph]) {
				return true, nil
			}
		}
		return false, nil
	}
	if m := cmpClauseRE.FindStringSubmatch(clause); m != nil {
		av, present := item[names[m[1]]]
		operand := values[m[3]]
		if !present {
			return false, nil
		}
		switch m[2] {
		case "=":
			return attributeEquals(av, operand), nil
		case "<>":
			return !attributeEquals(av, operand), nil
		}
		cmp, err := compareAttributes(av, operand)
		if err != nil {
			return false, err
		}
		switch m[2] {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		}
	}
	return false, fmt.Errorf("unsupported clause: %s", clause)
}

func attributeEquals(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return false
	}
	an, aIsN := a.(*types.AttributeValueMemberN)
	bn, bIsN := b.(*types.AttributeValueMemberN)
	if aIsN && bIsN {
		af, errA := strconv.ParseFloat(an.Value, 64)
		bf, errB := strconv.ParseFloat(bn.Value, 64)
		if errA == nil && errB == nil {
			return af == bf
		}
	}
	return avString(a) == avString(b)
}

func compareAttributes(a, b types.AttributeValue) (int, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, fmt.Errorf("type mismatch comparing %v and %v", a, b)
		}
		af, err := strconv.ParseFloat(av.Value, 64)
		if err != nil {
			return 0, err
		}
		bf, err := strconv.ParseFloat(bv.Value, 64)
		if err != nil {
			return 0, err
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, fmt.Errorf("type mismatch comparing %v and %v", a, b)
		}
		return strings.Compare(av.Value, bv.Value), nil
	}
	return 0, fmt.Errorf("uncomparable attribute %v", a)
}

var setClauseRE = regexp.MustCompile(`^(#\w+) = (:\w+)$`)

func applySetExpression(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("unsupported update expression: %s", expr)
	}
	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ", ") {
		m := setClauseRE.FindStringSubmatch(assign)
		if m == nil {
			return fmt.Errorf("unsupported assignment: %s", assign)
		}
		attr, ok := names[m[1]]
		if !ok {
			return fmt.Errorf("unresolved name placeholder: %s", m[1])
		}
		value, ok := values[m[2]]
		if !ok {
			return fmt.Errorf("unresolved value placeholder: %s", m[2])
		}
		item[attr] = value
	}
	return nil
}
