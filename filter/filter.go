/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/genericrepo/dynavalue"
	"github.com/suparena/genericrepo/errors"
)

// Spec is a client-friendly filter/condition description: attribute name to
// literal value, operator map, or {value, type, operator} triple.
type Spec map[string]any

// Condition is a compiled boolean condition: an expression string plus the
// attribute-name and attribute-value placeholder tables it references.
// Values is nil when the expression binds no values (existence checks only).
// Placeholders use the "#f"/":f" namespace so a Condition can be merged with
// update expressions, which use "#u"/":u".
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// Compile translates a Spec into a Condition. An empty or nil spec compiles
// to nil, meaning "no restriction". Attribute entries are combined with AND
// in sorted attribute-name order so the result is deterministic.
func Compile(spec Spec) (*Condition, error) {
	if len(spec) == 0 {
		return nil, nil
	}

	names := sortedKeys(spec)
	cond := &Condition{
		Names: make(map[string]string, len(spec)),
	}

	clauses := make([]string, 0, len(spec))
	for i, attr := range names {
		clause, err := compileEntry(cond, i, attr, spec[attr])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	cond.Expression = strings.Join(clauses, " AND ")
	return cond, nil
}

// compileEntry compiles one attribute entry into a leaf predicate, recording
// its placeholders on cond.
func compileEntry(cond *Condition, idx int, attr string, raw any) (string, error) {
	op, operand, explicitType := parseEntry(raw)
	op = normalizeOperator(op)

	nameRef := fmt.Sprintf("#f%d", idx)
	valueRef := fmt.Sprintf(":f%d", idx)
	cond.Names[nameRef] = attr

	// Values stays nil for value-less conditions (existence checks): the
	// store rejects requests carrying a present-but-empty value table.
	bind := func(ref string, v any) error {
		av, err := dynavalue.CoerceTyped(v, explicitType)
		if err != nil {
			return err
		}
		if cond.Values == nil {
			cond.Values = make(map[string]types.AttributeValue)
		}
		cond.Values[ref] = av
		return nil
	}

	switch op {
	case "eq", "ne", "lt", "le", "gt", "ge":
		if err := bind(valueRef, operand); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", nameRef, comparators[op], valueRef), nil

	case "between":
		pair, ok := toList(operand)
		if !ok || len(pair) != 2 {
			return "", errors.NewValidationError(attr, "'between' operator requires a list of two values")
		}
		low, high := valueRef+"a", valueRef+"b"
		if err := bind(low, pair[0]); err != nil {
			return "", err
		}
		if err := bind(high, pair[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", nameRef, low, high), nil

	case "in":
		list, ok := toList(operand)
		if !ok || len(list) == 0 {
			return "", errors.NewValidationError(attr, "'in' operator requires a non-empty list of values")
		}
		refs := make([]string, 0, len(list))
		for j, el := range list {
			ref := fmt.Sprintf("%s_%d", valueRef, j)
			if err := bind(ref, el); err != nil {
				return "", err
			}
			refs = append(refs, ref)
		}
		return fmt.Sprintf("%s IN (%s)", nameRef, strings.Join(refs, ", ")), nil

	case "contains":
		if err := bind(valueRef, operand); err != nil {
			return "", err
		}
		return fmt.Sprintf("contains(%s, %s)", nameRef, valueRef), nil

	case "begins_with":
		if err := bind(valueRef, operand); err != nil {
			return "", err
		}
		return fmt.Sprintf("begins_with(%s, %s)", nameRef, valueRef), nil

	case "exists":
		return fmt.Sprintf("attribute_exists(%s)", nameRef), nil

	case "not_exists":
		return fmt.Sprintf("attribute_not_exists(%s)", nameRef), nil

	default:
		return "", errors.NewUnsupportedOperatorError(op)
	}
}

var comparators = map[string]string{
	"eq": "=",
	"ne": "<>",
	"lt": "<",
	"le": "<=",
	"gt": ">",
	"ge": ">=",
}

// parseEntry maps the three accepted condition shapes onto an
// (operator, operand, explicit type) triple.
func parseEntry(raw any) (op string, operand any, explicitType string) {
	m, ok := asStringMap(raw)
	if !ok {
		// Bare value: shorthand for equality.
		return "eq", raw, ""
	}

	if rawOp, has := m["operator"]; has {
		op, _ = rawOp.(string)
		if op == "" {
			op = fmt.Sprint(rawOp)
		}
		explicitType, _ = m["type"].(string)
		return op, m["value"], explicitType
	}

	if len(m) == 1 {
		for k, v := range m {
			return k, v, ""
		}
	}

	// Value-with-type-hint shape; equality is implied.
	operand = any(m)
	if v, has := m["value"]; has {
		operand = v
	}
	explicitType, _ = m["type"].(string)
	return "eq", operand, explicitType
}

// normalizeOperator accepts the gte/lte spellings seen in the wild and maps
// them to their canonical forms.
func normalizeOperator(op string) string {
	switch op {
	case "gte":
		return "ge"
	case "lte":
		return "le"
	}
	return op
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Spec:
		return m, true
	}
	return nil, false
}

// toList normalizes slice operands of any element type into []any.
func toList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func sortedKeys(spec Spec) []string {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
