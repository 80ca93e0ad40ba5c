/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dynavalue

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/genericrepo/errors"
)

// Explicit type hints understood by CoerceTyped. Hints outside this set fall
// through to auto-detection.
const (
	TypeNumber  = "N"
	TypeString  = "S"
	TypeBoolean = "BOOL"
)

// Coerce converts a Go value into a DynamoDB attribute value using
// auto-detection. Booleans are checked before numbers, numbers become exact
// decimal strings, lists and maps recurse element-wise, and anything else
// falls back to its string representation.
func Coerce(v any) (types.AttributeValue, error) {
	return coerce(v)
}

// CoerceTyped converts a Go value into a DynamoDB attribute value, honoring
// an explicit type hint. "N" rejects values that are not numeric-like.
func CoerceTyped(v any, explicitType string) (types.AttributeValue, error) {
	switch explicitType {
	case TypeNumber:
		return coerceNumber(v)
	case TypeString:
		if s, ok := v.(string); ok {
			return &types.AttributeValueMemberS{Value: s}, nil
		}
		return &types.AttributeValueMemberS{Value: fmt.Sprint(v)}, nil
	case TypeBoolean:
		return coerceBool(v)
	}
	return coerce(v)
}

// CoerceMap converts a map of Go values into a DynamoDB item map.
func CoerceMap(m map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := coerce(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func coerce(v any) (types.AttributeValue, error) {
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}

	// Already-native values pass through untouched.
	if av, ok := v.(types.AttributeValue); ok {
		return av, nil
	}

	switch t := v.(type) {
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return coerceNumber(t)
	case []byte:
		return &types.AttributeValueMemberB{Value: t}, nil
	case map[string]any:
		m, err := CoerceMap(t)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]types.AttributeValue, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			av, err := coerce(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]types.AttributeValue, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				av, err := coerce(iter.Value().Interface())
				if err != nil {
					return nil, fmt.Errorf("attribute %q: %w", iter.Key().String(), err)
				}
				m[iter.Key().String()] = av
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		}
	}

	// Anything else converts through its string representation.
	return &types.AttributeValueMemberS{Value: fmt.Sprint(v)}, nil
}

// coerceNumber renders the value as an exact decimal string. The string is
// built from the value's own textual form so binary floats never introduce
// rounding drift into stored values or comparisons.
func coerceNumber(v any) (types.AttributeValue, error) {
	var s string
	switch t := v.(type) {
	case int:
		s = strconv.FormatInt(int64(t), 10)
	case int8:
		s = strconv.FormatInt(int64(t), 10)
	case int16:
		s = strconv.FormatInt(int64(t), 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int64:
		s = strconv.FormatInt(t, 10)
	case uint:
		s = strconv.FormatUint(uint64(t), 10)
	case uint8:
		s = strconv.FormatUint(uint64(t), 10)
	case uint16:
		s = strconv.FormatUint(uint64(t), 10)
	case uint32:
		s = strconv.FormatUint(uint64(t), 10)
	case uint64:
		s = strconv.FormatUint(t, 10)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case string:
		if _, err := strconv.ParseFloat(t, 64); err != nil {
			return nil, errors.NewValidationError("", fmt.Sprintf("value %q is not numeric", t))
		}
		s = t
	default:
		return nil, errors.NewValidationError("", fmt.Sprintf("value of type %T is not numeric", v))
	}
	return &types.AttributeValueMemberN{Value: s}, nil
}

func coerceBool(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return nil, errors.NewValidationError("", fmt.Sprintf("value %q is not boolean", t))
		}
		return &types.AttributeValueMemberBOOL{Value: b}, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return &types.AttributeValueMemberBOOL{Value: fmt.Sprint(t) != "0"}, nil
	case float32, float64:
		return &types.AttributeValueMemberBOOL{Value: fmt.Sprint(t) != "0"}, nil
	default:
		return nil, errors.NewValidationError("", fmt.Sprintf("value of type %T is not boolean", v))
	}
}

// Decode converts a DynamoDB attribute value back into a plain Go value.
// Numeric attributes decode to json.Number to preserve their exact decimal
// representation.
func Decode(av types.AttributeValue) any {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return t.Value
	case *types.AttributeValueMemberN:
		return json.Number(t.Value)
	case *types.AttributeValueMemberBOOL:
		return t.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberB:
		return t.Value
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(t.Value))
		for _, el := range t.Value {
			list = append(list, Decode(el))
		}
		return list
	case *types.AttributeValueMemberM:
		return DecodeMap(t.Value)
	case *types.AttributeValueMemberSS:
		list := make([]any, 0, len(t.Value))
		for _, s := range t.Value {
			list = append(list, s)
		}
		return list
	case *types.AttributeValueMemberNS:
		list := make([]any, 0, len(t.Value))
		for _, n := range t.Value {
			list = append(list, json.Number(n))
		}
		return list
	case *types.AttributeValueMemberBS:
		list := make([]any, 0, len(t.Value))
		for _, b := range t.Value {
			list = append(list, b)
		}
		return list
	default:
		return nil
	}
}

// DecodeMap converts a raw DynamoDB item into a plain Go map.
func DecodeMap(item map[string]types.AttributeValue) map[string]any {
	if item == nil {
		return nil
	}
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = Decode(v)
	}
	return out
}
