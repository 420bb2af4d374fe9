// Package casemap rewrites JSON object keys between the wire convention
// (snake_case) and the application convention (camelCase). Values are
// untouched: objects are recursed, arrays are mapped element-wise,
// scalars pass through.
package casemap

import (
	"encoding/json"
	"strings"
	"unicode"
)

// CamelKeys returns a copy of v with every object key converted to camelCase.
func CamelKeys(v interface{}) interface{} {
	return mapKeys(v, toCamel)
}

// SnakeKeys returns a copy of v with every object key converted to snake_case.
func SnakeKeys(v interface{}) interface{} {
	return mapKeys(v, toSnake)
}

// MarshalSnake marshals v and rewrites all keys to snake_case.
func MarshalSnake(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return json.Marshal(SnakeKeys(decoded))
}

// UnmarshalCamel rewrites all keys in data to camelCase and unmarshals
// the result into v.
func UnmarshalCamel(data []byte, v interface{}) error {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	converted, err := json.Marshal(CamelKeys(decoded))
	if err != nil {
		return err
	}
	return json.Unmarshal(converted, v)
}

func mapKeys(v interface{}, conv func(string) string) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[conv(k)] = mapKeys(val, conv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = mapKeys(item, conv)
		}
		return out
	default:
		return v
	}
}

func toCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for i, r := range s {
		if r == '_' && i > 0 && i < len(s)-1 {
			upperNext = true
			continue
		}
		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 3)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
