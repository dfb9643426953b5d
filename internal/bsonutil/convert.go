// Package bsonutil provides shared BSON type conversion helpers.
// These functions safely convert BSON values and loosely typed argument values
// (which may arrive as int32, int64, float64, strings, etc.) into Go types
// without panicking on unexpected types.
package bsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ToString converts a BSON value to string. Returns "" for nil.
// Non-string values are formatted with fmt.Sprintf.
func ToString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// ToInt64 converts a numeric value to int64. Numeric strings are parsed.
// The second result is false for nil or unrecognised values.
func ToInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return int64(f), err == nil
	default:
		return 0, false
	}
}

// ToBool converts a bool or a "true"/"false" string. The second result is
// false when the value is neither.
func ToBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

// ToStrings converts a list value or a separator-joined string into trimmed,
// non-empty strings.
func ToStrings(v interface{}, sep string) []string {
	var parts []string
	switch list := v.(type) {
	case nil:
		return nil
	case []string:
		parts = list
	case []interface{}:
		for _, item := range list {
			parts = append(parts, ToString(item))
		}
	default:
		parts = strings.Split(ToString(v), sep)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ToNeutral converts a BSON document to plain JSON values through relaxed
// Extended JSON, so an ObjectId becomes {"$oid": "..."} and plain numbers stay
// numbers. A nil or empty raw document yields nil.
func ToNeutral(doc interface{}) (map[string]interface{}, error) {
	switch d := doc.(type) {
	case nil:
		return nil, nil
	case bson.Raw:
		if len(d) == 0 {
			return nil, nil
		}
	case bson.M:
		if d == nil {
			return nil, nil
		}
	}

	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}
