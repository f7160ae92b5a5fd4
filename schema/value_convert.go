// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// FromAny builds a Value from a plain Go value produced by application
// code (tests, the substitution engine's output, template defaults
// parsed ad hoc). Supported inputs are the JSON-decodable shapes:
// nil, bool, string, float64, int, int64, []any, map[string]any (in
// which case key order is whatever Go's map iteration yields — callers
// that need stable order should build via Object directly).
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint64:
		return Int(int64(t))
	case float64:
		return Float(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Array(items)
	case map[string]any:
		keys := make([]string, 0, len(t))
		fields := make(map[string]Value, len(t))
		for k, val := range t {
			keys = append(keys, k)
			fields[k] = FromAny(val)
		}
		return Object(keys, fields)
	case Value:
		return t
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Clone produces a deep copy of the value. Object key order is preserved.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Array(items)
	case KindObject:
		fields := make(map[string]Value, len(v.obj))
		for k, val := range v.obj {
			fields[k] = val.Clone()
		}
		return Object(v.keys, fields)
	default:
		return v
	}
}

// ScalarKind reports whether the value is a scalar (bool/int/float/string),
// as opposed to array, object, or null. Used by the bus projector to
// decide whether a body leaf maps to a published D-Bus-style property.
func (v Value) ScalarKind() bool {
	switch v.kind {
	case KindBool, KindInt, KindFloat, KindString:
		return true
	}
	return false
}

// HomogeneousArray reports whether every element of an array value has
// the same scalar Kind, and returns that Kind. Mixed-kind arrays are
// rejected when publishing bus properties.
func (v Value) HomogeneousArray() (Kind, bool) {
	items, ok := v.Array()
	if !ok || len(items) == 0 {
		return KindNull, false
	}
	kind := items[0].Kind()
	if !items[0].ScalarKind() {
		return KindNull, false
	}
	for _, item := range items[1:] {
		if item.Kind() != kind {
			return KindNull, false
		}
	}
	return kind, true
}
