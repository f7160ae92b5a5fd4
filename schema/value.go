// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the dynamic type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is the recursive sum type used to model a template body:
// null | bool | int | float | string | [Value] | {string: Value}.
//
// Template bodies are open-ended JSON documents whose shape is not known
// until probe time (placeholders live in string leaves, interface blocks
// are nested objects of arbitrary depth). Value lets the substitution
// engine and the bus projector walk that structure generically while
// still dispatching on a concrete tag, rather than juggling `any` and
// repeated type switches at every call site.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
	keys []string // insertion order for obj, preserved across Walk/marshal
}

func Null() Value               { return Value{kind: KindNull} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// Object builds an object Value preserving the given key order.
func Object(keys []string, fields map[string]Value) Value {
	return Value{kind: KindObject, keys: append([]string(nil), keys...), obj: fields}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Object returns the object's fields and the insertion order of its keys.
func (v Value) Object() (keys []string, fields map[string]Value, ok bool) {
	if v.kind != KindObject {
		return nil, nil, false
	}
	return v.keys, v.obj, true
}

// Scalar reports the value formatted as a string, the way placeholder
// substitution and probe regex matching need it. Only scalar kinds have
// a string form; arrays and objects return false.
func (v Value) Scalar() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		return fmt.Sprintf("%d", v.i), true
	case KindFloat:
		return fmt.Sprintf("%g", v.f), true
	case KindBool:
		return fmt.Sprintf("%t", v.b), true
	}
	return "", false
}

// UnmarshalJSON decodes arbitrary JSON into the tagged union, preserving
// object key order (encoding/json's map decoding does not, so the object
// is decoded token-by-token with json.Decoder).
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = tok
	return nil
}

// MarshalJSON encodes the tagged union back to JSON, preserving object
// key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		var buf []byte
		buf = append(buf, '{')
		for i, key := range v.keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyJSON, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyJSON...)
			buf = append(buf, ':')
			valJSON, err := v.obj[key].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, valJSON...)
		}
		buf = append(buf, '}')
		return buf, nil
	}
	return nil, fmt.Errorf("schema: value has invalid kind %d", v.kind)
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var keys []string
			fields := make(map[string]Value)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("schema: expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				if _, exists := fields[key]; !exists {
					keys = append(keys, key)
				}
				fields[key] = val
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Object(keys, fields), nil
		case '[':
			var items []Value
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(items), nil
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("schema: invalid number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("schema: unexpected token %v", tok)
}
