// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// cborDecMode decodes generic (any-typed) CBOR maps as
// map[string]any, matching the bus protocol's convention that every
// wire value has string keys.
var cborDecMode cbor.DecMode

func init() {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("schema: CBOR decoder initialization failed: " + err.Error())
	}
	cborDecMode = mode
}

// MarshalCBOR implements cbor.Marshaler, letting Value cross the bus
// transport the same way it crosses encoding/json: by dispatching on
// its tag rather than exposing its private representation.
func (v Value) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(v.toAny())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var generic any
	if err := cborDecMode.Unmarshal(data, &generic); err != nil {
		return err
	}
	*v = FromAny(generic)
	return nil
}

// toAny renders the value as the plain Go shape FromAny accepts,
// losing object key order — acceptable for wire transport, where the
// ordering guarantee only matters for the persisted JSON snapshot.
func (v Value) toAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.toAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for _, key := range v.keys {
			out[key] = v.obj[key].toAny()
		}
		return out
	}
	return nil
}
