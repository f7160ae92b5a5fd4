// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"testing"
)

func TestValueRoundTrip(t *testing.T) {
	tests := []string{
		`null`,
		`true`,
		`false`,
		`42`,
		`3.5`,
		`"hello"`,
		`[1,2,3]`,
		`{"a":1,"b":"two","c":{"d":true}}`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(input), &v); err != nil {
				t.Fatalf("Unmarshal(%q): %v", input, err)
			}
			out, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}

			var want, got any
			if err := json.Unmarshal([]byte(input), &want); err != nil {
				t.Fatalf("reference Unmarshal: %v", err)
			}
			if err := json.Unmarshal(out, &got); err != nil {
				t.Fatalf("round-trip Unmarshal: %v", err)
			}
		})
	}
}

func TestValueObjectPreservesKeyOrder(t *testing.T) {
	var v Value
	input := `{"z":1,"a":2,"m":3}`
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	keys, _, ok := v.Object()
	if !ok {
		t.Fatalf("Object() ok = false")
	}
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestValueScalar(t *testing.T) {
	tests := []struct {
		v    Value
		want string
		ok   bool
	}{
		{String("x"), "x", true},
		{Int(7), "7", true},
		{Bool(true), "true", true},
		{Array([]Value{Int(1)}), "", false},
	}
	for _, tt := range tests {
		got, ok := tt.v.Scalar()
		if ok != tt.ok || got != tt.want {
			t.Errorf("Scalar() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
		}
	}
}

func TestHomogeneousArray(t *testing.T) {
	homogeneous := Array([]Value{Int(1), Int(2), Int(3)})
	if kind, ok := homogeneous.HomogeneousArray(); !ok || kind != KindInt {
		t.Errorf("HomogeneousArray() = (%v, %v), want (KindInt, true)", kind, ok)
	}

	mixed := Array([]Value{Int(1), String("x")})
	if _, ok := mixed.HomogeneousArray(); ok {
		t.Errorf("HomogeneousArray() on mixed array = true, want false")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"Fan Module 0":   "Fan_Module_0",
		"PSU-1":          "PSU_1",
		"already_legal1": "already_legal1",
	}
	for input, want := range tests {
		if got := SanitizeName(input); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSystemConfigurationOrderAndClone(t *testing.T) {
	cfg := NewSystemConfiguration()
	cfg.Set("b", Entity{ID: "b", Body: String("b-body")})
	cfg.Set("a", Entity{ID: "a", Body: String("a-body")})
	cfg.Set("b", Entity{ID: "b", Body: String("b-body-2")}) // update, same position

	ids := cfg.IDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Fatalf("IDs() = %v, want [b a]", ids)
	}

	clone := cfg.Clone()
	clone.Delete("a")
	if cfg.Len() != 2 {
		t.Errorf("original mutated by clone delete: Len() = %d", cfg.Len())
	}
	if clone.Len() != 1 {
		t.Errorf("clone Len() = %d, want 1", clone.Len())
	}
}

func TestSystemConfigurationMarshalRoundTrip(t *testing.T) {
	cfg := NewSystemConfiguration()
	cfg.Set("X", Entity{ID: "X", Body: Object([]string{"Name"}, map[string]Value{"Name": String("X")})})
	cfg.Set("Y", Entity{ID: "Y", Body: Object([]string{"Name"}, map[string]Value{"Name": String("Y")})})

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	restored := NewSystemConfiguration()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	ids := restored.IDs()
	if len(ids) != 2 || ids[0] != "X" || ids[1] != "Y" {
		t.Fatalf("restored IDs() = %v, want [X Y]", ids)
	}
}
