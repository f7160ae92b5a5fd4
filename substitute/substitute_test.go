// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package substitute

import (
	"testing"

	"github.com/bmc-tools/entity-manager/schema"
)

func TestStringReplacesPlaceholder(t *testing.T) {
	bindings := map[string]schema.Value{"index": schema.Int(3)}
	got := String("Fan $index", bindings, nil)
	if got != "Fan 3" {
		t.Errorf("String() = %q, want %q", got, "Fan 3")
	}
}

func TestStringLeavesUnboundPlaceholderUnchanged(t *testing.T) {
	got := String("Fan $missing", nil, nil)
	if got != "Fan $missing" {
		t.Errorf("String() = %q, want %q", got, "Fan $missing")
	}
}

func TestStringArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"add", "$a + $b", "5"},
		{"subtract", "$a - $b", "1"},
		{"multiply", "$a * $b", "6"},
		{"divide", "$a / $b", "1"},
		{"modulo", "$a % $b", "1"},
	}
	bindings := map[string]schema.Value{"a": schema.Int(3), "b": schema.Int(2)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := String(tt.template, bindings, nil)
			if got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestStringDivisionByZeroLeavesUnchanged(t *testing.T) {
	bindings := map[string]schema.Value{"a": schema.Int(3), "b": schema.Int(0)}
	got := String("$a / $b", bindings, nil)
	if got != "3 / 0" {
		t.Errorf("String() = %q, want %q", got, "3 / 0")
	}
}

func TestStringNonArithmeticResultUnchanged(t *testing.T) {
	bindings := map[string]schema.Value{"name": schema.String("Acme")}
	got := String("$name Fan", bindings, nil)
	if got != "Acme Fan" {
		t.Errorf("String() = %q, want %q", got, "Acme Fan")
	}
}

func TestValueWalksNestedTreeAndKeys(t *testing.T) {
	bindings := map[string]schema.Value{"index": schema.Int(0)}
	body := schema.Object([]string{"Fan $index"}, map[string]schema.Value{
		"Fan $index": schema.Object([]string{"Name", "Count"}, map[string]schema.Value{
			"Name":  schema.String("Fan $index"),
			"Count": schema.Int(2),
		}),
	})

	result := Value(body, bindings, nil)
	keys, fields, ok := result.Object()
	if !ok || len(keys) != 1 || keys[0] != "Fan 0" {
		t.Fatalf("top-level key = %v, want [Fan 0]", keys)
	}
	inner := fields["Fan 0"]
	_, innerFields, _ := inner.Object()
	name, _ := innerFields["Name"].String()
	if name != "Fan 0" {
		t.Errorf("Name = %q, want %q", name, "Fan 0")
	}
	count, _ := innerFields["Count"].Int()
	if count != 2 {
		t.Errorf("Count = %d, want 2 (numeric leaves untouched)", count)
	}
}

func TestEntityIDCombinesNameAndSortedReplacements(t *testing.T) {
	match := schema.ProbeMatch{
		Replacements: map[string]schema.Value{
			"b": schema.String("2"),
			"a": schema.String("1"),
		},
	}
	got := EntityID("Fan 0", match)
	want := "Fan 0 a=1,b=2"
	if got != want {
		t.Errorf("EntityID() = %q, want %q", got, want)
	}
}

func TestEntityIDWithNoReplacementsIsJustName(t *testing.T) {
	got := EntityID("Board", schema.ProbeMatch{})
	if got != "Board" {
		t.Errorf("EntityID() = %q, want %q", got, "Board")
	}
}
