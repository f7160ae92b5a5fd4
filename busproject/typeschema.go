// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bmc-tools/entity-manager/schema"
)

// TypeSchema validates the body a client passes to AddObject for one
// sub-entity type; template loading never enforces it. The format is a
// minimal JSON-Schema-like subset: a list of required top-level
// property names and, optionally, the expected Kind for each.
type TypeSchema struct {
	Required []string
	Types    map[string]schema.Kind
}

// LoadTypeSchema reads <schemaDir>/<type>.json and parses it into a
// TypeSchema. Comments are permitted, matching the rest of the
// template library's JSONC convention.
func LoadTypeSchema(schemaDir, entityType string) (*TypeSchema, error) {
	path := filepath.Join(schemaDir, strings.ToLower(entityType)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("busproject: reading schema %s: %w", path, err)
	}

	var raw struct {
		Required []string `json:"required"`
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("busproject: parsing schema %s: %w", path, err)
	}

	out := &TypeSchema{Required: raw.Required, Types: make(map[string]schema.Kind)}
	for name, prop := range raw.Properties {
		if kind, ok := jsonSchemaKind(prop.Type); ok {
			out.Types[name] = kind
		}
	}
	return out, nil
}

func jsonSchemaKind(name string) (schema.Kind, bool) {
	switch name {
	case "string":
		return schema.KindString, true
	case "boolean":
		return schema.KindBool, true
	case "integer":
		return schema.KindInt, true
	case "number":
		return schema.KindFloat, true
	case "array":
		return schema.KindArray, true
	case "object":
		return schema.KindObject, true
	}
	return schema.KindNull, false
}

// Validate reports the first requirement body fails to satisfy, or
// nil if body conforms. body is the sub-entity document a client
// passed to AddObject.
func (s *TypeSchema) Validate(body schema.Value) error {
	_, fields, ok := body.Object()
	if !ok {
		return fmt.Errorf("body must be a JSON object")
	}

	for _, name := range s.Required {
		if _, present := fields[name]; !present {
			return fmt.Errorf("missing required property %q", name)
		}
	}

	for name, wantKind := range s.Types {
		value, present := fields[name]
		if !present {
			continue
		}
		gotKind := value.Kind()
		// An integer literal satisfies "number", the same widening
		// schema.Value.Float does; a non-integral value does not
		// satisfy "integer".
		if wantKind == schema.KindFloat && gotKind == schema.KindInt {
			continue
		}
		if gotKind != wantKind {
			return fmt.Errorf("property %q: expected %v, got %v", name, wantKind, gotKind)
		}
	}

	return nil
}
