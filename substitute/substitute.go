// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package substitute

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/bmc-tools/entity-manager/schema"
)

var (
	placeholderPattern = regexp.MustCompile(`\$[A-Za-z0-9_]+`)
	arithmeticPattern  = regexp.MustCompile(`^(-?\d+)\s*([+\-*/%])\s*(-?\d+)$`)
)

// Value substitutes every placeholder in v against bindings, returning
// a new Value with every string leaf (and object key) rewritten
// according to the rules in the package doc.
func Value(v schema.Value, bindings map[string]schema.Value, logger *slog.Logger) schema.Value {
	if logger == nil {
		logger = slog.Default()
	}
	return substituteValue(v, bindings, logger)
}

func substituteValue(v schema.Value, bindings map[string]schema.Value, logger *slog.Logger) schema.Value {
	switch v.Kind() {
	case schema.KindString:
		s, _ := v.String()
		return schema.String(String(s, bindings, logger))

	case schema.KindArray:
		items, _ := v.Array()
		out := make([]schema.Value, len(items))
		for i, item := range items {
			out[i] = substituteValue(item, bindings, logger)
		}
		return schema.Array(out)

	case schema.KindObject:
		keys, fields, _ := v.Object()
		newKeys := make([]string, len(keys))
		newFields := make(map[string]schema.Value, len(fields))
		for i, key := range keys {
			newKey := String(key, bindings, logger)
			newKeys[i] = newKey
			newFields[newKey] = substituteValue(fields[key], bindings, logger)
		}
		return schema.Object(newKeys, newFields)

	default:
		return v
	}
}

// String applies the three substitution rules to a single string leaf
// or object key.
func String(s string, bindings map[string]schema.Value, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}

	replaced := placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[1:]
		bound, ok := bindings[name]
		if !ok {
			return token
		}
		scalar, ok := bound.Scalar()
		if !ok {
			return token
		}
		return scalar
	})

	m := arithmeticPattern.FindStringSubmatch(replaced)
	if m == nil {
		return replaced
	}

	left, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return replaced
	}
	right, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return replaced
	}

	switch m[2] {
	case "+":
		return strconv.FormatInt(left+right, 10)
	case "-":
		return strconv.FormatInt(left-right, 10)
	case "*":
		return strconv.FormatInt(left*right, 10)
	case "/":
		if right == 0 {
			logger.Warn("substitute: division by zero in placeholder arithmetic", "expression", replaced)
			return replaced
		}
		return strconv.FormatInt(left/right, 10)
	case "%":
		if right == 0 {
			logger.Warn("substitute: modulo by zero in placeholder arithmetic", "expression", replaced)
			return replaced
		}
		return strconv.FormatInt(left%right, 10)
	}
	return replaced
}

// EntityID synthesizes the canonical entity id for a substituted
// template name and its probe match:
// "<templateName> <sortedReplacements>".
func EntityID(substitutedName string, match schema.ProbeMatch) string {
	key := match.SortedReplacementKey()
	if key == "" {
		return substitutedName
	}
	return substitutedName + " " + key
}
