// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// metaFields are the reserved top-level template keys that describe the
// template itself rather than an interface to publish on the bus. Every
// other object-valued top-level key is treated as an interface block.
var metaFields = map[string]struct{}{
	"Name":           {},
	"Probe":          {},
	"Exposes":        {},
	"Type":           {},
	"PowerState":     {},
	"Parent_Chassis": {},
	"CustomDBusName": {},
}

// IsMetaField reports whether key is a reserved template field rather
// than an interface block.
func IsMetaField(key string) bool {
	_, ok := metaFields[key]
	return ok
}

// InterfaceBlocks returns the interface-shaped top-level keys of body
// (every object-valued key that is not a meta field) together with
// their properties, in body's key order.
func InterfaceBlocks(body Value) (names []string, blocks map[string]Value) {
	keys, fields, ok := body.Object()
	if !ok {
		return nil, nil
	}
	blocks = make(map[string]Value)
	for _, key := range keys {
		if IsMetaField(key) {
			continue
		}
		field := fields[key]
		if field.Kind() != KindObject {
			continue
		}
		names = append(names, key)
		blocks[key] = field
	}
	return names, blocks
}
