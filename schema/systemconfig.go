// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SystemConfiguration is the ordered mapping from entity id to entity
// JSON that forms both the in-memory scan result and the persisted
// /var/configuration/system.json snapshot.
//
// Order is preserved (insertion order, reflecting template-disk order)
// so that two scans over an unchanged template library and mirror
// snapshot serialize to byte-identical JSON.
type SystemConfiguration struct {
	order   []string
	entries map[string]Entity
}

// NewSystemConfiguration returns an empty configuration.
func NewSystemConfiguration() *SystemConfiguration {
	return &SystemConfiguration{entries: make(map[string]Entity)}
}

// Set inserts or replaces the entity at id, appending to the order the
// first time id is seen.
func (c *SystemConfiguration) Set(id string, entity Entity) {
	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = entity
}

// Delete removes id from the configuration. A no-op if absent.
func (c *SystemConfiguration) Delete(id string) {
	if _, exists := c.entries[id]; !exists {
		return
	}
	delete(c.entries, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the entity at id and whether it was present.
func (c *SystemConfiguration) Get(id string) (Entity, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Has reports whether id is present.
func (c *SystemConfiguration) Has(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// Len reports the number of entities.
func (c *SystemConfiguration) Len() int { return len(c.order) }

// IDs returns the entity ids in insertion order.
func (c *SystemConfiguration) IDs() []string {
	return append([]string(nil), c.order...)
}

// Clone produces a deep, independent copy, used to snapshot the
// previous configuration before a scan carves its missing set out of it.
func (c *SystemConfiguration) Clone() *SystemConfiguration {
	clone := NewSystemConfiguration()
	for _, id := range c.order {
		entity := c.entries[id]
		entity.Body = entity.Body.Clone()
		clone.Set(id, entity)
	}
	return clone
}

// MarshalJSON writes entities as a single JSON object keyed by id, in
// insertion order, so that two scans producing the same entities in the
// same order serialize to byte-identical output.
func (c *SystemConfiguration) MarshalJSON() ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')
	for i, id := range c.order {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		valJSON, err := c.entries[id].Body.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("schema: marshaling entity %q: %w", id, err)
		}
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON restores a configuration from the persisted snapshot
// format. Only the Body is recoverable from disk; Path/Type/etc. are
// re-derived by the orchestrator's "retained" handling on the next scan
// (the persisted file only needs to support the "was there before"
// comparison, not full entity reconstruction).
func (c *SystemConfiguration) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// Recover key order from the raw byte stream, since Go's
	// map[string]json.RawMessage decoding above loses it.
	order, err := objectKeyOrder(data)
	if err != nil {
		return err
	}

	*c = *NewSystemConfiguration()
	for _, id := range order {
		var body Value
		if err := json.Unmarshal(raw[id], &body); err != nil {
			return fmt.Errorf("schema: parsing persisted entity %q: %w", id, err)
		}
		entity := Entity{ID: id, Body: body}
		// PowerState must survive the round trip: the power gate
		// consults it when deciding whether a previous-boot entity that
		// has not yet re-probed may be pruned.
		if _, fields, ok := body.Object(); ok {
			if ps, ok := fields["PowerState"]; ok {
				entity.PowerState, _ = ps.Scalar()
			}
		}
		c.Set(id, entity)
	}
	return nil
}

func objectKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("schema: expected JSON object")
	}

	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("schema: expected object key")
		}
		order = append(order, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return order, nil
}
