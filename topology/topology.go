// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"sort"
	"strings"

	"github.com/bmc-tools/entity-manager/schema"
)

// hint is one port-direction marker found in an entity's Exposes list.
type hint struct {
	entityID   string
	entityPath string
	port       string
	upstream   bool
}

// BuildEdges infers topology association edges across entities by
// matching "...Upstream"/"...Downstream" port hints in their Exposes
// lists. The result maps an entity id to the edges that entity's
// Association.Definitions interface should carry; entities that
// contribute no hints and are not the peer of any matched hint are
// absent from the map.
func BuildEdges(entities []schema.Entity) map[string][]schema.Association {
	var hints []hint
	for _, e := range entities {
		hints = append(hints, entityHints(e)...)
	}

	byPort := make(map[string][]hint)
	for _, h := range hints {
		byPort[h.port] = append(byPort[h.port], h)
	}

	edges := make(map[string][]schema.Association)
	for port, group := range byPort {
		var ups, downs []hint
		for _, h := range group {
			if h.upstream {
				ups = append(ups, h)
			} else {
				downs = append(downs, h)
			}
		}
		sort.Slice(ups, func(i, j int) bool { return ups[i].entityID < ups[j].entityID })
		sort.Slice(downs, func(i, j int) bool { return downs[i].entityID < downs[j].entityID })

		for _, up := range ups {
			for _, down := range downs {
				if up.entityID == down.entityID {
					continue
				}
				edges[up.entityID] = append(edges[up.entityID], schema.Association{
					Forward: "downstream",
					Reverse: "upstream",
					Peer:    down.entityPath,
				})
				edges[down.entityID] = append(edges[down.entityID], schema.Association{
					Forward: "upstream",
					Reverse: "downstream",
					Peer:    up.entityPath,
				})
			}
		}
		_ = port
	}

	for id, e := range edges {
		sort.Slice(e, func(i, j int) bool {
			if e[i].Forward != e[j].Forward {
				return e[i].Forward < e[j].Forward
			}
			return e[i].Peer < e[j].Peer
		})
		edges[id] = e
	}

	return edges
}

// entityHints extracts the upstream/downstream port hints from one
// entity's Exposes list.
func entityHints(e schema.Entity) []hint {
	var out []hint
	for _, item := range e.Exposes {
		_, fields, ok := item.Object()
		if !ok {
			continue
		}
		typ, ok := fields["Type"]
		if !ok {
			continue
		}
		typeName, ok := typ.String()
		if !ok {
			continue
		}

		var upstream bool
		switch {
		case strings.HasSuffix(strings.ToLower(typeName), "upstream"):
			upstream = true
		case strings.HasSuffix(strings.ToLower(typeName), "downstream"):
			upstream = false
		default:
			continue
		}

		portField, ok := fields["Port"]
		if !ok {
			continue
		}
		port, ok := portField.Scalar()
		if !ok || port == "" {
			continue
		}

		out = append(out, hint{
			entityID:   e.ID,
			entityPath: e.Path,
			port:       port,
			upstream:   upstream,
		})
	}
	return out
}
