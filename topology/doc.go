// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package topology infers inter-board association edges from the
// hints carried in an entity's Exposes list.
//
// A hint is a sub-entity inside Exposes whose Type names a port
// direction ("...Upstream", "...Downstream" — matched as a
// case-insensitive suffix on the sub-entity's Type, mirroring how the
// rest of the body uses Type suffixes like ".Fan" or ".PowerSupply" to
// tag a role) and carries a "Port" scalar identifying which physical
// connector it names. Two boards exposing matching port names on
// opposite directions are wired together: the upstream board gets a
// forward edge to the downstream board and vice versa.
//
// Edges are aggregated per source board and returned for the caller to
// attach as that board's Association.Definitions interface.
package topology
