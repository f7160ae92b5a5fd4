// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"log/slog"
	"sort"

	"github.com/bmc-tools/entity-manager/schema"
)

// InterestSet is the union of all interface names mentioned on the
// left-hand side of any probe expression across all templates,
// computed once at startup by the template store.
type InterestSet map[string]struct{}

// NewInterestSet builds an InterestSet from a slice of interface names.
func NewInterestSet(interfaces []string) InterestSet {
	set := make(InterestSet, len(interfaces))
	for _, name := range interfaces {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the interest set.
func (s InterestSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Mirror holds the current view of detector objects whose interfaces
// intersect the interest set. Mirror is driven exclusively by the
// single-threaded scheduler and performs no locking of its own.
type Mirror struct {
	interest InterestSet
	logger   *slog.Logger

	detectors  map[string]schema.Detector // keyed by DetectorPath.String()
	generation int64

	dirty chan struct{} // capacity 1, coalesced "something changed" pulse
}

// New creates a Mirror that only retains interfaces named in interest.
func New(interest InterestSet, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		interest:  interest,
		logger:    logger,
		detectors: make(map[string]schema.Detector),
		dirty:     make(chan struct{}, 1),
	}
}

// Dirty returns the channel that receives a coalesced pulse whenever
// the mirror's contents may have changed. Reading the channel drains
// at most one pending pulse; multiple mutations between reads collapse
// into a single pulse, matching the debounce layer's coalescing
// behavior.
func (m *Mirror) Dirty() <-chan struct{} { return m.dirty }

func (m *Mirror) pulse() {
	m.generation++
	select {
	case m.dirty <- struct{}{}:
	default:
	}
}

// filterInterest returns only the interfaces (and their properties)
// that belong to the interest set. A nil/empty result means the
// object contributed nothing the probe evaluator could ever read.
func (m *Mirror) filterInterest(interfaces map[string]schema.InterfaceProperties) map[string]schema.InterfaceProperties {
	var filtered map[string]schema.InterfaceProperties
	for name, props := range interfaces {
		if !m.interest.Contains(name) {
			continue
		}
		if filtered == nil {
			filtered = make(map[string]schema.InterfaceProperties)
		}
		filtered[name] = props
	}
	return filtered
}

// OnInterfacesAdded merges newly published interfaces into the
// detector at path, retaining only interest-set interfaces. A no-op
// (no pulse) if none of the added interfaces are of interest.
func (m *Mirror) OnInterfacesAdded(path schema.DetectorPath, interfaces map[string]schema.InterfaceProperties) {
	filtered := m.filterInterest(interfaces)
	if len(filtered) == 0 {
		return
	}

	key := path.String()
	existing, had := m.detectors[key]
	if !had {
		existing = schema.Detector{Path: path, Interfaces: make(map[string]schema.InterfaceProperties)}
	}
	for name, props := range filtered {
		existing.Interfaces[name] = props
	}
	m.detectors[key] = existing
	m.pulse()
}

// OnInterfacesRemoved drops the named interfaces from the detector at
// path. If the detector has no remaining interest-set interfaces, it
// is removed from the mirror entirely.
func (m *Mirror) OnInterfacesRemoved(path schema.DetectorPath, interfaceNames []string) {
	key := path.String()
	existing, ok := m.detectors[key]
	if !ok {
		return
	}

	changed := false
	for _, name := range interfaceNames {
		if _, exists := existing.Interfaces[name]; exists {
			delete(existing.Interfaces, name)
			changed = true
		}
	}
	if !changed {
		return
	}

	if len(existing.Interfaces) == 0 {
		delete(m.detectors, key)
	} else {
		m.detectors[key] = existing
	}
	m.pulse()
}

// OnPropertiesChanged updates a subset of properties on one interface
// of the detector at path. A no-op if the interface is not of interest
// or the detector is not currently mirrored (the bus is expected to
// have sent InterfacesAdded first).
func (m *Mirror) OnPropertiesChanged(path schema.DetectorPath, interfaceName string, properties map[string]schema.PropertyValue) {
	if !m.interest.Contains(interfaceName) {
		return
	}
	key := path.String()
	existing, ok := m.detectors[key]
	if !ok {
		return
	}
	props, ok := existing.Interfaces[interfaceName]
	if !ok {
		props = make(schema.InterfaceProperties)
	}
	for name, value := range properties {
		props[name] = value
	}
	existing.Interfaces[interfaceName] = props
	m.detectors[key] = existing
	m.pulse()
}

// OnNameOwnerChanged drops every mirrored object published by service
// when the bus reports it has lost its unique-name owner (service
// crashed, disconnected, or was replaced). Unique-name connections
// themselves are filtered out by the caller before this is invoked.
func (m *Mirror) OnNameOwnerChanged(service string, hasOwner bool) {
	if hasOwner {
		return
	}
	changed := false
	for key, detector := range m.detectors {
		if detector.Path.Service == service {
			delete(m.detectors, key)
			changed = true
		}
	}
	if changed {
		m.pulse()
	}
}

// Reset replaces the mirror's entire contents, used when the bus
// transport reconnects and re-issues a full GetManagedObjects scan.
func (m *Mirror) Reset(detectors []schema.Detector) {
	next := make(map[string]schema.Detector, len(detectors))
	for _, d := range detectors {
		filtered := m.filterInterest(d.Interfaces)
		if len(filtered) == 0 {
			continue
		}
		next[d.Path.String()] = schema.Detector{Path: d.Path, Interfaces: filtered}
	}
	m.detectors = next
	m.pulse()
}

// Snapshot returns an immutable view of the current mirror contents.
// Reading the snapshot is synchronous against the in-process cache —
// no bus round-trip.
//
// Detectors are ordered by path, giving a stable iteration order across
// calls regardless of Go's randomized map iteration. The probe
// evaluator relies on this for MATCH_ONE's first-in-stable-order rule
// and for scan determinism.
func (m *Mirror) Snapshot() Snapshot {
	detectors := make([]schema.Detector, 0, len(m.detectors))
	for _, d := range m.detectors {
		// Copy the interface and property maps: the On* callbacks
		// mutate the mirror's own maps in place.
		interfaces := make(map[string]schema.InterfaceProperties, len(d.Interfaces))
		for name, props := range d.Interfaces {
			copied := make(schema.InterfaceProperties, len(props))
			for k, v := range props {
				copied[k] = v
			}
			interfaces[name] = copied
		}
		detectors = append(detectors, schema.Detector{Path: d.Path, Interfaces: interfaces})
	}
	sort.Slice(detectors, func(i, j int) bool {
		return detectors[i].Path.String() < detectors[j].Path.String()
	})
	return Snapshot{generation: m.generation, detectors: detectors}
}
