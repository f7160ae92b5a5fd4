// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import "github.com/bmc-tools/entity-manager/schema"

// Snapshot is an immutable view of the mirror's detector set at one
// point in time. The probe evaluator and scan orchestrator read
// against a Snapshot rather than the live Mirror so that a single
// scan pass sees a consistent view even though the real mirror may be
// mutated by the scheduler between pulses.
type Snapshot struct {
	generation int64
	detectors  []schema.Detector
}

// Generation returns the mirror's mutation counter at the time this
// snapshot was taken. Two snapshots taken from the same Mirror with the
// same generation carry identical contents; WithOverlay keeps the
// generation of the snapshot it extends while adding detectors.
func (s Snapshot) Generation() int64 { return s.generation }

// Detectors returns the mirrored detectors in stable order.
func (s Snapshot) Detectors() []schema.Detector { return s.detectors }

// WithOverlay returns a new Snapshot with additional synthetic
// detectors appended, used by the scan orchestrator to let later
// templates probe properties exposed by already-materialized entities
// within the same scan.
func (s Snapshot) WithOverlay(extra []schema.Detector) Snapshot {
	if len(extra) == 0 {
		return s
	}
	combined := make([]schema.Detector, 0, len(s.detectors)+len(extra))
	combined = append(combined, s.detectors...)
	combined = append(combined, extra...)
	return Snapshot{generation: s.generation, detectors: combined}
}

// FindInterface returns every detector exposing the named interface,
// in snapshot order.
func (s Snapshot) FindInterface(name string) []schema.Detector {
	var out []schema.Detector
	for _, d := range s.detectors {
		if d.HasInterface(name) {
			out = append(out, d)
		}
	}
	return out
}
