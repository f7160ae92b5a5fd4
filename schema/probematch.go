// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "sort"

// ProbeMatch binds a template's placeholders to concrete detector
// property values for one successful probe evaluation.
type ProbeMatch struct {
	Template *Template

	// Replacements maps placeholder name to its bound scalar value.
	// Values are stored as Value so numeric placeholders retain their
	// numeric-ness for the substitution engine's arithmetic step.
	Replacements map[string]Value

	// SourceDetectors is the set of detector paths whose properties
	// contributed to this match, used to form the ProbePath
	// association back to the physical device.
	SourceDetectors []DetectorPath
}

// SortedReplacementKey renders the match's replacements as a
// deterministic string for entity id synthesis. Keys are sorted so that
// two matches with the same bindings in different map iteration order
// produce identical ids.
func (m ProbeMatch) SortedReplacementKey() string {
	keys := make([]string, 0, len(m.Replacements))
	for k := range m.Replacements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ","
		}
		scalar, _ := m.Replacements[k].Scalar()
		out += k + "=" + scalar
	}
	return out
}
