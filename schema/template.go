// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Template is an immutable, fully-loaded configuration template.
// Body holds the complete parsed JSON document (including
// Name, Probe, Exposes, and any free-form fields); Name/Probe/Exposes
// are pulled out into typed fields for convenient access, but Body
// remains the source of truth for substitution and projection, since
// templates carry arbitrary interface blocks the engine does not know
// the shape of ahead of time.
type Template struct {
	// SourceFile is the path the template was loaded from. Used for
	// diagnostics and to decide which of a base/overlay pair wins
	// (same basename).
	SourceFile string

	// Name may itself contain placeholders (resolved once a probe
	// match is available).
	Name string

	// Probe is the unparsed probe expression text (or array of
	// expressions joined by AND/OR operator tokens). Kept as text
	// here; the probe package parses it into an AST lazily so that a
	// template with an invalid expression can still be loaded and
	// reported, rather than rejected outright — at evaluation time an
	// unparsable probe is logged and treated as FALSE.
	Probe RawProbe

	// Exposes is the ordered list of sub-entity bodies, substituted
	// verbatim along with the rest of Body during instantiation.
	Exposes []Value

	// Body is the complete template document as a recursive Value,
	// used by the substitution engine to walk every string leaf.
	Body Value

	// PropertyMapping maps, for each interface name in Body, the set
	// of (property name -> source field name) pairs recorded whenever
	// a leaf value is a string of the form "$<source-field>" nested
	// inside that interface's block.
	PropertyMapping map[string]map[string]string

	// ProbeInterfaces is the set of interface names this template's
	// probe expression reads from, contributing to the global
	// probe-interest set computed by the Template Store.
	ProbeInterfaces map[string]struct{}

	// PowerState declares that this template's entity should be
	// pruned only while the machine is observed powered on. Empty
	// means the entity has no power dependency.
	PowerState string

	// Type is the inventory type used to build the bus path
	// (/inventory/system/<typeLower>/<name>); defaults to "Chassis"
	// when absent from Body.
	Type string

	// CustomDbusName, when true, opts the template out of name
	// sanitization, publishing the substituted Name verbatim.
	CustomDbusName bool

	// ParentChassis feeds the topology association builder.
	ParentChassis string
}

// RawProbe is either a single probe expression string or an ordered
// list of expression/operator tokens, exactly as it appears in the
// template JSON.
type RawProbe struct {
	Single string
	List   []string
}

func (p RawProbe) IsEmpty() bool { return p.Single == "" && len(p.List) == 0 }

// Text returns the probe expression as a single string for lexing. A
// list is joined with spaces; the AND/OR operators appear as their own
// list elements, so the joined form parses the same as a single
// expression string.
func (p RawProbe) Text() string {
	if len(p.List) > 0 {
		out := p.List[0]
		for _, tok := range p.List[1:] {
			out += " " + tok
		}
		return out
	}
	return p.Single
}
