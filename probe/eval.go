// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"regexp"

	"github.com/bmc-tools/entity-manager/mirror"
	"github.com/bmc-tools/entity-manager/schema"
)

// candidate is a partial match accumulated while folding the AST:
// bindings are the placeholder->value pairs contributed so far, and
// sources are the detector paths that contributed them.
type candidate struct {
	bindings map[string]schema.Value
	sources  []schema.DetectorPath
}

func (c candidate) clone() candidate {
	bindings := make(map[string]schema.Value, len(c.bindings))
	for k, v := range c.bindings {
		bindings[k] = v
	}
	return candidate{bindings: bindings, sources: append([]schema.DetectorPath(nil), c.sources...)}
}

// Evaluate runs a parsed probe expression against a snapshot and
// returns the resulting probe matches bound to tmpl. Evaluation is
// pure: it reads only from the snapshot and holds no state.
func Evaluate(ast *expr, tmpl *schema.Template, snapshot mirror.Snapshot) ([]schema.ProbeMatch, error) {
	candidates, err := evalExpr(ast, snapshot)
	if err != nil {
		return nil, err
	}
	matches := make([]schema.ProbeMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, schema.ProbeMatch{
			Template:        tmpl,
			Replacements:    c.bindings,
			SourceDetectors: c.sources,
		})
	}
	return matches, nil
}

func evalExpr(e *expr, snapshot mirror.Snapshot) ([]candidate, error) {
	switch e.kind {
	case exprTrue:
		return []candidate{{bindings: map[string]schema.Value{}}}, nil

	case exprFalse:
		return nil, nil

	case exprFound:
		if len(snapshot.FindInterface(e.interfaceName)) == 0 {
			return nil, nil
		}
		return []candidate{{bindings: map[string]schema.Value{}}}, nil

	case exprInterface:
		return evalInterfaceAtom(e, snapshot)

	case exprMatchOne:
		inner, err := evalExpr(e.inner, snapshot)
		if err != nil {
			return nil, err
		}
		if len(inner) == 0 {
			return nil, nil
		}
		return inner[:1], nil

	case exprAnd:
		return evalAnd(e, snapshot)

	case exprOr:
		return evalOr(e, snapshot)
	}
	return nil, fmt.Errorf("probe: unknown expression kind %d", e.kind)
}

func evalInterfaceAtom(e *expr, snapshot mirror.Snapshot) ([]candidate, error) {
	var out []candidate
	for _, detector := range snapshot.FindInterface(e.interfaceName) {
		props := detector.Interfaces[e.interfaceName]
		ok, err := matchesAllClauses(e.kvs, props)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		bindings := make(map[string]schema.Value, len(props))
		for k, v := range props {
			bindings[k] = v
		}
		out = append(out, candidate{bindings: bindings, sources: []schema.DetectorPath{detector.Path}})
	}
	return out, nil
}

func matchesAllClauses(kvs []kvClause, props schema.InterfaceProperties) (bool, error) {
	for _, kv := range kvs {
		actual, ok := props[kv.key]
		if !ok {
			return false, nil
		}
		matched, err := matchesClause(kv, actual)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func matchesClause(kv kvClause, actual schema.Value) (bool, error) {
	if kv.isRegex {
		// Anchored: the pattern must match the whole string form.
		re, err := regexp.Compile(`^(?:` + kv.regex + `)$`)
		if err != nil {
			return false, fmt.Errorf("probe: invalid regex %q for key %q: %w", kv.regex, kv.key, err)
		}
		scalar, ok := actual.Scalar()
		if !ok {
			return false, nil
		}
		return re.MatchString(scalar), nil
	}

	want, ok := kv.literal.Scalar()
	if !ok {
		return false, nil
	}
	got, ok := actual.Scalar()
	if !ok {
		return false, nil
	}
	return want == got, nil
}

// evalAnd computes the Cartesian product of left and right candidates,
// merging bindings; a pair where the same key is bound to conflicting
// values is rejected.
func evalAnd(e *expr, snapshot mirror.Snapshot) ([]candidate, error) {
	left, err := evalExpr(e.left, snapshot)
	if err != nil {
		return nil, err
	}
	if len(left) == 0 {
		return nil, nil
	}
	right, err := evalExpr(e.right, snapshot)
	if err != nil {
		return nil, err
	}
	if len(right) == 0 {
		return nil, nil
	}

	var out []candidate
	for _, l := range left {
		for _, r := range right {
			merged, ok := mergeCandidates(l, r)
			if ok {
				out = append(out, merged)
			}
		}
	}
	return out, nil
}

func mergeCandidates(a, b candidate) (candidate, bool) {
	merged := a.clone()
	for k, v := range b.bindings {
		if existing, exists := merged.bindings[k]; exists {
			existingScalar, _ := existing.Scalar()
			newScalar, _ := v.Scalar()
			if existingScalar != newScalar {
				return candidate{}, false
			}
			continue
		}
		merged.bindings[k] = v
	}
	merged.sources = append(merged.sources, b.sources...)
	return merged, true
}

// evalOr is the union of both sides' match sets.
func evalOr(e *expr, snapshot mirror.Snapshot) ([]candidate, error) {
	left, err := evalExpr(e.left, snapshot)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(e.right, snapshot)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
