// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bmc-tools/entity-manager/schema"
)

// Parse parses a probe expression string into an AST. On error, the
// caller should log the error and treat the expression as FALSE rather
// than aborting.
func Parse(text string) (*expr, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, fmt.Errorf("probe: empty expression")
	}

	result, err := p.parseProbe()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("probe: unexpected trailing token after expression")
	}
	return result, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// parseProbe implements `atom (op atom)*`, left-to-right with no
// precedence beyond textual order.
func (p *parser) parseProbe() (*expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for p.tok.kind == tokIdent && (strings.EqualFold(p.tok.text, "AND") || strings.EqualFold(p.tok.text, "OR")) {
		op := strings.ToUpper(p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		if op == "AND" {
			left = &expr{kind: exprAnd, left: left, right: right}
		} else {
			left = &expr{kind: exprOr, left: left, right: right}
		}
	}
	return left, nil
}

func (p *parser) parseAtom() (*expr, error) {
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("probe: expected identifier, got token kind %d", p.tok.kind)
	}
	name := p.tok.text

	switch strings.ToUpper(name) {
	case "TRUE":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &expr{kind: exprTrue}, nil
	case "FALSE":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &expr{kind: exprFalse}, nil
	case "FOUND":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIdent {
			return nil, fmt.Errorf("probe: FOUND() expects an interface name")
		}
		iface := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return &expr{kind: exprFound, interfaceName: iface}, nil
	case "MATCH_ONE":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		inner, err := p.parseProbe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return &expr{kind: exprMatchOne, inner: inner}, nil
	}

	// Otherwise: interface "(" kv (,kv)* ")"
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	hasBrace := false
	if p.tok.kind == tokLBrace {
		hasBrace = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	var kvs []kvClause
	for p.tok.kind != tokRParen && p.tok.kind != tokRBrace {
		kv, err := p.parseKV()
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if hasBrace {
		if err := p.expect(tokRBrace); err != nil {
			return nil, err
		}
	}
	if err := p.expect(tokRParen); err != nil {
		return nil, err
	}

	return &expr{kind: exprInterface, interfaceName: name, kvs: kvs}, nil
}

func (p *parser) parseKV() (kvClause, error) {
	if p.tok.kind != tokIdent && p.tok.kind != tokString {
		return kvClause{}, fmt.Errorf("probe: expected key, got token kind %d", p.tok.kind)
	}
	key := p.tok.text
	if err := p.advance(); err != nil {
		return kvClause{}, err
	}
	if err := p.expect(tokColon); err != nil {
		return kvClause{}, err
	}

	switch p.tok.kind {
	case tokRegex:
		regex := p.tok.text
		if err := p.advance(); err != nil {
			return kvClause{}, err
		}
		return kvClause{key: key, isRegex: true, regex: regex}, nil
	case tokString:
		val := p.tok.text
		if err := p.advance(); err != nil {
			return kvClause{}, err
		}
		return kvClause{key: key, literal: schema.String(val)}, nil
	case tokIdent:
		text := p.tok.text
		if err := p.advance(); err != nil {
			return kvClause{}, err
		}
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return kvClause{key: key, literal: schema.Int(i)}, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return kvClause{key: key, literal: schema.Float(f)}, nil
		}
		return kvClause{key: key, literal: schema.String(text)}, nil
	default:
		return kvClause{}, fmt.Errorf("probe: expected value, got token kind %d", p.tok.kind)
	}
}

func (p *parser) expect(kind tokenKind) error {
	if p.tok.kind != kind {
		return fmt.Errorf("probe: unexpected token kind %d, want %d", p.tok.kind, kind)
	}
	return p.advance()
}
