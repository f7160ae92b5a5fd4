// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import "github.com/bmc-tools/entity-manager/schema"

type exprKind int

const (
	exprTrue exprKind = iota
	exprFalse
	exprFound
	exprMatchOne
	exprInterface
	exprAnd
	exprOr
)

// expr is the probe AST. A single struct covers every production in
// the grammar; which fields are populated depends on kind.
type expr struct {
	kind exprKind

	interfaceName string // exprFound, exprInterface
	kvs           []kvClause // exprInterface

	inner *expr // exprMatchOne

	left, right *expr // exprAnd, exprOr
}

// kvClause is one "key: value" pair inside an interface atom's
// argument list. value is either a literal scalar or a regex pattern.
// The tagging is lexical, decided at parse time, never at evaluation
// time: slash-delimited means regex, anything else is a literal.
type kvClause struct {
	key     string
	isRegex bool
	regex   string
	literal schema.Value
}
