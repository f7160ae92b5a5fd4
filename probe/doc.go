// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package probe parses and evaluates the probe expression language
// templates use to describe when they apply:
//
//	probe      := atom (op atom)*
//	atom       := "TRUE" | "FALSE" | "FOUND(" interface ")"
//	            | "MATCH_ONE" "(" matchExpr ")"
//	            | interface "(" kv (,kv)* ")"
//	op         := "AND" | "OR"
//	kv         := key ":" value
//	value      := literal | regex-literal
//
// The parser is hand-written (lex.go tokenizes, parse.go builds an AST
// by recursive descent), the same small-parser-over-a-structured-string
// style. Evaluation (eval.go) is pure: it takes a mirror.Snapshot and
// returns the probe matches it yields, holding no state of its own.
package probe
