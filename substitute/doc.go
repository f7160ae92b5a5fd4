// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package substitute instantiates a template body against a probe
// match's bindings, producing the concrete JSON tree the bus projector
// publishes.
//
// Substitution walks every string leaf (and every object key) and, in
// order:
//
//  1. replaces every "$<placeholder>" run with the bound value's
//     string form;
//  2. if the resulting string matches "<int> <op> <int>" for
//     op ∈ {+, -, *, /, %}, evaluates it as signed 64-bit arithmetic
//     (division/modulo by zero leaves the string unchanged and logs);
//  3. otherwise leaves the string as-is.
//
// Numeric, boolean, and null leaves pass through untouched.
package substitute
