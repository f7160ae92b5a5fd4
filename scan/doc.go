// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package scan drives the fixed-point reconciliation loop that turns a
// template library and a detector mirror snapshot into a new system
// configuration.
//
// Each pass evaluates every still-unresolved template's probe against
// the snapshot, plus a growing virtual overlay of the interfaces
// exposed by entities already materialized earlier in this same scan
// (so interdependent templates resolve in dependency order rather than
// needing an explicit ordering declaration). A template is moved out
// of the unresolved set the moment its probe yields at least one
// match; zero matches leave it unresolved for the next pass. The scan
// terminates when a full pass resolves nothing new.
//
// Entities whose id was present in the previous configuration but
// absent from this scan's output are reported as Missing rather than
// dropped outright — pruning them is a policy decision the debounce
// package's PowerGate makes, not something the orchestrator decides
// for itself.
package scan
