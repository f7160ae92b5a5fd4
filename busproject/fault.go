// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

import "fmt"

// FaultKind classifies a boundary error reported back to a bus client.
// Boundary errors are always reported, never silently swallowed.
type FaultKind string

const (
	// FaultInvalidArgument covers client-supplied data the projector
	// rejects outright: a schema-validation failure on AddObject, a
	// SetProperty against an interface outside the writable list.
	FaultInvalidArgument FaultKind = "invalid_argument"

	// FaultInternal covers a request that is well-formed but cannot be
	// satisfied because of an inconsistency in server-side state (e.g.
	// Delete invoked on an interface that has already vanished).
	FaultInternal FaultKind = "internal"

	// FaultNotFound covers an AddObject or SetProperty request against
	// an entity path the projector has no record of.
	FaultNotFound FaultKind = "not_found"
)

// Fault is the boundary-error type every busproject action handler
// returns on failure, carrying a machine-readable Kind alongside the
// message.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (f *Fault) Error() string { return string(f.Kind) + ": " + f.Message }

func invalidArgument(format string, args ...any) *Fault {
	return &Fault{Kind: FaultInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func internalFault(format string, args ...any) *Fault {
	return &Fault{Kind: FaultInternal, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Fault {
	return &Fault{Kind: FaultNotFound, Message: fmt.Sprintf(format, args...)}
}
