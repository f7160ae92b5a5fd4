// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus defines the transport-agnostic seam between the bus
// projector and the object bus. The real D-Bus object-mapper transport
// belongs to the platform, not this daemon; Server is the interface
// the projector talks to, and the concrete Unix-socket/CBOR transport
// in this package is the one implementation the repo ships.
package bus

import (
	"context"

	"github.com/bmc-tools/entity-manager/schema"
)

// ActionFunc handles one client-invoked bus method. raw is the full
// encoded request, including routing fields the transport already
// consumed; handlers decode their own action-specific fields from it.
//
// A non-nil return value is sent back to the caller as the response's
// data; a non-nil error is reported as a fault.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Server is the interface the bus projector uses to publish objects
// and to serve client-invoked actions (AddObject, Delete, ReScan,
// SetProperty, GetManagedObjects). A transport implements Server
// once; the projector never depends on the wire format.
type Server interface {
	// Publish makes interfaces available at path, replacing whatever
	// was previously published there. Returns a Handle identifying the
	// slot for weak-reference tracking.
	Publish(path string, interfaces map[string]schema.InterfaceProperties) Handle

	// Unpublish removes every interface published at path and expires
	// its Handle.
	Unpublish(path string)

	// SetProperty updates one already-published property without
	// altering the rest of the interface. Used by the projector's
	// SetProperty action to apply a client's write.
	SetProperty(path, iface, property string, value schema.Value) error

	// HandleAction registers the handler invoked when a client calls
	// the given action. Panics if action is already registered.
	HandleAction(action string, handler ActionFunc)

	// Serve starts accepting requests and blocks until ctx is done.
	Serve(ctx context.Context) error
}

// Handle is a weak reference to a published slot. The projector holds
// Handles instead of strong references so a slot recycled by Delete
// can be told apart from a slot still serving the entity that
// originally claimed it.
type Handle struct {
	slot       *slot
	generation uint64
}

// Expired reports whether the slot this Handle was issued for has
// since been unpublished.
func (h Handle) Expired() bool {
	if h.slot == nil {
		return true
	}
	return h.slot.generation() != h.generation
}

// slot is the server-side object a Handle refers back to. generation
// increments when the slot's path is unpublished (republishing the
// same path keeps the slot and its generation), the same "write a token, check it later" idiom as a
// watchdog state file's timestamp — except the token lives in memory
// since the transport owns the strong reference.
type slot struct {
	gen uint64
}

func newSlot() *slot { return &slot{gen: 1} }

func (s *slot) generation() uint64 {
	if s == nil {
		return 0
	}
	return s.gen
}

func (s *slot) handle() Handle { return Handle{slot: s, generation: s.gen} }

// invalidate bumps the slot's generation, expiring every Handle issued
// for its previous generation.
func (s *slot) invalidate() { s.gen++ }
