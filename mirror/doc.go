// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror maintains a live, in-process snapshot of every
// detector object on the bus whose advertised interfaces intersect a
// precomputed "probe-relevant" interest set.
//
// The mirror itself never talks to the bus transport — it is fed by
// whatever component owns the subscription (InterfacesAdded,
// InterfacesRemoved, NameOwnerChanged, PropertiesChanged) or, for
// detector services with no subscription channel, by the Poller.
// Every mutating call emits a coalesced "dirty" pulse on a buffered
// channel; callers read Dirty() and hand pulses to the debounce layer.
package mirror
