// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package busproject reflects a System Configuration onto a bus.Server
// and serves the client-invoked actions clients use to extend and edit
// published entities.
//
// Projector.Project performs the read-side of the component: it
// publishes every entity in the configuration and unpublishes any path
// a prior Project call published that the configuration no longer
// contains.
// The remaining files implement the write side — AddObject, Delete,
// SetProperty, and ReScan — as bus.ActionFunc handlers registered on
// the same Projector, so both directions share the one entity table
// and one set of weak handles.
package busproject
