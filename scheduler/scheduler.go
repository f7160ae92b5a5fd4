// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler is the daemon's single-threaded cooperative
// driver: one goroutine consuming dirty pulses, timer fires, and
// rescan requests off channels, and running at most one scan at a
// time. Bus RPCs (AddObject, Delete, SetProperty, ReScan) are instead
// serialized by busproject.Projector's own mutex — request/response
// calls must block their caller until applied, so routing them through
// this loop would buy a reply channel per call and nothing else.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/bmc-tools/entity-manager/busproject"
	"github.com/bmc-tools/entity-manager/debounce"
	"github.com/bmc-tools/entity-manager/mirror"
	"github.com/bmc-tools/entity-manager/persist"
	"github.com/bmc-tools/entity-manager/scan"
	"github.com/bmc-tools/entity-manager/schema"
	"github.com/bmc-tools/entity-manager/topology"
)

// Scheduler owns every piece of process-wide mutable state reachable
// from the run loop: the current System Configuration, the power-gate
// latch, and the rescan latch folded into debounce.Debouncer. Nothing
// here lives at file scope.
type Scheduler struct {
	Mirror    *mirror.Mirror
	Debouncer *debounce.Debouncer
	PowerGate *debounce.PowerGate
	Templates []*schema.Template
	Projector *busproject.Projector
	Persist   *persist.Store
	Logger    *slog.Logger

	// Power, when set, is consulted at the start of every scan to
	// refresh the Power Gate. Nil leaves the gate in its conservative
	// never-observed-powered-on state (see MirrorPowerObserver).
	Power PowerObserver

	current *schema.SystemConfiguration
}

// SetPrevious seeds the scheduler's starting System Configuration —
// the persisted "previous" state loaded at startup — before the
// first call to Run. Safe to call only before Run begins.
func (s *Scheduler) SetPrevious(previous *schema.SystemConfiguration) {
	s.current = previous
}

// PowerObserver reports chassis power state. main wires it to whatever
// external source publishes that observation; the scheduler itself
// never reads power hardware.
type PowerObserver interface {
	// PoweredOn reports the machine's currently observed power state.
	PoweredOn(ctx context.Context) (bool, error)
}

// Run drives the scheduler until ctx is canceled. It performs one scan
// immediately on entry (so the bus is populated before the first
// client connects), then reacts to Mirror dirty pulses (forwarded into
// the debouncer), the debouncer's scan trigger, and ReScan requests
// routed through rescanCh.
func (s *Scheduler) Run(ctx context.Context, rescanCh <-chan struct{}) error {
	s.runScan(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.Mirror.Dirty():
			s.Debouncer.Pulse()

		case <-rescanCh:
			s.Debouncer.Pulse()

		case <-s.Debouncer.Fire():
			s.Debouncer.ScanStarted()
			s.runScan(ctx)
			s.Debouncer.ScanFinished()
		}
	}
}

// runScan executes one fixed-point scan, merges back any missing
// entity the power gate says is not yet prunable, persists the
// result, and projects it onto the bus — in that order, so the
// persisted snapshot always reflects exactly the configuration being
// published.
func (s *Scheduler) runScan(ctx context.Context) {
	if s.Power != nil {
		poweredOn, err := s.Power.PoweredOn(ctx)
		if err != nil {
			s.Logger.Warn("scheduler: reading power state failed, leaving power gate unchanged", "error", err)
		} else {
			s.PowerGate.Observe(poweredOn)
		}
	}

	snapshot := s.Mirror.Snapshot()
	result := scan.Run(s.Templates, snapshot, s.current, s.Logger)

	for _, missing := range result.Missing {
		if !s.PowerGate.MayPrune(missing.PowerState) {
			result.Configuration.Set(missing.ID, missing)
			s.Logger.Debug("scheduler: deferring prune of power-dependent entity",
				"entity", missing.ID, "power_state", missing.PowerState)
		}
	}

	s.current = result.Configuration

	entities := make([]schema.Entity, 0, s.current.Len())
	for _, id := range s.current.IDs() {
		entity, _ := s.current.Get(id)
		entities = append(entities, entity)
	}
	edges := topology.BuildEdges(entities)

	if s.Persist != nil {
		if err := s.Persist.Save(s.current); err != nil {
			s.Logger.Error("scheduler: persisting system configuration failed", "error", err)
		}
	}

	if s.Projector != nil {
		s.Projector.Project(s.current, edges)
	}

	s.Logger.Info("scheduler: scan complete",
		"entities", s.current.Len(), "added", len(result.Added), "retained", len(result.Retained))
}

// ObservePower feeds a freshly observed power state into the Power
// Gate outside the per-scan refresh from Power. cmd/entity-manager
// does not call it; it relies on Power alone.
func (s *Scheduler) ObservePower(poweredOn bool) {
	s.PowerGate.Observe(poweredOn)
}
