// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package debounce

import (
	"sync"
	"time"

	"github.com/bmc-tools/entity-manager/clock"
)

// powerDependentStates are the template PowerState values that defer
// pruning until the machine has settled in an observed power-on state.
var powerDependentStates = map[string]bool{
	"On":       true,
	"BiosPost": true,
}

// IsPowerDependent reports whether powerState names a template
// PowerState that is subject to the Power Gate.
func IsPowerDependent(powerState string) bool {
	return powerDependentStates[powerState]
}

// PowerGate defers pruning of missing power-dependent entities until
// the machine has been observed powered on and a settle window has
// elapsed since that transition. It is safe for concurrent use.
type PowerGate struct {
	clk    clock.Clock
	settle time.Duration

	mu        sync.Mutex
	poweredOn bool
	settled   bool
	timer     *clock.Timer
}

// NewPowerGate returns a PowerGate that requires settle to elapse,
// undisturbed, after a power-on transition before authorizing pruning.
func NewPowerGate(clk clock.Clock, settle time.Duration) *PowerGate {
	return &PowerGate{clk: clk, settle: settle}
}

// Observe records the machine's currently observed power state. A
// transition to powered-on starts the one-shot settle timer; a
// transition to powered-off clears settled, so the next power-on must
// settle again before pruning resumes.
func (g *PowerGate) Observe(poweredOn bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if poweredOn == g.poweredOn {
		return
	}
	g.poweredOn = poweredOn

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}

	if !poweredOn {
		g.settled = false
		return
	}

	g.settled = false
	g.timer = g.clk.AfterFunc(g.settle, g.markSettled)
}

func (g *PowerGate) markSettled() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settled = true
}

// MayPrune reports whether an entity declaring powerState may be
// pruned right now. Entities whose PowerState is not power-dependent
// are always prunable; power-dependent entities require the machine to
// be currently observed powered on and settled since that transition.
func (g *PowerGate) MayPrune(powerState string) bool {
	if !IsPowerDependent(powerState) {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poweredOn && g.settled
}
