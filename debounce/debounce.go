// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package debounce

import (
	"sync"
	"time"

	"github.com/bmc-tools/entity-manager/clock"
)

// Debouncer coalesces dirty pulses into scan triggers. It is safe for
// concurrent use.
type Debouncer struct {
	clk    clock.Clock
	window time.Duration
	fire   chan struct{}

	mu       sync.Mutex
	timer    *clock.Timer
	inFlight bool
	rescan   bool
}

// New returns a Debouncer that coalesces pulses arriving within window
// of each other into a single scan trigger on Fire.
func New(clk clock.Clock, window time.Duration) *Debouncer {
	return &Debouncer{
		clk:    clk,
		window: window,
		fire:   make(chan struct{}, 1),
	}
}

// Fire delivers one value each time a scan should run. The channel has
// capacity 1; a scheduler that drains it promptly never misses a
// trigger even if Fire is not read between two expiries.
func (d *Debouncer) Fire() <-chan struct{} { return d.fire }

// Pulse restarts the coalescing timer. Scan runs on the timer's next
// uninterrupted expiry.
func (d *Debouncer) Pulse() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clk.AfterFunc(d.window, d.expire)
}

// expire runs when the coalescing timer fires undisturbed for window.
// If a scan is already running, the expiry is recorded as a rescan
// request instead of triggering a second concurrent scan.
func (d *Debouncer) expire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight {
		d.rescan = true
		return
	}
	d.signalLocked()
}

// ScanStarted marks a scan as in flight. Call before the Scan
// Orchestrator runs.
func (d *Debouncer) ScanStarted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight = true
}

// ScanFinished marks the in-flight scan complete. If a pulse latched a
// rescan request while the scan ran, ScanFinished immediately signals
// one more scan.
func (d *Debouncer) ScanFinished() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight = false
	if d.rescan {
		d.rescan = false
		d.signalLocked()
	}
}

// signalLocked delivers a non-blocking trigger on fire. Must be called
// with mu held.
func (d *Debouncer) signalLocked() {
	select {
	case d.fire <- struct{}{}:
	default:
	}
}
