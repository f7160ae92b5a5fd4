// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package debounce

import (
	"testing"
	"time"

	"github.com/bmc-tools/entity-manager/clock"
)

func drained(t *testing.T, d *Debouncer) int {
	t.Helper()
	count := 0
	for {
		select {
		case <-d.Fire():
			count++
		default:
			return count
		}
	}
}

func TestDebouncerCoalescesBurstIntoOneScan(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	d := New(fake, 5*time.Second)

	d.Pulse()
	fake.Advance(1 * time.Second)
	d.Pulse()
	fake.Advance(1 * time.Second)
	d.Pulse()

	fake.Advance(5 * time.Second)

	if got := drained(t, d); got != 1 {
		t.Fatalf("drained %d triggers, want 1", got)
	}
}

func TestDebouncerLatchesRescanDuringInFlightScan(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	d := New(fake, 5*time.Second)

	d.Pulse()
	fake.Advance(5 * time.Second)
	if got := drained(t, d); got != 1 {
		t.Fatalf("drained %d triggers before scan, want 1", got)
	}

	d.ScanStarted()

	d.Pulse()
	fake.Advance(5 * time.Second)
	if got := drained(t, d); got != 0 {
		t.Fatalf("drained %d triggers while scan in flight, want 0", got)
	}

	d.ScanFinished()
	if got := drained(t, d); got != 1 {
		t.Fatalf("drained %d triggers after scan finished, want 1 (latched rescan)", got)
	}
}

func TestDebouncerScanFinishedWithoutLatchDoesNotFire(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	d := New(fake, 5*time.Second)

	d.ScanStarted()
	d.ScanFinished()

	if got := drained(t, d); got != 0 {
		t.Fatalf("drained %d triggers, want 0", got)
	}
}
