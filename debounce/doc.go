// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package debounce coalesces dirty pulses into scan triggers and defers
// pruning of power-dependent entities until the machine has settled in
// an observed power-on state.
//
// Debouncer restarts a coalescing timer on every pulse; the timer's
// expiry is what actually requests a scan, so a burst of pulses inside
// one window collapses into a single scan. A pulse whose timer expires
// while a scan is already running does not start a second scan
// concurrently — it latches a rescan request that fires the moment the
// running scan finishes.
//
// PowerGate tracks the machine's currently observed power state. A
// power-dependent entity (one instantiated from a template declaring
// PowerState "On" or "BiosPost") that has gone missing from a scan is
// prunable only once the machine is observed powered on AND a one-shot
// settle timer since that transition has elapsed — so a board that
// briefly vanishes mid-boot is not pruned before the system has had a
// chance to re-probe it.
package debounce
