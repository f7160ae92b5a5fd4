// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bmc-tools/entity-manager/clock"
	"github.com/bmc-tools/entity-manager/schema"
)

var errPollFixture = errors.New("fetch failed")

func detectorFixture(path string, temp int64) schema.Detector {
	return schema.Detector{
		Path: schema.DetectorPath{Service: "svc", Path: path},
		Interfaces: map[string]schema.InterfaceProperties{
			"xyz.openbmc_project.Sensor.Value": {
				"Value": schema.Int(temp),
			},
		},
	}
}

func drainDirty(m *Mirror) int {
	count := 0
	for {
		select {
		case <-m.Dirty():
			count++
		default:
			return count
		}
	}
}

func TestPollerPopulatesMirrorOnFirstPoll(t *testing.T) {
	interest := NewInterestSet([]string{"xyz.openbmc_project.Sensor.Value"})
	m := New(interest, nil)
	fake := clock.Fake(time.Unix(0, 0))

	fetch := func() ([]schema.Detector, error) {
		return []schema.Detector{detectorFixture("/sensor0", 42)}, nil
	}
	poller := NewPoller(m, []Fetch{fetch}, fake, nil)
	poller.pollOnce()

	if drainDirty(m) == 0 {
		t.Fatalf("pollOnce never populated the mirror")
	}
	if len(m.Snapshot().Detectors()) != 1 {
		t.Errorf("Snapshot has %d detectors, want 1", len(m.Snapshot().Detectors()))
	}
}

func TestPollerRunStopsOnContextCancellation(t *testing.T) {
	interest := NewInterestSet([]string{"xyz.openbmc_project.Sensor.Value"})
	m := New(interest, nil)
	fake := clock.Fake(time.Unix(0, 0))

	fetch := func() ([]schema.Detector, error) {
		return []schema.Detector{detectorFixture("/sensor0", 42)}, nil
	}
	poller := NewPoller(m, []Fetch{fetch}, fake, nil)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		poller.Run(ctx, time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestPollerSkipsResetWhenUnchanged(t *testing.T) {
	interest := NewInterestSet([]string{"xyz.openbmc_project.Sensor.Value"})
	m := New(interest, nil)
	fake := clock.Fake(time.Unix(0, 0))

	fetch := func() ([]schema.Detector, error) {
		return []schema.Detector{detectorFixture("/sensor0", 42)}, nil
	}
	poller := NewPoller(m, []Fetch{fetch}, fake, nil)

	poller.pollOnce()
	drainDirty(m)

	poller.pollOnce()
	if got := drainDirty(m); got != 0 {
		t.Errorf("pollOnce on unchanged detector output pulsed %d times, want 0", got)
	}
}

func TestPollerResetsOnChange(t *testing.T) {
	interest := NewInterestSet([]string{"xyz.openbmc_project.Sensor.Value"})
	m := New(interest, nil)
	fake := clock.Fake(time.Unix(0, 0))

	temp := int64(42)
	fetch := func() ([]schema.Detector, error) {
		return []schema.Detector{detectorFixture("/sensor0", temp)}, nil
	}
	poller := NewPoller(m, []Fetch{fetch}, fake, nil)

	poller.pollOnce()
	drainDirty(m)

	temp = 43
	poller.pollOnce()
	if got := drainDirty(m); got != 1 {
		t.Errorf("pollOnce on changed detector output pulsed %d times, want 1", got)
	}
}

func TestPollerRetainsPreviousContentsOnFetchError(t *testing.T) {
	interest := NewInterestSet([]string{"xyz.openbmc_project.Sensor.Value"})
	m := New(interest, nil)
	fake := clock.Fake(time.Unix(0, 0))

	failing := func() ([]schema.Detector, error) {
		return nil, errPollFixture
	}
	poller := NewPoller(m, []Fetch{failing}, fake, nil)

	poller.pollOnce()
	if len(m.Snapshot().Detectors()) != 0 {
		t.Errorf("Snapshot after a failed poll has %d detectors, want 0", len(m.Snapshot().Detectors()))
	}
}
