// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"

	"github.com/bmc-tools/entity-manager/mirror"
)

// ChassisPowerInterface and ChassisPowerProperty name the well-known
// detector interface and property a chassis-state detector publishes
// to report whether the machine is powered on. Reading power state
// this way keeps the reader itself an ordinary detector on the bus:
// the chassis detector is just another service the mirror already
// polls, and entity-manager never touches power hardware directly.
const (
	ChassisPowerInterface = "xyz.openbmc_project.State.Chassis"
	ChassisPowerProperty  = "CurrentPowerState"
)

// poweredOnValues lists the CurrentPowerState strings that count as
// powered on.
var poweredOnValues = map[string]bool{
	"xyz.openbmc_project.State.Chassis.PowerState.On": true,
	"On": true,
}

// MirrorPowerObserver derives chassis power state from whatever the
// Detector Mirror currently holds, rather than reading hardware
// directly. It satisfies PowerObserver.
type MirrorPowerObserver struct {
	Mirror *mirror.Mirror
}

// PoweredOn reports true if any detector currently publishing
// ChassisPowerInterface reports a powered-on CurrentPowerState. If no
// detector publishes it yet, the machine is treated as not powered on
// — the conservative choice, since an unobserved state must not
// authorize pruning.
func (o *MirrorPowerObserver) PoweredOn(ctx context.Context) (bool, error) {
	snapshot := o.Mirror.Snapshot()
	for _, detector := range snapshot.FindInterface(ChassisPowerInterface) {
		props, ok := detector.Interfaces[ChassisPowerInterface]
		if !ok {
			continue
		}
		value, ok := props[ChassisPowerProperty]
		if !ok {
			continue
		}
		if s, ok := value.String(); ok && poweredOnValues[s] {
			return true, nil
		}
	}
	return false, nil
}
