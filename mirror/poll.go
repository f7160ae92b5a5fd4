// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/bmc-tools/entity-manager/clock"
	"github.com/bmc-tools/entity-manager/schema"
)

// Fetch retrieves the current full set of detector objects from one
// detector service. bus.Client.GetManagedObjects satisfies this.
type Fetch func() ([]schema.Detector, error)

// Poller drives a Mirror from one or more detector services that
// expose no subscription channel of their own, polling each on a fixed
// interval and replacing the mirror's contents on change. Every poll
// is a full GetManagedObjects read; there is no persistent connection
// whose reconnect could be used as a refresh signal instead.
type Poller struct {
	mirror   *Mirror
	fetchers []Fetch
	clk      clock.Clock
	logger   *slog.Logger

	lastSignature string
}

// NewPoller returns a Poller that merges the objects returned by every
// fetcher into mirror on each tick of interval.
func NewPoller(m *Mirror, fetchers []Fetch, clk clock.Clock, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{mirror: m, fetchers: fetchers, clk: clk, logger: logger}
}

// Run polls every interval until ctx is done, and once immediately on
// entry so the mirror is populated before the first scan.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	p.pollOnce()

	ticker := p.clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Poller) pollOnce() {
	var merged []schema.Detector
	for _, fetch := range p.fetchers {
		detectors, err := fetch()
		if err != nil {
			p.logger.Warn("mirror: poll failed, retaining previous contents", "error", err)
			return
		}
		merged = append(merged, detectors...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Path.String() < merged[j].Path.String()
	})

	signature, err := json.Marshal(merged)
	if err != nil {
		p.logger.Warn("mirror: signing poll result failed", "error", err)
		return
	}
	if string(signature) == p.lastSignature {
		return
	}
	p.lastSignature = string(signature)
	p.mirror.Reset(merged)
}
