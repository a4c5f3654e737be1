// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package monitor polls the service metrics endpoint on a fixed interval
// and publishes snapshots.
package monitor

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/loomchat/loom-tui/internal/api"
)

// =============================================================================
// TYPES
// =============================================================================

// MetricsSource fetches one metrics snapshot. The API client satisfies this.
type MetricsSource interface {
	Metrics(ctx context.Context) (*api.Metrics, error)
}

// Snapshot is one poll result. Exactly one of Metrics and Err is set.
type Snapshot struct {
	Metrics *api.Metrics
	Err     error
	At      time.Time
}

// Poller fetches metrics on an interval governed by a rate limiter.
type Poller struct {
	source  MetricsSource
	limiter *rate.Limiter
}

// =============================================================================
// POLLER
// =============================================================================

// New creates a Poller fetching from source every interval.
func New(source MetricsSource, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		source:  source,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Run starts polling and returns the snapshot channel. Failed fetches are
// delivered as snapshots carrying the error; polling continues. The channel
// closes when ctx is cancelled.
func (p *Poller) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)
		for {
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}

			metrics, err := p.source.Metrics(ctx)
			snap := Snapshot{Metrics: metrics, Err: err, At: time.Now()}
			if err != nil {
				snap.Metrics = nil
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
