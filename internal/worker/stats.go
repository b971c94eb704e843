package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

// StatsStore defines the store operations needed by the stats sampler.
type StatsStore interface {
	GetStats(ctx context.Context) (*types.StoreStats, error)
}

// StatsSampler periodically reads the store's row counts. When the store is
// instrumented, each read refreshes the pulse.store.rows gauge.
type StatsSampler struct {
	store    StatsStore
	interval time.Duration
}

// NewStatsSampler creates a sampler with the given store and interval.
func NewStatsSampler(store StatsStore, interval time.Duration) *StatsSampler {
	return &StatsSampler{store: store, interval: interval}
}

// Run samples once immediately, then on every tick. Blocks until ctx is
// cancelled.
func (w *StatsSampler) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "stats-sampler",
		"interval", w.interval.String(),
	)

	w.sample(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "stats-sampler",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.sample(ctx)
		}
	}
}

func (w *StatsSampler) sample(ctx context.Context) {
	start := time.Now()

	stats, err := w.store.GetStats(ctx)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return
		}
		slog.Warn("stats sample failed",
			"component", "worker",
			"action", "stats_sample_failed",
			"error", err,
		)
		return
	}

	slog.Debug("stats sampled",
		"component", "worker",
		"action", "stats_sample",
		"objectives", stats.Objectives,
		"action_maps", stats.ActionMaps,
		"audit_entries", stats.AuditEntries,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
