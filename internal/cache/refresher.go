package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Computer recomputes one plan entry and stores the result in the cache.
// Implemented by the dashboard service, which knows how to dispatch an
// operation name to the aggregator.
type Computer interface {
	ComputeEntry(ctx context.Context, entry PlanEntry) error
}

// Refresher proactively recomputes the standing dashboard keys on a fixed
// interval so ad-hoc reads stay warm. One run is active at a time: a tick
// that fires while the previous run is still in flight is skipped, never
// stacked against the same keys.
type Refresher struct {
	interval time.Duration
	entries  []PlanEntry
	computer Computer
	running  atomic.Bool
}

// NewRefresher creates a refresher for the given plan.
func NewRefresher(interval time.Duration, entries []PlanEntry, computer Computer) *Refresher {
	return &Refresher{
		interval: interval,
		entries:  entries,
		computer: computer,
	}
}

// Start begins periodic refreshing. Runs until the context is cancelled,
// then performs one final bounded refresh so restarts hand over warm keys.
func (r *Refresher) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("[Refresher] Starting cache refresher",
		"interval", r.interval,
		"entries", len(r.entries),
	)

	// Initial run so the dashboard is warm before the first tick.
	r.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("[Refresher] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			r.runOnce(shutdownCtx)

			return nil
		}
	}
}

// runOnce refreshes every plan entry unless a previous run is still active.
func (r *Refresher) runOnce(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		slog.Warn("[Refresher] Previous refresh still running, skipping tick")
		return
	}
	defer r.running.Store(false)

	started := time.Now()
	failures := 0
	for _, entry := range r.entries {
		select {
		case <-ctx.Done():
			slog.Info("[Refresher] Refresh interrupted by context cancellation",
				"completed", len(r.entries)-failures,
			)
			return
		default:
		}

		if err := r.computer.ComputeEntry(ctx, entry); err != nil {
			// A failed aggregate keeps serving its previous cached value.
			failures++
			slog.Error("[Refresher] Failed to refresh entry",
				"entry", entry.Name,
				"operation", entry.Operation,
				"error", err,
			)
		}
	}

	slog.Info("[Refresher] Refresh cycle complete",
		"entries", len(r.entries),
		"failures", failures,
		"elapsed", time.Since(started),
	)
}
