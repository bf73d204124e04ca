// Package worker runs the single-consumer job loop: claim the oldest pending
// analysis job, run it to completion, then look again.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stackcity/stackcity/internal/port"
	"github.com/stackcity/stackcity/internal/service"
)

// Poller claims and executes pending jobs one at a time. No two jobs ever run
// concurrently within one process; the store-level claim keeps multiple
// processes safe too.
type Poller struct {
	store    port.Store
	analyzer *service.AnalyzerService
	interval time.Duration
}

// New creates a poller with the given tick interval.
func New(store port.Store, analyzer *service.AnalyzerService, interval time.Duration) *Poller {
	return &Poller{store: store, analyzer: analyzer, interval: interval}
}

// Run loops until ctx is cancelled. Claim failures are logged and retried on
// the next tick; they never terminate the loop.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("worker started", "poll_interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			slog.Info("worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// tick claims at most one job and runs it to its terminal state.
func (p *Poller) tick(ctx context.Context) {
	job, err := p.store.ClaimNextJob(ctx)
	if errors.Is(err, port.ErrNoPendingJobs) {
		return
	}
	if err != nil {
		slog.Error("claiming pending job", "error", err)
		return
	}

	if err := p.analyzer.RunJob(ctx, job); err != nil {
		// Already recorded on the job row; keep polling.
		slog.Warn("job finished with failure", "job_id", job.ID, "error", err)
	}
}
