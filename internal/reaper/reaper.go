// Package reaper fails in-progress jobs whose worker died. A job that has
// been in progress since before the staleness threshold is assumed orphaned
// by a crash and is moved to the error state so it stops looking alive.
package reaper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"demix/internal/jobs"
	"demix/internal/logging"
)

// Reaper periodically sweeps the queue for stale in-progress jobs.
type Reaper struct {
	store     *jobs.Store
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a reaper. interval is the sweep period, threshold the age at
// which an in-progress job counts as stale.
func New(store *jobs.Store, logger *slog.Logger, interval, threshold time.Duration) *Reaper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reaper{
		store:     store,
		logger:    logging.WithComponent(logger, "reaper"),
		interval:  interval,
		threshold: threshold,
	}
}

// Start launches the sweep loop. It is a no-op when already running.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.loop(loopCtx)
}

// Stop cancels the sweep loop and waits for it to drain.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Reaper) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn("sweep failed", logging.Error(err))
			}
		}
	}
}

// Sweep runs one reap pass. Jobs that finish while the sweep runs are safe:
// the store's guarded update skips anything no longer in progress.
func (r *Reaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.threshold)
	if r.logger.Enabled(ctx, slog.LevelDebug) {
		stale, listErr := r.store.ListInProgressOlderThan(ctx, cutoff)
		if listErr != nil {
			return listErr
		}
		for _, job := range stale {
			r.logger.Debug("stale job",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldJobKind, string(job.Kind)),
				logging.String("created_at", job.CreatedAt.Format(time.RFC3339)))
		}
	}
	reaped, err := r.store.FailStale(ctx, cutoff, jobs.StaleReason)
	if err != nil {
		return err
	}
	if reaped > 0 {
		r.logger.Info("reaped stale jobs", logging.Int64("count", reaped))
	}
	return nil
}
