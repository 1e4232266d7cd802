package runner

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"

	"demix/internal/fetch"
	"demix/internal/jobs"
	"demix/internal/logging"
	"demix/internal/materialize"
	"demix/internal/services"
	"demix/internal/storage"
)

// Fetch processes remote audio fetch jobs with a bounded retry budget.
type Fetch struct {
	store        *jobs.Store
	gateway      storage.Gateway
	downloader   fetch.Downloader
	materializer *materialize.Materializer
	maxRetries   int
	logger       *slog.Logger
}

// NewFetch builds the fetch runner. maxRetries bounds total download
// attempts, not retries after the first.
func NewFetch(store *jobs.Store, gateway storage.Gateway, downloader fetch.Downloader, materializer *materialize.Materializer, maxRetries int, logger *slog.Logger) *Fetch {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetch{
		store:        store,
		gateway:      gateway,
		downloader:   downloader,
		materializer: materializer,
		maxRetries:   maxRetries,
		logger:       logging.WithComponent(logger, "fetch"),
	}
}

// Process claims and runs one fetch job. Intermediate attempt failures leave
// the job in progress; only retry exhaustion records the error state. The
// final error is also returned so queue-level observers see it.
func (f *Fetch) Process(ctx context.Context, jobID string) error {
	job, err := claim(ctx, f.store, jobID)
	if err != nil || job == nil {
		return err
	}

	ctx = jobContext(ctx, job)
	log := logging.WithContext(ctx, f.logger)
	log.Info("fetch started", logging.String("link", job.Link))

	attempt := 0
	operation := func() error {
		attempt++
		if attemptErr := f.attempt(ctx, job); attemptErr != nil {
			if !services.Retryable(attemptErr) {
				return backoff.Permanent(attemptErr)
			}
			log.Warn("fetch attempt failed",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", f.maxRetries),
				logging.Error(attemptErr))
			return attemptErr
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.maxRetries-1))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		log.Error("fetch exhausted", logging.Error(err))
		if failErr := f.store.Fail(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("could not record failure", logging.Error(failErr))
		}
		return err
	}

	log.Info("fetch finished")
	return nil
}

func (f *Fetch) attempt(ctx context.Context, job *jobs.Job) error {
	dest := filepath.Join(f.gateway.WorkDir(job), job.OutputFileName(jobs.OutputAudio))
	if err := f.downloader.Download(ctx, job.Link, dest); err != nil {
		return err
	}
	_, err := f.materializer.Materialize(ctx, job)
	return err
}
