// Package runner drives one claimed job from source audio to recorded
// outputs. The separation runner absorbs failures into the job's error state;
// the fetch runner retries with backoff and only errors the job when the
// retry budget is exhausted.
package runner

import (
	"context"
	"errors"

	"demix/internal/jobs"
	"demix/internal/services"
)

// Processor handles every job of one kind. Process claims the pending job
// itself; when another worker wins the claim it returns nil and does nothing.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// claim moves a pending job to in progress for this worker. A nil job with a
// nil error means another worker already owns it.
func claim(ctx context.Context, store *jobs.Store, jobID string) (*jobs.Job, error) {
	job, err := store.Claim(ctx, jobID)
	if errors.Is(err, jobs.ErrInvalidTransition) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// jobContext stamps job identity onto the context for log correlation.
func jobContext(ctx context.Context, job *jobs.Job) context.Context {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithJobKind(ctx, string(job.Kind))
	return ctx
}
