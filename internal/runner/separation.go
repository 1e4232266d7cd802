package runner

import (
	"context"
	"fmt"
	"log/slog"

	"demix/internal/jobs"
	"demix/internal/logging"
	"demix/internal/materialize"
	"demix/internal/separator"
	"demix/internal/services"
	"demix/internal/storage"
)

// Separation processes static and dynamic mix jobs.
type Separation struct {
	store        *jobs.Store
	gateway      storage.Gateway
	engine       separator.Separator
	materializer *materialize.Materializer
	logger       *slog.Logger
}

// NewSeparation builds the separation runner.
func NewSeparation(store *jobs.Store, gateway storage.Gateway, engine separator.Separator, materializer *materialize.Materializer, logger *slog.Logger) *Separation {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Separation{
		store:        store,
		gateway:      gateway,
		engine:       engine,
		materializer: materializer,
		logger:       logging.WithComponent(logger, "separation"),
	}
}

// Process claims and runs one separation job. A processing failure is
// recorded as the job's error state and not returned: the submitter observes
// it through job status, never as a propagated error.
func (r *Separation) Process(ctx context.Context, jobID string) error {
	job, err := claim(ctx, r.store, jobID)
	if err != nil || job == nil {
		return err
	}

	ctx = jobContext(ctx, job)
	log := logging.WithContext(ctx, r.logger)
	log.Info("separation started")

	if runErr := r.run(ctx, job); runErr != nil {
		log.Error("separation failed", logging.Error(runErr))
		if failErr := r.store.Fail(ctx, job.ID, runErr.Error()); failErr != nil {
			log.Error("could not record failure", logging.Error(failErr))
		}
		return nil
	}

	log.Info("separation finished")
	return nil
}

func (r *Separation) run(ctx context.Context, job *jobs.Job) error {
	src, err := r.store.GetSource(ctx, job.SourceID)
	if err != nil {
		return fmt.Errorf("load source record: %w", err)
	}
	input, err := r.gateway.ResolveSource(ctx, src)
	if err != nil {
		return err
	}

	work := r.gateway.WorkDir(job)
	switch job.Kind {
	case jobs.KindStaticMix:
		if _, err := r.engine.CreateStaticMix(ctx, input, work, job.OutputFileName(jobs.OutputMix), job.Stems); err != nil {
			return err
		}
	case jobs.KindDynamicMix:
		if _, err := r.engine.SeparateStems(ctx, input, work); err != nil {
			return err
		}
	default:
		return services.Wrap(services.ErrToolFailure, "separation", "dispatch",
			fmt.Sprintf("unsupported job kind %s", job.Kind), nil)
	}

	_, err = r.materializer.Materialize(ctx, job)
	return err
}
