// Package materialize turns a job's working directory into durable, recorded
// outputs. A tool's exit status is never taken at face value: every expected
// artifact must exist on disk before anything is committed, and the job only
// becomes done after every artifact has been committed.
package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"demix/internal/fileutil"
	"demix/internal/jobs"
	"demix/internal/logging"
	"demix/internal/services"
	"demix/internal/storage"
)

// Materializer commits finished artifacts through the storage gateway and
// records completion on the job store.
type Materializer struct {
	store   *jobs.Store
	gateway storage.Gateway
	logger  *slog.Logger
}

// New builds a materializer.
func New(store *jobs.Store, gateway storage.Gateway, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Materializer{
		store:   store,
		gateway: gateway,
		logger:  logging.WithComponent(logger, "materialize"),
	}
}

// Materialize verifies, commits, and records every expected output of an
// in-progress job. Verification runs over the full set before the first
// commit so a partial tool run commits nothing. A failure after some commits
// leaves those blobs in place; the job is failed and a retry overwrites them
// under the same refs.
func (m *Materializer) Materialize(ctx context.Context, job *jobs.Job) (map[jobs.OutputKind]string, error) {
	work := m.gateway.WorkDir(job)
	expected := job.ExpectedOutputs()
	if len(expected) == 0 {
		return nil, fmt.Errorf("materialize: job %s kind %s expects no outputs", job.ID, job.Kind)
	}

	paths := make(map[jobs.OutputKind]string, len(expected))
	for _, kind := range expected {
		p := filepath.Join(work, job.OutputFileName(kind))
		if !fileutil.Exists(p) {
			return nil, services.Wrap(services.ErrOutputMissing, "materialize", "verify",
				fmt.Sprintf("expected %s at %s", kind, p), nil)
		}
		paths[kind] = p
	}

	refs := make(map[jobs.OutputKind]string, len(expected))
	for _, kind := range expected {
		ref, err := m.gateway.Commit(ctx, job, kind, paths[kind])
		if err != nil {
			return nil, err
		}
		refs[kind] = ref
		m.logger.Debug("artifact committed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("output", string(kind)),
			logging.String("ref", ref))
	}

	if job.Kind == jobs.KindFetch {
		if err := m.store.CompleteFetch(ctx, job.ID, refs, refs[jobs.OutputAudio]); err != nil {
			return nil, err
		}
	} else {
		if err := m.store.Complete(ctx, job.ID, refs); err != nil {
			return nil, err
		}
	}

	if err := m.gateway.CleanupWorkDir(job); err != nil {
		m.logger.Warn("workdir cleanup failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
	return refs, nil
}
