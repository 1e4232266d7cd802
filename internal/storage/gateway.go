// Package storage commits job artifacts to their durable backend and resolves
// source audio for processing. Refs are backend-relative keys such as
// "separated/<job-id>/vocals.mp3"; the gateway decides whether a ref lives on
// the local filesystem or in an object store.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"demix/internal/config"
	"demix/internal/jobs"
)

// Gateway moves finished artifacts out of a job's working directory and hands
// processing tools a readable location for source audio.
type Gateway interface {
	// Backend names the backend in effect ("local" or "s3").
	Backend() string

	// WorkDir returns the job's scratch directory under the media root.
	// Tools write their outputs here before commit.
	WorkDir(job *jobs.Job) string

	// Commit makes one finished artifact durable and returns its ref. On
	// the local backend the file already lives in its durable location; on
	// remote backends the local copy is uploaded and then removed.
	Commit(ctx context.Context, job *jobs.Job, kind jobs.OutputKind, localPath string) (string, error)

	// CleanupWorkDir removes whatever scratch state commit left behind.
	// Only empty directories are removed, so a partially committed job
	// keeps its files for inspection.
	CleanupWorkDir(job *jobs.Job) error

	// ResolveSource returns a location for the source audio that external
	// tools accept as input: a filesystem path on the local backend, a URL
	// on remote ones.
	ResolveSource(ctx context.Context, src *jobs.Source) (string, error)

	// ImportSource makes a locally supplied audio file durable for the
	// given source record and returns its ref. The original file is left
	// untouched.
	ImportSource(ctx context.Context, src *jobs.Source, localPath string) (string, error)
}

// New selects the gateway for the configured backend.
func New(cfg *config.Config) (Gateway, error) {
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		return NewLocal(cfg), nil
	case config.BackendS3:
		return NewRemote(cfg)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

// jobRef builds the backend-relative key for one artifact of a job.
func jobRef(root string, job *jobs.Job, kind jobs.OutputKind) string {
	return path.Join(root, job.ID, job.OutputFileName(kind))
}

// kindRoot maps a job kind to its directory under the media root: fetched
// audio lands in the uploads tree, separation outputs in the separated tree.
func kindRoot(cfg *config.Config, job *jobs.Job) string {
	if job.Kind == jobs.KindFetch {
		return cfg.Paths.UploadsDir
	}
	return cfg.Paths.SeparatedDir
}

func workDir(cfg *config.Config, job *jobs.Job) string {
	if job.Kind == jobs.KindFetch {
		return filepath.Join(cfg.UploadsRoot(), job.ID)
	}
	return filepath.Join(cfg.SeparatedRoot(), job.ID)
}
