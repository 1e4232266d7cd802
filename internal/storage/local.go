package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"demix/internal/config"
	"demix/internal/fileutil"
	"demix/internal/jobs"
	"demix/internal/services"
	"demix/internal/textutil"
)

// Local keeps artifacts where the tools wrote them: the working directory is
// the durable location, so commit only records the media-root-relative ref.
type Local struct {
	cfg *config.Config
}

// NewLocal builds the gateway for filesystem-backed storage.
func NewLocal(cfg *config.Config) *Local {
	return &Local{cfg: cfg}
}

func (l *Local) Backend() string {
	return config.BackendLocal
}

func (l *Local) WorkDir(job *jobs.Job) string {
	return workDir(l.cfg, job)
}

func (l *Local) Commit(_ context.Context, job *jobs.Job, kind jobs.OutputKind, localPath string) (string, error) {
	if !fileutil.Exists(localPath) {
		return "", services.Wrap(services.ErrOutputMissing, "storage", "commit",
			fmt.Sprintf("artifact %s not found at %s", kind, localPath), nil)
	}
	return jobRef(kindRoot(l.cfg, job), job, kind), nil
}

// CleanupWorkDir is a no-op beyond removing an empty directory: on the local
// backend committed files live inside the working directory.
func (l *Local) CleanupWorkDir(job *jobs.Job) error {
	return fileutil.RemoveIfEmpty(l.WorkDir(job))
}

func (l *Local) ImportSource(_ context.Context, src *jobs.Source, localPath string) (string, error) {
	if !fileutil.Exists(localPath) {
		return "", services.Wrap(services.ErrIOFailure, "storage", "import",
			fmt.Sprintf("no file at %s", localPath), nil)
	}
	ref := path.Join(l.cfg.Paths.UploadsDir, src.ID, textutil.SanitizeFileName(filepath.Base(localPath)))
	dest := filepath.Join(l.cfg.Paths.MediaRoot, filepath.FromSlash(ref))
	if err := fileutil.CopyFile(localPath, dest); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "import", "copy source audio", err)
	}
	return ref, nil
}

func (l *Local) ResolveSource(_ context.Context, src *jobs.Source) (string, error) {
	if src.OutputRef == "" {
		return "", services.Wrap(services.ErrIOFailure, "storage", "resolve",
			fmt.Sprintf("source %s has no audio", src.ID), nil)
	}
	full := filepath.Join(l.cfg.Paths.MediaRoot, filepath.FromSlash(src.OutputRef))
	if !fileutil.Exists(full) {
		return "", services.Wrap(services.ErrIOFailure, "storage", "resolve",
			fmt.Sprintf("source audio missing at %s", full), nil)
	}
	return full, nil
}
