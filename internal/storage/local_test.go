package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"demix/internal/jobs"
	"demix/internal/services"
	"demix/internal/storage"
	"demix/internal/testsupport"
)

func TestLocalCommitReturnsRelativeRef(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gw, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gw.Backend() != "local" {
		t.Fatalf("unexpected backend %q", gw.Backend())
	}

	job := &jobs.Job{ID: "job-1", Kind: jobs.KindDynamicMix, Artist: "A", Title: "B"}
	work := gw.WorkDir(job)
	artifact := filepath.Join(work, "vocals.mp3")
	testsupport.WriteFile(t, artifact, 64)

	ref, err := gw.Commit(context.Background(), job, jobs.OutputVocals, artifact)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if ref != "separated/job-1/vocals.mp3" {
		t.Fatalf("unexpected ref %q", ref)
	}

	// local commit leaves the file in place
	if _, err := gw.Commit(context.Background(), job, jobs.OutputVocals, artifact); err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}
}

func TestLocalCommitMissingArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gw, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	job := &jobs.Job{ID: "job-2", Kind: jobs.KindDynamicMix}
	_, err = gw.Commit(context.Background(), job, jobs.OutputBass, filepath.Join(gw.WorkDir(job), "bass.mp3"))
	if !errors.Is(err, services.ErrOutputMissing) {
		t.Fatalf("expected ErrOutputMissing, got %v", err)
	}
}

func TestLocalResolveSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gw, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	src := &jobs.Source{ID: "src-1"}
	if _, err := gw.ResolveSource(context.Background(), src); !errors.Is(err, services.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure for source without audio, got %v", err)
	}

	src.OutputRef = "uploads/src-1/track.mp3"
	full := filepath.Join(cfg.Paths.MediaRoot, "uploads", "src-1", "track.mp3")
	testsupport.WriteFile(t, full, 64)

	resolved, err := gw.ResolveSource(context.Background(), src)
	if err != nil {
		t.Fatalf("ResolveSource failed: %v", err)
	}
	if resolved != full {
		t.Fatalf("expected %q, got %q", full, resolved)
	}
}

func TestLocalImportSourceCopiesFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gw, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	upload := filepath.Join(t.TempDir(), "My Song: Live?.mp3")
	testsupport.WriteFile(t, upload, 64)

	src := &jobs.Source{ID: "src-9"}
	ref, err := gw.ImportSource(context.Background(), src, upload)
	if err != nil {
		t.Fatalf("ImportSource failed: %v", err)
	}
	if ref != "uploads/src-9/My Song- Live.mp3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if _, err := filepath.Glob(filepath.Join(cfg.Paths.MediaRoot, "uploads", "src-9", "*")); err != nil {
		t.Fatalf("glob: %v", err)
	}

	src.OutputRef = ref
	resolved, err := gw.ResolveSource(context.Background(), src)
	if err != nil {
		t.Fatalf("ResolveSource after import failed: %v", err)
	}
	if filepath.Base(resolved) != "My Song- Live.mp3" {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
}

func TestLocalFetchWorkDirUsesUploads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gw, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	fetch := &jobs.Job{ID: "job-3", Kind: jobs.KindFetch}
	if got, want := gw.WorkDir(fetch), filepath.Join(cfg.Paths.MediaRoot, "uploads", "job-3"); got != want {
		t.Fatalf("fetch workdir %q, want %q", got, want)
	}

	mix := &jobs.Job{ID: "job-4", Kind: jobs.KindStaticMix}
	if got, want := gw.WorkDir(mix), filepath.Join(cfg.Paths.MediaRoot, "separated", "job-4"); got != want {
		t.Fatalf("mix workdir %q, want %q", got, want)
	}
}
