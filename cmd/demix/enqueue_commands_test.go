package main

import (
	"context"
	"path/filepath"
	"testing"

	"demix/internal/jobs"
	"demix/internal/testsupport"
)

func TestAddCommandImportsSource(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	audioPath := filepath.Join(t.TempDir(), "around-the-world.mp3")
	testsupport.WriteFile(t, audioPath, 2048)

	out, _, err := runCLI(t, env, "add", audioPath, "--artist", "Daft Punk", "--title", "Around the World")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "imported")
	requireContains(t, out, "uploads/")

	queued, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queued) != 0 {
		t.Fatalf("add must not enqueue jobs, got %d", len(queued))
	}
}

func TestAddCommandRejectsDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "add", t.TempDir()); err == nil {
		t.Fatal("expected directory to be rejected")
	}
}

func TestSeparateCommandQueuesJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	src := testsupport.NewSource(t, env.store, "Massive Attack", "Teardrop")
	if err := env.store.SetSourceOutput(ctx, src.ID, "uploads/"+src.ID+"/teardrop.mp3"); err != nil {
		t.Fatalf("set source output: %v", err)
	}

	out, _, err := runCLI(t, env, "separate", src.ID, "--dynamic")
	if err != nil {
		t.Fatalf("separate --dynamic: %v", err)
	}
	requireContains(t, out, string(jobs.KindDynamicMix))

	out, _, err = runCLI(t, env, "separate", src.ID, "--vocals", "--drums")
	if err != nil {
		t.Fatalf("separate static: %v", err)
	}
	requireContains(t, out, string(jobs.KindStaticMix))

	queued, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(queued))
	}
}

func TestSeparateCommandValidation(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	src := testsupport.NewSource(t, env.store, "Artist", "Track")

	// Source has no audio yet.
	if _, _, err := runCLI(t, env, "separate", src.ID, "--dynamic"); err == nil {
		t.Fatal("expected separation of empty source to fail")
	}

	if err := env.store.SetSourceOutput(ctx, src.ID, "uploads/x/track.mp3"); err != nil {
		t.Fatalf("set source output: %v", err)
	}

	// No stems selected and not dynamic.
	if _, _, err := runCLI(t, env, "separate", src.ID); err == nil {
		t.Fatal("expected missing stem selection to fail")
	}

	if _, _, err := runCLI(t, env, "separate", "no-such-source", "--dynamic"); err == nil {
		t.Fatal("expected unknown source to fail")
	}
}

func TestFetchCommandQueuesJob(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, env,
		"fetch", "https://example.com/watch?v=abc123",
		"--artist", "Boards of Canada", "--title", "Roygbiv")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	requireContains(t, out, "queued fetch job")

	queued, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 job, got %d", len(queued))
	}
	job := queued[0]
	if job.Kind != jobs.KindFetch {
		t.Fatalf("expected fetch kind, got %s", job.Kind)
	}
	if job.Link != "https://example.com/watch?v=abc123" {
		t.Fatalf("unexpected link %q", job.Link)
	}
	if job.SourceID == "" {
		t.Fatal("fetch job must be bound to a source")
	}
}

func TestDepsCommandReportsMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "deps")
	if err != nil {
		t.Fatalf("deps with stubbed binaries: %v", err)
	}
	requireContains(t, out, "Separation engine")
	requireContains(t, out, "ok")
}
