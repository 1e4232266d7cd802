package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"demix/internal/daemon"
	"demix/internal/jobs"
	"demix/internal/reaper"
	"demix/internal/runner"
	"demix/internal/storage"
	"demix/internal/testsupport"
	"demix/internal/workflow"
)

type noopProcessor struct{}

func (noopProcessor) Process(context.Context, string) error { return nil }

func newDaemon(t *testing.T) (*daemon.Daemon, *jobs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	gw, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	mgr := workflow.NewManager(cfg, store, nil, map[jobs.Kind]runner.Processor{
		jobs.KindDynamicMix: noopProcessor{},
	})
	rp := reaper.New(store, nil, time.Minute, time.Hour)
	d, err := daemon.New(cfg, store, gw, nil, mgr, rp)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newDaemon(t)
	t.Cleanup(func() {
		d.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LastError != "" {
		t.Fatalf("healthy daemon reported poll error %q", status.LastError)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status, err = d.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestAddLocalSource(t *testing.T) {
	d, store := newDaemon(t)
	t.Cleanup(func() {
		d.Stop()
	})

	upload := filepath.Join(t.TempDir(), "track.mp3")
	testsupport.WriteFile(t, upload, 64)

	ctx := context.Background()
	src, err := d.AddLocalSource(ctx, "Artist", "Title", upload)
	if err != nil {
		t.Fatalf("AddLocalSource failed: %v", err)
	}
	if src.OutputRef == "" {
		t.Fatal("expected source ref to be set")
	}

	fetched, err := store.GetSource(ctx, src.ID)
	if err != nil {
		t.Fatalf("GetSource failed: %v", err)
	}
	if fetched.OutputRef != src.OutputRef {
		t.Fatalf("persisted ref %q != returned ref %q", fetched.OutputRef, src.OutputRef)
	}
}

func TestAddLocalSourceRejectsBadPaths(t *testing.T) {
	d, _ := newDaemon(t)
	t.Cleanup(func() {
		d.Stop()
	})

	ctx := context.Background()
	if _, err := d.AddLocalSource(ctx, "A", "B", "   "); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := d.AddLocalSource(ctx, "A", "B", t.TempDir()); err == nil {
		t.Fatal("expected error for directory path")
	}
	if _, err := d.AddLocalSource(ctx, "A", "B", filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
