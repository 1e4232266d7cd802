package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"demix/internal/jobs"
	"demix/internal/runner"
	"demix/internal/testsupport"
	"demix/internal/workflow"
)

// recordingProcessor claims and completes jobs, recording who it saw.
type recordingProcessor struct {
	store *jobs.Store

	mu   sync.Mutex
	seen []string
}

func (p *recordingProcessor) Process(ctx context.Context, jobID string) error {
	job, err := p.store.Claim(ctx, jobID)
	if errors.Is(err, jobs.ErrInvalidTransition) {
		return nil
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.seen = append(p.seen, job.ID)
	p.mu.Unlock()
	outputs := map[jobs.OutputKind]string{jobs.OutputVocals: "separated/" + job.ID + "/vocals.mp3"}
	return p.store.Complete(ctx, job.ID, outputs)
}

func (p *recordingProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func TestManagerProcessesPendingJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollIntervalSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)

	src := testsupport.NewSource(t, store, "Artist", "Title")
	first := testsupport.NewDynamicMix(t, store, src.ID)
	second := testsupport.NewDynamicMix(t, store, src.ID)

	proc := &recordingProcessor{store: store}
	mgr := workflow.NewManager(cfg, store, nil, map[jobs.Kind]runner.Processor{
		jobs.KindDynamicMix: proc,
	})

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		health, err := store.Health(ctx)
		if err != nil {
			t.Fatalf("Health failed: %v", err)
		}
		if health.Done == 2 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	seen := proc.processed()
	if len(seen) != 2 {
		t.Fatalf("expected both jobs processed once, got %v", seen)
	}
	for _, id := range []string{first.ID, second.ID} {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != jobs.StatusDone {
			t.Fatalf("job %s not done: %s", id, job.Status)
		}
	}
}

func TestManagerFailsJobsWithoutRunner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollIntervalSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)

	src := testsupport.NewSource(t, store, "Artist", "Title")
	orphan, err := store.NewFetch(context.Background(), src.ID, "Artist", "Title", "https://example.com/x")
	if err != nil {
		t.Fatalf("NewFetch failed: %v", err)
	}

	mgr := workflow.NewManager(cfg, store, nil, map[jobs.Kind]runner.Processor{
		jobs.KindDynamicMix: &recordingProcessor{store: store},
	})
	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(ctx, orphan.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status == jobs.StatusError {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("job without a runner never failed")
}

func TestManagerStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, nil, map[jobs.Kind]runner.Processor{
		jobs.KindDynamicMix: &recordingProcessor{store: store},
	})

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	mgr.Stop()
	mgr.Stop()

	empty := workflow.NewManager(cfg, store, nil, nil)
	if err := empty.Start(ctx); err == nil {
		t.Fatal("expected Start without runners to fail")
	}
}

func TestManagerSurfacesPollError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollIntervalSeconds = 1
	cfg.Workflow.ErrorRetryIntervalSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	proc := &recordingProcessor{store: store}
	mgr := workflow.NewManager(cfg, store, nil, map[jobs.Kind]runner.Processor{
		jobs.KindDynamicMix: proc,
	})

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for mgr.LastError() == nil {
		if time.Now().After(deadline) {
			t.Fatal("poll error never surfaced")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
