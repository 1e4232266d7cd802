// Package workflow polls the queue for pending jobs and dispatches them to a
// bounded worker pool. The pool keeps long tool invocations from blocking
// claiming; the claim itself stays race-safe because only the store's guarded
// update decides ownership.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"demix/internal/config"
	"demix/internal/jobs"
	"demix/internal/logging"
	"demix/internal/runner"
)

// Manager coordinates job processing using the registered per-kind runners.
type Manager struct {
	cfg        *config.Config
	store      *jobs.Store
	logger     *slog.Logger
	processors map[jobs.Kind]runner.Processor

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	workers            int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *jobs.Store, logger *slog.Logger, processors map[jobs.Kind]runner.Processor) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		logger:             logging.WithComponent(logger, "workflow"),
		processors:         processors,
		pollInterval:       time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryIntervalSeconds) * time.Second,
		workers:            workers,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.processors) == 0 {
		return errors.New("workflow runners not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	pending := make(chan *jobs.Job)
	m.wg.Add(1 + m.workers)
	go m.poll(runCtx, pending)
	for i := 0; i < m.workers; i++ {
		go m.work(runCtx, pending)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// LastError reports the most recent queue polling error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// poll feeds the oldest pending job to the worker pool. Two workers may still
// observe the same job across iterations; the losing claim is a no-op.
func (m *Manager) poll(ctx context.Context, pending chan<- *jobs.Job) {
	defer m.wg.Done()
	defer close(pending)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextPending(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next job", logging.Error(err))
			if !m.sleep(ctx, m.errorRetryInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case pending <- job:
		}
	}
}

func (m *Manager) work(ctx context.Context, pending <-chan *jobs.Job) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-pending:
			if !ok {
				return
			}
			m.dispatch(ctx, job)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, job *jobs.Job) {
	proc, ok := m.processors[job.Kind]
	if !ok {
		m.logger.Error("no runner for job kind",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldJobKind, string(job.Kind)))
		if _, err := m.store.Claim(ctx, job.ID); err == nil {
			_ = m.store.Fail(ctx, job.ID, "no runner registered for kind "+string(job.Kind))
		}
		return
	}

	if err := proc.Process(ctx, job.ID); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// fetch exhaustion surfaces here; the job itself already carries
		// the error state
		m.logger.Warn("job processing reported error",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
