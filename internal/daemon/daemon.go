// Package daemon wires the queue store, workflow manager, and stale-job
// reaper into a single-instance background service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"demix/internal/config"
	"demix/internal/jobs"
	"demix/internal/logging"
	"demix/internal/reaper"
	"demix/internal/storage"
	"demix/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	gateway  storage.Gateway
	workflow *workflow.Manager
	reaper   *reaper.Reaper
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        jobs.HealthSummary
	QueueDBPath  string
	LockFilePath string
	// LastError carries the workflow manager's most recent polling
	// failure, empty when polling is healthy.
	LastError string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, gateway storage.Gateway, logger *slog.Logger, wf *workflow.Manager, rp *reaper.Reaper) (*Daemon, error) {
	if cfg == nil || store == nil || gateway == nil || wf == nil || rp == nil {
		return nil, errors.New("daemon requires config, store, gateway, workflow manager, and reaper")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "demixd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		gateway:  gateway,
		workflow: wf,
		reaper:   rp,
		logPath:  filepath.Join(cfg.Paths.LogDir, "demix.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches background processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another demix daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.reaper.Start(runCtx)

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("demix daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.reaper.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("demix daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// AddLocalSource registers an existing audio file as a ready source record.
func (d *Daemon) AddLocalSource(ctx context.Context, artist, title, sourcePath string) (*jobs.Source, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %q is a directory", absPath)
	}

	src, err := d.store.NewSource(ctx, artist, title)
	if err != nil {
		return nil, fmt.Errorf("create source record: %w", err)
	}
	ref, err := d.gateway.ImportSource(ctx, src, absPath)
	if err != nil {
		return nil, err
	}
	if err := d.store.SetSourceOutput(ctx, src.ID, ref); err != nil {
		return nil, err
	}
	src.OutputRef = ref
	d.logger.Info("local source imported",
		logging.String("source_id", src.ID),
		logging.String("ref", ref))
	return src, nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	summary, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	status := Status{
		Running:      d.running.Load(),
		Queue:        summary,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if err := d.workflow.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status, nil
}
