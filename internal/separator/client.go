package separator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"demix/internal/jobs"
	"demix/internal/services"
)

// InstallHint is appended to tool-not-found failures so the error message on
// the job tells the operator what to install.
const InstallHint = "Please install FFmpeg and the separation engine, then restart the worker"

// Separator defines the behaviour required by the separation runner.
type Separator interface {
	CreateStaticMix(ctx context.Context, sourcePath, destDir, fileName string, stems jobs.StemSelection) (string, error)
	SeparateStems(ctx context.Context, sourcePath, destDir string) ([]string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps separation engine CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a separation client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("separator binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CreateStaticMix renders the selected stems into a single audio file at
// destDir/fileName. The engine's exit status is not trusted: the output file
// must exist afterwards.
func (c *Client) CreateStaticMix(ctx context.Context, sourcePath, destDir, fileName string, stems jobs.StemSelection) (string, error) {
	if !stems.Any() {
		return "", errors.New("static mix requires at least one stem")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	args := []string{"mix",
		"--stems", stemFlags(stems),
		"--codec", "mp3",
		"-o", destDir,
		"-f", fileName,
		sourcePath,
	}

	runCtx, cancel := c.runContext(ctx)
	defer cancel()
	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		return "", classify(err, "static mix")
	}

	destPath := filepath.Join(destDir, fileName)
	if _, err := os.Stat(destPath); errors.Is(err, os.ErrNotExist) {
		return "", services.Wrap(services.ErrOutputMissing, "separator", "static mix",
			fmt.Sprintf("engine exited cleanly but produced no file at %s", destPath), nil)
	}
	return destPath, nil
}

// SeparateStems splits the source into the four fixed stems, writing
// vocals.mp3, other.mp3, bass.mp3, and drums.mp3 into destDir. Every stem
// must exist afterwards.
func (c *Client) SeparateStems(ctx context.Context, sourcePath, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	args := []string{"separate",
		"--stems", "4",
		"--codec", "mp3",
		"-o", destDir,
		"-f", "{instrument}.{codec}",
		sourcePath,
	}

	runCtx, cancel := c.runContext(ctx)
	defer cancel()
	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		return nil, classify(err, "stem split")
	}

	paths := make([]string, 0, len(jobs.StemKinds))
	for _, kind := range jobs.StemKinds {
		p := filepath.Join(destDir, string(kind)+".mp3")
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrOutputMissing, "separator", "stem split",
				fmt.Sprintf("engine exited cleanly but stem %s is missing", kind), nil)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (c *Client) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// classify tags tool-not-found failures with the install hint so they surface
// as actionable job errors; everything else stays a plain tool failure.
func classify(err error, operation string) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrToolNotFound, "separator", operation, InstallHint, err)
	}
	return services.Wrap(services.ErrToolFailure, "separator", operation, "", err)
}

func stemFlags(stems jobs.StemSelection) string {
	parts := make([]string, 0, 4)
	if stems.Vocals {
		parts = append(parts, "vocals")
	}
	if stems.Drums {
		parts = append(parts, "drums")
	}
	if stems.Bass {
		parts = append(parts, "bass")
	}
	if stems.Other {
		parts = append(parts, "other")
	}
	return strings.Join(parts, ",")
}
