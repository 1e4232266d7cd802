// Package fetch shells out to the downloader to acquire source audio from a
// remote link. Failures are tagged retryable so the fetch runner's backoff
// policy can distinguish them from permanent errors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"demix/internal/services"
)

// InstallHint is appended to tool-not-found failures.
const InstallHint = "Please install FFmpeg and the downloader, then restart the worker"

// Downloader defines the behaviour required by the fetch runner.
type Downloader interface {
	Download(ctx context.Context, link, destPath string) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
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

// Client wraps downloader CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a downloader client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("fetch binary required")
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

// Download pulls the best audio track behind link to destPath. The download
// goes to a temp file first and is renamed into place, so destPath either
// holds a complete file or does not exist.
func (c *Client) Download(ctx context.Context, link, destPath string) error {
	if strings.TrimSpace(link) == "" {
		return errors.New("fetch link required")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "*.fetch.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	defer os.Remove(tmp.Name())

	args := []string{
		"--extract-audio",
		"--audio-quality", "0",
		"--no-playlist",
		"--output", tmp.Name(),
		link,
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.exec.Run(runCtx, c.binary, args); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrToolNotFound, "fetch", "download", InstallHint, err)
		}
		return services.Wrap(services.ErrFetchFailure, "fetch", "download", link, err)
	}

	if _, err := os.Stat(tmp.Name()); errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrFetchFailure, "fetch", "download",
			fmt.Sprintf("downloader exited cleanly but wrote nothing for %s", link), nil)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return services.Wrap(services.ErrIOFailure, "fetch", "download", "move download into place", err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
