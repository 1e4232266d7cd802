package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		return fmt.Errorf("config: paths.media_root is required")
	}
	if strings.TrimSpace(c.Paths.SeparatedDir) == "" {
		return fmt.Errorf("config: paths.separated_dir is required")
	}
	if strings.TrimSpace(c.Paths.UploadsDir) == "" {
		return fmt.Errorf("config: paths.uploads_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("config: paths.log_dir is required")
	}

	switch c.Storage.Backend {
	case BackendLocal:
	case BackendS3:
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("config: storage.bucket is required for the s3 backend")
		}
		if strings.TrimSpace(c.Storage.AccessKeyID) == "" || strings.TrimSpace(c.Storage.SecretAccessKey) == "" {
			return fmt.Errorf("config: storage access keys are required for the s3 backend")
		}
		if c.Storage.PresignExpirySeconds <= 0 {
			return fmt.Errorf("config: storage.presign_expiry_seconds must be positive")
		}
	default:
		return fmt.Errorf("config: storage.backend must be %q or %q, got %q", BackendLocal, BackendS3, c.Storage.Backend)
	}

	if strings.TrimSpace(c.Separator.Binary) == "" {
		return fmt.Errorf("config: separator.binary is required")
	}
	if strings.TrimSpace(c.Fetch.Binary) == "" {
		return fmt.Errorf("config: fetch.binary is required")
	}
	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("config: fetch.max_retries must be at least 1")
	}
	if c.Workflow.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: workflow.poll_interval_seconds must be positive")
	}
	if c.Workflow.Workers < 1 {
		return fmt.Errorf("config: workflow.workers must be at least 1")
	}
	if c.Reaper.IntervalMinutes <= 0 {
		return fmt.Errorf("config: reaper.interval_minutes must be positive")
	}
	if c.Reaper.StaleThresholdMinutes <= 0 {
		return fmt.Errorf("config: reaper.stale_threshold_minutes must be positive")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
