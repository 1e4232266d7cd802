package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// MediaRoot is the root under which all durable outputs live when the
	// local backend is active, and the root for per-job working directories
	// regardless of backend.
	MediaRoot string `toml:"media_root"`
	// SeparatedDir is the sub-directory name for separation job outputs.
	SeparatedDir string `toml:"separated_dir"`
	// UploadsDir is the sub-directory name for fetched audio.
	UploadsDir string `toml:"uploads_dir"`
	LogDir     string `toml:"log_dir"`
}

// Storage selects and configures the output backend.
type Storage struct {
	// Backend is "local" or "s3".
	Backend         string `toml:"backend"`
	Bucket          string `toml:"bucket"`
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PublicURL       string `toml:"public_url"`
	// PresignExpirySeconds bounds the lifetime of source URLs handed to
	// external tools under the s3 backend.
	PresignExpirySeconds int `toml:"presign_expiry_seconds"`
}

// Separator contains configuration for the external separation tool.
type Separator struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Fetch contains configuration for the external downloader.
type Fetch struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MaxRetries bounds download attempts for a single fetch job.
	MaxRetries int `toml:"max_retries"`
}

// Workflow contains daemon timing and capacity settings.
type Workflow struct {
	PollIntervalSeconds       int `toml:"poll_interval_seconds"`
	Workers                   int `toml:"workers"`
	ErrorRetryIntervalSeconds int `toml:"error_retry_interval_seconds"`
}

// Reaper contains the stale-job sweep settings.
type Reaper struct {
	IntervalMinutes       int `toml:"interval_minutes"`
	StaleThresholdMinutes int `toml:"stale_threshold_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for demix.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Storage   Storage   `toml:"storage"`
	Separator Separator `toml:"separator"`
	Fetch     Fetch     `toml:"fetch"`
	Workflow  Workflow  `toml:"workflow"`
	Reaper    Reaper    `toml:"reaper"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/demix/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("demix.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.MediaRoot,
		c.Paths.LogDir,
		c.SeparatedRoot(),
		c.UploadsRoot(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SeparatedRoot returns the absolute directory holding separation working dirs.
func (c *Config) SeparatedRoot() string {
	return filepath.Join(c.Paths.MediaRoot, c.Paths.SeparatedDir)
}

// UploadsRoot returns the absolute directory holding fetch working dirs.
func (c *Config) UploadsRoot() string {
	return filepath.Join(c.Paths.MediaRoot, c.Paths.UploadsDir)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
