package config

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot:    "~/.local/share/demix/media",
			SeparatedDir: "separated",
			UploadsDir:   "uploads",
			LogDir:       "~/.local/share/demix/logs",
		},
		Storage: Storage{
			Backend:              BackendLocal,
			Region:               "auto",
			PresignExpirySeconds: 3600,
		},
		Separator: Separator{
			Binary:         "spleeter",
			TimeoutSeconds: 1800,
		},
		Fetch: Fetch{
			Binary:         "yt-dlp",
			TimeoutSeconds: 600,
			MaxRetries:     3,
		},
		Workflow: Workflow{
			PollIntervalSeconds:       5,
			Workers:                   2,
			ErrorRetryIntervalSeconds: 10,
		},
		Reaper: Reaper{
			IntervalMinutes:       30,
			StaleThresholdMinutes: 15,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

// Recognized storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.MediaRoot, err = expandPath(c.Paths.MediaRoot); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	return nil
}
