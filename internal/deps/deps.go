// Package deps checks the external binaries demix shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"demix/internal/config"
)

// Requirement defines an external dependency demix relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// RequirementsFor builds the dependency list for the configured tools.
func RequirementsFor(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Separation engine",
			Command:     cfg.Separator.Binary,
			Description: "Splits source audio into stems",
		},
		{
			Name:        "Downloader",
			Command:     cfg.Fetch.Binary,
			Description: "Fetches source audio from remote links",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Audio transcoding backend for both tools",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired filters the statuses down to unavailable required tools.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
