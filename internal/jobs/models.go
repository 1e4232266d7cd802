package jobs

import (
	"path"
	"strings"
	"time"

	"demix/internal/textutil"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// StaleReason is the error message set when the reaper force-fails a job.
const StaleReason = "Operation timed out"

var allStatuses = []Status{StatusPending, StatusInProgress, StatusDone, StatusError}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Kind identifies what work a job performs.
type Kind string

const (
	KindStaticMix  Kind = "static_mix"
	KindDynamicMix Kind = "dynamic_mix"
	KindFetch      Kind = "fetch"
)

// OutputKind names one artifact a job produces.
type OutputKind string

const (
	OutputMix    OutputKind = "mix"
	OutputVocals OutputKind = "vocals"
	OutputOther  OutputKind = "other"
	OutputBass   OutputKind = "bass"
	OutputDrums  OutputKind = "drums"
	OutputAudio  OutputKind = "audio"
)

// StemKinds is the fixed output set of a dynamic mix.
var StemKinds = []OutputKind{OutputVocals, OutputOther, OutputBass, OutputDrums}

// StemSelection holds the requested parts of a static mix.
type StemSelection struct {
	Vocals bool
	Drums  bool
	Bass   bool
	Other  bool
}

// Any reports whether at least one stem is selected.
func (s StemSelection) Any() bool {
	return s.Vocals || s.Drums || s.Bass || s.Other
}

// Job is one unit of asynchronous work persisted in SQLite.
type Job struct {
	// ID is assigned at insert and never changes; storage paths and the
	// working directory derive from it.
	ID           string
	Kind         Kind
	Status       Status
	ErrorMessage string

	// SourceID references the owning source record. For mixes it names the
	// track to separate; for fetches it names the record that receives the
	// downloaded audio.
	SourceID string

	// Artist and Title drive output file naming.
	Artist string
	Title  string
	// Link is the remote location a fetch job downloads. Fetch only.
	Link string
	// Stems is the requested part selection. Static mixes only.
	Stems StemSelection

	// Outputs maps output kind to its committed storage ref. Set if and
	// only if Status is StatusDone.
	Outputs map[OutputKind]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpectedOutputs returns the artifact set the job must produce to be Done.
func (j *Job) ExpectedOutputs() []OutputKind {
	switch j.Kind {
	case KindStaticMix:
		return []OutputKind{OutputMix}
	case KindDynamicMix:
		return append([]OutputKind(nil), StemKinds...)
	case KindFetch:
		return []OutputKind{OutputAudio}
	default:
		return nil
	}
}

// OutputFileName returns the conventional file name for an output kind inside
// the job's working directory.
func (j *Job) OutputFileName(kind OutputKind) string {
	switch kind {
	case OutputVocals, OutputOther, OutputBass, OutputDrums:
		if j.Kind == KindDynamicMix {
			return string(kind) + ".mp3"
		}
	case OutputMix:
		return j.slugName() + ".mp3"
	case OutputAudio:
		ext := strings.ToLower(path.Ext(j.Link))
		if ext == "" || len(ext) > 5 {
			ext = ".mp3"
		}
		return j.slugName() + ext
	}
	return string(kind)
}

func (j *Job) slugName() string {
	name := strings.TrimSpace(j.Artist)
	if title := strings.TrimSpace(j.Title); title != "" {
		if name != "" {
			name += " - "
		}
		name += title
	}
	return textutil.Slug(name)
}

// Source owns the durable audio a fetch job acquires and separation jobs read.
type Source struct {
	ID     string
	Artist string
	Title  string
	// OutputRef is the committed storage ref of the source audio; empty
	// until a fetch completes or an upload records it directly.
	OutputRef string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	InProgress int
	Done       int
	Errored    int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	SchemaVersion    string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
