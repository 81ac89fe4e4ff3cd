package queue

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status represents the lifecycle of a denoising job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusFetching   Status = "fetching"
	StatusExtracting Status = "extracting"
	StatusEnhancing  Status = "enhancing"
	StatusRemuxing   Status = "remuxing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusExtracting,
	StatusEnhancing,
	StatusRemuxing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching:   {},
	StatusExtracting: {},
	StatusEnhancing:  {},
	StatusRemuxing:   {},
}

// SourceType distinguishes local uploads from remote URLs.
type SourceType string

const (
	SourceLocal  SourceType = "local"
	SourceRemote SourceType = "remote"
)

// AudioOnlyExtensions are routed through the audio-only remux path. Anything
// else is treated as audio+video and forced into an .mp4 container.
var AudioOnlyExtensions = []string{".wav", ".mp3", ".m4a", ".aac", ".flac"}

// VideoExtensions are the accepted audio+video containers for local sources.
var VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// IsSupportedExt reports whether a local source extension is accepted.
func IsSupportedExt(ext string) bool {
	if IsAudioOnlyExt(ext) {
		return true
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, candidate := range VideoExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// IsAudioOnlyExt reports whether the extension belongs to an audio-only container.
func IsAudioOnlyExt(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, candidate := range AudioOnlyExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Job represents one denoising request persisted in SQLite.
type Job struct {
	ID              int64
	CorrelationID   string
	Source          string
	SourceType      SourceType
	OriginalName    string
	AttenuationDB   int
	Status          Status
	WorkspaceDir    string
	FetchedFile     string
	ExtractedWAV    string
	EnhancedWAV     string
	OutputFile      string
	OutputName      string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
}

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

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsTerminal reports whether the job reached a terminal state. Re-entry after
// a terminal state requires a new job.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// IsAudioOnly classifies the job by its original file extension.
func (j Job) IsAudioOnly() bool {
	return IsAudioOnlyExt(filepath.Ext(j.OriginalName))
}

// DeriveOutputName computes `{base}_{atten}db{ext}` where ext is the original
// extension for audio-only sources and .mp4 otherwise.
func (j Job) DeriveOutputName() string {
	ext := filepath.Ext(j.OriginalName)
	base := strings.TrimSuffix(j.OriginalName, ext)
	if !IsAudioOnlyExt(ext) {
		ext = ".mp4"
	}
	return fmt.Sprintf("%s_%ddb%s", base, j.AttenuationDB, ext)
}

// Duration returns wall-clock processing time when both endpoints are known.
func (j Job) Duration() (time.Duration, bool) {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0, false
	}
	return j.FinishedAt.Sub(*j.StartedAt), true
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.ProgressStage = "Failed"
}
