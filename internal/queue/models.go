package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status identifies a transcode job's lifecycle state. Jobs move strictly
// forward: pending to running, then to exactly one of completed or failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusRunning:
		return StatusRunning, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("unknown job status %q", value)
	}
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String returns the status as stored in the database.
func (s Status) String() string {
	return string(s)
}

// Job is one transcode request for a video asset. OutputPath is empty until
// the job completes and records where the playlist landed on disk.
type Job struct {
	ID            string
	AssetID       string
	Status        Status
	SourceURL     string
	ErrorMessage  string
	OutputPath    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

// Stats summarizes queue composition by status.
type Stats struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// Total returns the number of jobs across all statuses.
func (s Stats) Total() int {
	return s.Pending + s.Running + s.Completed + s.Failed
}
