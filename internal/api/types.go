package api

import (
	"time"

	"reel/internal/media"
	"reel/internal/queue"
)

// SubmitJobRequest is the body of POST /api/jobs. SourceURL optionally
// overrides the asset's registered source for this job only.
type SubmitJobRequest struct {
	AssetID   string `json:"asset_id"`
	SourceURL string `json:"source_url,omitempty"`
}

// CreateAssetRequest is the body of POST /api/assets. The descriptive
// fields are optional.
type CreateAssetRequest struct {
	Title        string `json:"title"`
	SourceURL    string `json:"source_url"`
	DurationSec  *int64 `json:"duration_sec,omitempty"`
	Format       string `json:"format,omitempty"`
	SizeBytes    *int64 `json:"size_bytes,omitempty"`
	SubtitlesURL string `json:"subtitles_url,omitempty"`
}

// JobPayload is the wire form of a transcode job.
type JobPayload struct {
	ID         string     `json:"id"`
	AssetID    string     `json:"asset_id"`
	Status     string     `json:"status"`
	SourceURL  string     `json:"source_url"`
	Error      string     `json:"error,omitempty"`
	OutputPath string     `json:"output_path,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// AssetPayload is the wire form of a video asset.
type AssetPayload struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SourceURL    string    `json:"source_url"`
	ManifestURL  string    `json:"manifest_url,omitempty"`
	DurationSec  *int64    `json:"duration_sec,omitempty"`
	Format       string    `json:"format,omitempty"`
	SizeBytes    *int64    `json:"size_bytes,omitempty"`
	SubtitlesURL string    `json:"subtitles_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// JobListPayload wraps GET /api/jobs responses.
type JobListPayload struct {
	Jobs []JobPayload `json:"jobs"`
}

// StatusPayload reports daemon health and queue composition.
type StatusPayload struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// ErrorPayload is the body of every non-2xx response.
type ErrorPayload struct {
	Error string `json:"error"`
}

// JobFromQueue converts a stored job to its wire form.
func JobFromQueue(job *queue.Job) JobPayload {
	return JobPayload{
		ID:         job.ID,
		AssetID:    job.AssetID,
		Status:     job.Status.String(),
		SourceURL:  job.SourceURL,
		Error:      job.ErrorMessage,
		OutputPath: job.OutputPath,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
}

// JobsFromQueue converts a job slice to wire form, never returning nil so
// empty lists marshal as [].
func JobsFromQueue(jobs []*queue.Job) []JobPayload {
	payloads := make([]JobPayload, 0, len(jobs))
	for _, job := range jobs {
		payloads = append(payloads, JobFromQueue(job))
	}
	return payloads
}

// AssetFromMedia converts a stored asset to its wire form.
func AssetFromMedia(asset *media.Asset) AssetPayload {
	return AssetPayload{
		ID:           asset.ID,
		Title:        asset.Title,
		SourceURL:    asset.SourceURL,
		ManifestURL:  asset.ManifestURL,
		DurationSec:  asset.DurationSec,
		Format:       asset.Format,
		SizeBytes:    asset.SizeBytes,
		SubtitlesURL: asset.SubtitlesURL,
		CreatedAt:    asset.CreatedAt,
		UpdatedAt:    asset.UpdatedAt,
	}
}

// StatusFromStats converts queue stats to wire form.
func StatusFromStats(stats queue.Stats) StatusPayload {
	return StatusPayload{
		Pending:   stats.Pending,
		Running:   stats.Running,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Total:     stats.Total(),
	}
}
