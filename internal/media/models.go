package media

import "time"

// Asset is a video known to the system. ManifestURL is empty until a
// transcode job completes and reconciliation records the playable output.
// The descriptive fields are optional and supplied at registration.
type Asset struct {
	ID           string
	Title        string
	SourceURL    string
	ManifestURL  string
	DurationSec  *int64
	Format       string
	SizeBytes    *int64
	SubtitlesURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Playable reports whether the asset has a recorded manifest.
func (a *Asset) Playable() bool {
	return a != nil && a.ManifestURL != ""
}

// CreateParams carries the caller-supplied fields for a new asset. Only
// Title and SourceURL are required.
type CreateParams struct {
	Title        string
	SourceURL    string
	DurationSec  *int64
	Format       string
	SizeBytes    *int64
	SubtitlesURL string
}
