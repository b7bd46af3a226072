package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
)

const (
	// DefaultListLimit applies when a jobs listing names no limit.
	DefaultListLimit = 20
	// MaxListLimit caps jobs listings.
	MaxListLimit = 50
)

// Service implements job admission and queries over the stores. It owns the
// request-level validation; state rules live in the stores themselves.
type Service struct {
	jobs   *queue.Store
	assets *media.Store
}

// NewService builds the admission and query service.
func NewService(jobs *queue.Store, assets *media.Store) *Service {
	return &Service{jobs: jobs, assets: assets}
}

// Submit admits a transcode job for an asset. The source defaults to the
// asset's registered URL; a per-job override must be an absolute http(s)
// URL. Admission fails when the asset is unknown or already has an active
// job.
func (s *Service) Submit(ctx context.Context, req SubmitJobRequest) (*queue.Job, error) {
	assetID := strings.TrimSpace(req.AssetID)
	if assetID == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "submit job", "asset_id is required", nil)
	}

	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	sourceURL := strings.TrimSpace(req.SourceURL)
	if sourceURL == "" {
		sourceURL = asset.SourceURL
	} else if err := validateHTTPURL("source_url", sourceURL); err != nil {
		return nil, err
	}

	return s.jobs.Create(ctx, asset.ID, sourceURL)
}

// GetStatus fetches one job by id.
func (s *Service) GetStatus(ctx context.Context, jobID string) (*queue.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "get job", "job id is required", nil)
	}
	return s.jobs.GetByID(ctx, jobID)
}

// ListRecent returns recent jobs, newest first. Limits outside 1..50 are
// clamped; zero means the default page size.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*queue.Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.jobs.ListRecent(ctx, limit)
}

// CreateAsset registers a new video asset. The optional descriptive fields
// are validated when present and stored verbatim.
func (s *Service) CreateAsset(ctx context.Context, req CreateAssetRequest) (*media.Asset, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "create asset", "title is required", nil)
	}
	sourceURL := strings.TrimSpace(req.SourceURL)
	if sourceURL == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "create asset", "source_url is required", nil)
	}
	if err := validateHTTPURL("source_url", sourceURL); err != nil {
		return nil, err
	}
	if req.DurationSec != nil && *req.DurationSec < 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "create asset", "duration_sec must not be negative", nil)
	}
	if req.SizeBytes != nil && *req.SizeBytes < 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "create asset", "size_bytes must not be negative", nil)
	}
	subtitlesURL := strings.TrimSpace(req.SubtitlesURL)
	if subtitlesURL != "" {
		if err := validateHTTPURL("subtitles_url", subtitlesURL); err != nil {
			return nil, err
		}
	}
	return s.assets.Create(ctx, media.CreateParams{
		Title:        title,
		SourceURL:    sourceURL,
		DurationSec:  req.DurationSec,
		Format:       strings.TrimSpace(req.Format),
		SizeBytes:    req.SizeBytes,
		SubtitlesURL: subtitlesURL,
	})
}

// GetAsset fetches one asset by id.
func (s *Service) GetAsset(ctx context.Context, assetID string) (*media.Asset, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "get asset", "asset id is required", nil)
	}
	return s.assets.GetByID(ctx, assetID)
}

// Status reports queue composition.
func (s *Service) Status(ctx context.Context) (queue.Stats, error) {
	return s.jobs.QueueStats(ctx)
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return services.Wrap(services.ErrValidation, "api", "validate url",
			fmt.Sprintf("%s %q must be an absolute http(s) URL", field, raw), nil)
	}
	return nil
}
