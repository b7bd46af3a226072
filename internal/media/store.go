package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reel/internal/services"
	"reel/internal/storage"
)

// Store manages video asset persistence backed by SQLite.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle with asset operations.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Create registers a new asset and returns the stored record.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Asset, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO video_assets (id, title, source_url, duration_sec, format, size_bytes, subtitles_url, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, params.Title, params.SourceURL,
		nullableInt64(params.DurationSec), nullableString(params.Format),
		nullableInt64(params.SizeBytes), nullableString(params.SubtitlesURL),
		timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a single asset.
func (s *Store) GetByID(ctx context.Context, id string) (*Asset, error) {
	return getAsset(ctx, s.db.Handle(), id)
}

// GetByIDIn fetches an asset through the provided executor.
func (s *Store) GetByIDIn(ctx context.Context, exec storage.Execer, id string) (*Asset, error) {
	return getAsset(ctx, exec, id)
}

func getAsset(ctx context.Context, exec storage.Execer, id string) (*Asset, error) {
	row := exec.QueryRowContext(ctx,
		`SELECT id, title, source_url, manifest_url, duration_sec, format, size_bytes, subtitles_url, created_at, updated_at
         FROM video_assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "media", "get asset",
			fmt.Sprintf("asset %s does not exist", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// SetManifestURL records the playable manifest for an asset.
func (s *Store) SetManifestURL(ctx context.Context, id, manifestURL string) error {
	return storage.RetryOnBusy(ctx, func() error {
		return s.SetManifestURLIn(ctx, s.db.Handle(), id, manifestURL)
	})
}

// SetManifestURLIn is the transactional variant of SetManifestURL, used by
// the reconciler alongside job completion.
func (s *Store) SetManifestURLIn(ctx context.Context, exec storage.Execer, id, manifestURL string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := exec.ExecContext(ctx,
		`UPDATE video_assets SET manifest_url = ?, updated_at = ? WHERE id = ?`,
		manifestURL, now, id,
	)
	if err != nil {
		return fmt.Errorf("set manifest url: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "media", "set manifest url",
			fmt.Sprintf("asset %s does not exist", id), nil)
	}
	return nil
}

// List returns all assets ordered newest first.
func (s *Store) List(ctx context.Context) ([]*Asset, error) {
	rows, err := s.db.Handle().QueryContext(ctx,
		`SELECT id, title, source_url, manifest_url, duration_sec, format, size_bytes, subtitles_url, created_at, updated_at
         FROM video_assets ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		asset        Asset
		manifestURL  sql.NullString
		durationSec  sql.NullInt64
		format       sql.NullString
		sizeBytes    sql.NullInt64
		subtitlesURL sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(&asset.ID, &asset.Title, &asset.SourceURL, &manifestURL,
		&durationSec, &format, &sizeBytes, &subtitlesURL, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	asset.ManifestURL = manifestURL.String
	asset.Format = format.String
	asset.SubtitlesURL = subtitlesURL.String
	if durationSec.Valid {
		v := durationSec.Int64
		asset.DurationSec = &v
	}
	if sizeBytes.Valid {
		v := sizeBytes.Int64
		asset.SizeBytes = &v
	}

	var err error
	if asset.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if asset.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &asset, nil
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts.UTC(), nil
}
