package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"reel/internal/services"
	"reel/internal/storage"
)

// Store manages transcode job persistence backed by SQLite.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle with job queue operations.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new pending job for an asset. The active-job unique index
// turns a concurrent submission for the same asset into ErrConflict.
func (s *Store) Create(ctx context.Context, assetID, sourceURL string) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO transcode_jobs (id, asset_id, status, source_url, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, assetID, StatusPending, sourceURL, timestamp, timestamp,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, services.Wrap(services.ErrConflict, "queue", "create job",
				fmt.Sprintf("asset %s already has an active job", assetID), nil)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, services.Wrap(services.ErrNotFound, "queue", "create job",
				fmt.Sprintf("asset %s does not exist", assetID), nil)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a single job.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	return getJob(ctx, s.db.Handle(), id)
}

// GetByIDIn fetches a job through the provided executor, typically a
// transaction shared with the asset store.
func (s *Store) GetByIDIn(ctx context.Context, exec storage.Execer, id string) (*Job, error) {
	return getJob(ctx, exec, id)
}

func getJob(ctx context.Context, exec storage.Execer, id string) (*Job, error) {
	row := exec.QueryRowContext(ctx,
		`SELECT id, asset_id, status, source_url, error_message, output_path,
                created_at, updated_at, started_at, finished_at, last_heartbeat
         FROM transcode_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get job",
			fmt.Sprintf("job %s does not exist", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// MarkRunning transitions a pending job to running and stamps started_at and
// the first heartbeat. Any other starting status is rejected.
func (s *Store) MarkRunning(ctx context.Context, id string) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecWithRetry(ctx,
		`UPDATE transcode_jobs
         SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRunning, now, now, now, id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}
	if err := s.requireTransition(ctx, res, id, StatusRunning); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// MarkCompleted transitions a running job to completed and records where the
// encoder left the playlist.
func (s *Store) MarkCompleted(ctx context.Context, id, outputPath string) (*Job, error) {
	if err := storage.RetryOnBusy(ctx, func() error {
		return s.markCompletedIn(ctx, s.db.Handle(), id, outputPath)
	}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// MarkCompletedIn is the transactional variant of MarkCompleted, used by the
// reconciler to commit job completion and asset manifest updates atomically.
func (s *Store) MarkCompletedIn(ctx context.Context, exec storage.Execer, id, outputPath string) error {
	return s.markCompletedIn(ctx, exec, id, outputPath)
}

func (s *Store) markCompletedIn(ctx context.Context, exec storage.Execer, id, outputPath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := exec.ExecContext(ctx,
		`UPDATE transcode_jobs
         SET status = ?, finished_at = ?, updated_at = ?, error_message = NULL, output_path = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, now, now, outputPath, id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return s.requireTransitionIn(ctx, exec, res, id, StatusCompleted)
}

// MarkFailed transitions a running job to failed and records the reason.
func (s *Store) MarkFailed(ctx context.Context, id, message string) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecWithRetry(ctx,
		`UPDATE transcode_jobs
         SET status = ?, finished_at = ?, updated_at = ?, error_message = ?
         WHERE id = ? AND status = ?`,
		StatusFailed, now, now, message, id, StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("mark failed: %w", err)
	}
	if err := s.requireTransition(ctx, res, id, StatusFailed); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) requireTransition(ctx context.Context, res sql.Result, id string, target Status) error {
	return s.requireTransitionIn(ctx, s.db.Handle(), res, id, target)
}

func (s *Store) requireTransitionIn(ctx context.Context, exec storage.Execer, res sql.Result, id string, target Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := getJob(ctx, exec, id)
	if err != nil {
		return err
	}
	return services.Wrap(services.ErrInvalidState, "queue", "transition job",
		fmt.Sprintf("job %s is %s, cannot move to %s", id, current.Status, target), nil)
}

// NextPending returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.Handle().QueryRowContext(ctx,
		`SELECT id, asset_id, status, source_url, error_message, output_path,
                created_at, updated_at, started_at, finished_at, last_heartbeat
         FROM transcode_jobs WHERE status = ?
         ORDER BY created_at ASC, id ASC LIMIT 1`, StatusPending)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return job, nil
}

// ListRecent returns up to limit jobs ordered newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Handle().QueryContext(ctx,
		`SELECT id, asset_id, status, source_url, error_message, output_path,
                created_at, updated_at, started_at, finished_at, last_heartbeat
         FROM transcode_jobs
         ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// UpdateHeartbeat refreshes the liveness stamp of a running job. It leaves
// updated_at alone so the stale-running sweep measures real progress.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecWithRetry(ctx,
		`UPDATE transcode_jobs SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		now, id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// FailStaleRunning fails running jobs whose heartbeat has gone silent for
// longer than timeout. The failed jobs are returned for logging.
func (s *Store) FailStaleRunning(ctx context.Context, timeout time.Duration) ([]*Job, error) {
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339Nano)
	rows, err := s.db.Handle().QueryContext(ctx,
		`SELECT id, asset_id, status, source_url, error_message, output_path,
                created_at, updated_at, started_at, finished_at, last_heartbeat
         FROM transcode_jobs
         WHERE status = ?
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)
           AND (started_at IS NULL OR started_at < ?)`,
		StatusRunning, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale running: %w", err)
	}
	stale, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	var failed []*Job
	for _, job := range stale {
		updated, err := s.MarkFailed(ctx, job.ID,
			fmt.Sprintf("watchdog: no heartbeat for %s", timeout))
		if err != nil {
			// Already moved to a terminal state by another path.
			if errors.Is(err, services.ErrInvalidState) {
				continue
			}
			return failed, err
		}
		failed = append(failed, updated)
	}
	return failed, nil
}

// FailAbandoned fails every running job. It runs once at daemon startup,
// when any job still marked running belongs to a dead process.
func (s *Store) FailAbandoned(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.Handle().QueryContext(ctx,
		`SELECT id, asset_id, status, source_url, error_message, output_path,
                created_at, updated_at, started_at, finished_at, last_heartbeat
         FROM transcode_jobs WHERE status = ?`, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("find abandoned: %w", err)
	}
	abandoned, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	var failed []*Job
	for _, job := range abandoned {
		updated, err := s.MarkFailed(ctx, job.ID, "daemon restarted during encode")
		if err != nil {
			return failed, err
		}
		failed = append(failed, updated)
	}
	return failed, nil
}

// QueueStats counts jobs by status.
func (s *Store) QueueStats(ctx context.Context) (Stats, error) {
	rows, err := s.db.Handle().QueryContext(ctx,
		`SELECT status, COUNT(1) FROM transcode_jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusRunning:
			stats.Running = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job           Job
		status        string
		errorMessage  sql.NullString
		outputPath    sql.NullString
		createdAt     string
		updatedAt     string
		startedAt     sql.NullString
		finishedAt    sql.NullString
		lastHeartbeat sql.NullString
	)
	if err := row.Scan(
		&job.ID, &job.AssetID, &status, &job.SourceURL, &errorMessage, &outputPath,
		&createdAt, &updatedAt, &startedAt, &finishedAt, &lastHeartbeat,
	); err != nil {
		return nil, err
	}

	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	job.Status = parsed
	job.ErrorMessage = errorMessage.String
	job.OutputPath = outputPath.String

	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseNullableTimestamp(startedAt); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = parseNullableTimestamp(finishedAt); err != nil {
		return nil, err
	}
	if job.LastHeartbeat, err = parseNullableTimestamp(lastHeartbeat); err != nil {
		return nil, err
	}
	return &job, nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts.UTC(), nil
}

func parseNullableTimestamp(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	ts, err := parseTimestamp(value.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
