package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reel/internal/encoding"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/storage"
)

// Reconciler records encode outcomes. Completion writes the job transition
// and the asset's manifest URL in one transaction; the manifest URL is
// derived from the asset id alone, never from encoder output.
type Reconciler struct {
	db      *storage.DB
	jobs    *queue.Store
	assets  *media.Store
	baseURL string
	logger  *slog.Logger
}

// NewReconciler builds a reconciler over the shared database handle.
func NewReconciler(db *storage.DB, jobs *queue.Store, assets *media.Store, baseURL string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		db:      db,
		jobs:    jobs,
		assets:  assets,
		baseURL: baseURL,
		logger:  logging.WithComponent(logger, "reconciler"),
	}
}

// Complete marks the job completed, records the playlist's on-disk location,
// and stamps the asset's manifest URL. If the asset vanished since admission
// the job still completes and the orphaned manifest is logged for operator
// cleanup; the job's output path points at the dangling files.
func (r *Reconciler) Complete(ctx context.Context, job *queue.Job, outputPath string) error {
	manifestURL := encoding.ManifestURL(r.baseURL, job.AssetID)

	return storage.RetryOnBusy(ctx, func() error {
		tx, err := r.db.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("begin reconcile tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := r.jobs.MarkCompletedIn(ctx, tx, job.ID, outputPath); err != nil {
			return err
		}

		if err := r.assets.SetManifestURLIn(ctx, tx, job.AssetID, manifestURL); err != nil {
			if !errors.Is(err, services.ErrNotFound) {
				return err
			}
			r.logger.Warn("orphaned manifest: asset deleted during encode",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldAssetID, job.AssetID),
				logging.String("manifest_url", manifestURL),
				logging.String("output_path", outputPath))
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reconcile tx: %w", err)
		}
		return nil
	})
}
