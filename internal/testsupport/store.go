package testsupport

import (
	"context"
	"testing"

	"reel/internal/config"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/storage"
)

// MustOpenDB opens the shared database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *storage.DB {
	t.Helper()

	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// MustOpenStores opens the job and asset stores over one shared database.
func MustOpenStores(t testing.TB, cfg *config.Config) (*queue.Store, *media.Store, *storage.DB) {
	t.Helper()

	db := MustOpenDB(t, cfg)
	return queue.NewStore(db), media.NewStore(db), db
}

// NewAsset creates an asset for tests using the provided store.
func NewAsset(t testing.TB, store *media.Store, title, sourceURL string) *media.Asset {
	t.Helper()

	asset, err := store.Create(context.Background(), media.CreateParams{Title: title, SourceURL: sourceURL})
	if err != nil {
		t.Fatalf("media.Create: %v", err)
	}
	return asset
}

// NewJob creates a pending job for tests using the provided stores.
func NewJob(t testing.TB, jobs *queue.Store, assetID, sourceURL string) *queue.Job {
	t.Helper()

	job, err := jobs.Create(context.Background(), assetID, sourceURL)
	if err != nil {
		t.Fatalf("queue.Create: %v", err)
	}
	return job
}
