package workflow_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reel/internal/encoding"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

type fakeInvoker struct {
	mu     sync.Mutex
	calls  []encoding.Request
	encode func(ctx context.Context, req encoding.Request) (encoding.Result, error)
}

func (f *fakeInvoker) Encode(ctx context.Context, req encoding.Request) (encoding.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.encode != nil {
		return f.encode(ctx, req)
	}
	return encoding.Result{ManifestPath: req.OutputDir + "/" + encoding.ManifestFilename}, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitForStatus(t *testing.T, jobs *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := jobs.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func runManager(t *testing.T, m *workflow.Manager) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil && ctx.Err() == nil {
			t.Errorf("Run returned error: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			t.Fatalf("manager did not stop")
		}
	})
	return cancel
}

func TestManagerCompletesJobAndStampsManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")
	job := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)

	invoker := &fakeInvoker{}
	manager := workflow.NewManager(cfg, db, jobs, assets, invoker, logging.NewNop())
	runManager(t, manager)

	done := waitForStatus(t, jobs, job.ID, queue.StatusCompleted)
	if done.FinishedAt == nil {
		t.Fatalf("completed job should have finished_at")
	}
	if done.OutputPath != encoding.ManifestPath(cfg.Paths.MediaRoot, asset.ID) {
		t.Fatalf("output path = %q", done.OutputPath)
	}

	updated, err := assets.GetByID(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	want := encoding.ManifestURL(cfg.Public.BaseURL, asset.ID)
	if updated.ManifestURL != want {
		t.Fatalf("manifest url = %q, want %q", updated.ManifestURL, want)
	}

	if invoker.callCount() != 1 {
		t.Fatalf("expected exactly one encode, got %d", invoker.callCount())
	}
}

func TestManagerRecordsEncodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")
	job := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)

	invoker := &fakeInvoker{
		encode: func(ctx context.Context, req encoding.Request) (encoding.Result, error) {
			return encoding.Result{}, services.Wrap(services.ErrEncode, "encoding", "encode",
				"encoder exited with code 1", nil)
		},
	}
	manager := workflow.NewManager(cfg, db, jobs, assets, invoker, logging.NewNop())
	runManager(t, manager)

	failed := waitForStatus(t, jobs, job.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatalf("failed job should carry an error message")
	}

	// Failures never touch the asset.
	updated, err := assets.GetByID(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if updated.ManifestURL != "" {
		t.Fatalf("failed encode must not stamp manifest, got %q", updated.ManifestURL)
	}
}

func TestManagerProcessesMultipleJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)

	var ids []string
	for i := 0; i < 3; i++ {
		asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")
		job := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)
		ids = append(ids, job.ID)
	}

	invoker := &fakeInvoker{}
	manager := workflow.NewManager(cfg, db, jobs, assets, invoker, logging.NewNop())
	runManager(t, manager)

	for _, id := range ids {
		waitForStatus(t, jobs, id, queue.StatusCompleted)
	}
	if invoker.callCount() != 3 {
		t.Fatalf("expected 3 encodes, got %d", invoker.callCount())
	}
}

func TestFailedReencodeKeepsPriorRendition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	ctx := context.Background()
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")

	// First encode succeeds and writes a playlist; every later encode for
	// the asset fails before producing anything.
	var encodes atomic.Int32
	invoker := &fakeInvoker{
		encode: func(ctx context.Context, req encoding.Request) (encoding.Result, error) {
			if encodes.Add(1) > 1 {
				return encoding.Result{}, services.Wrap(services.ErrSpawn, "encoding", "encode",
					"start encoder: executable not found", nil)
			}
			if err := encoding.EnsureOutputDir(req.OutputDir); err != nil {
				return encoding.Result{}, err
			}
			manifest := encoding.ManifestPath(cfg.Paths.MediaRoot, req.AssetID)
			if err := os.WriteFile(manifest, []byte("#EXTM3U\n#EXT-X-ENDLIST\n"), 0o644); err != nil {
				return encoding.Result{}, err
			}
			return encoding.Result{ManifestPath: manifest}, nil
		},
	}
	manager := workflow.NewManager(cfg, db, jobs, assets, invoker, logging.NewNop())
	runManager(t, manager)

	first := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)
	waitForStatus(t, jobs, first.ID, queue.StatusCompleted)

	second := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)
	waitForStatus(t, jobs, second.ID, queue.StatusFailed)

	// The asset still advertises the first rendition, so its files must
	// survive the failed re-encode.
	manifest := encoding.ManifestPath(cfg.Paths.MediaRoot, asset.ID)
	if _, err := os.Stat(manifest); err != nil {
		t.Fatalf("prior rendition should survive a failed re-encode: %v", err)
	}
	updated, err := assets.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if updated.ManifestURL != encoding.ManifestURL(cfg.Public.BaseURL, asset.ID) {
		t.Fatalf("manifest url should be untouched, got %q", updated.ManifestURL)
	}
}

func TestManagerFailsAbandonedJobsAtStartup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")
	job := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)
	if _, err := jobs.MarkRunning(context.Background(), job.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	invoker := &fakeInvoker{}
	manager := workflow.NewManager(cfg, db, jobs, assets, invoker, logging.NewNop())
	runManager(t, manager)

	failed := waitForStatus(t, jobs, job.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatalf("abandoned job should carry a reason")
	}
	if invoker.callCount() != 0 {
		t.Fatalf("abandoned job must not be re-encoded")
	}
}

func TestReconcilerCompletesAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")
	job := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)
	running, err := jobs.MarkRunning(ctx, job.ID)
	if err != nil {
		t.Fatalf("mark running: %v", err)
	}

	manifestPath := encoding.ManifestPath(cfg.Paths.MediaRoot, asset.ID)
	reconciler := workflow.NewReconciler(db, jobs, assets, cfg.Public.BaseURL, logging.NewNop())
	if err := reconciler.Complete(ctx, running, manifestPath); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	done, err := jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if done.Status != queue.StatusCompleted {
		t.Fatalf("job status = %s, want completed", done.Status)
	}
	if done.OutputPath != manifestPath {
		t.Fatalf("output path = %q, want %q", done.OutputPath, manifestPath)
	}

	updated, err := assets.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if updated.ManifestURL != encoding.ManifestURL(cfg.Public.BaseURL, asset.ID) {
		t.Fatalf("manifest url = %q", updated.ManifestURL)
	}
}

func TestReconcilerRejectsNonRunningJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")
	job := testsupport.NewJob(t, jobs, asset.ID, asset.SourceURL)

	reconciler := workflow.NewReconciler(db, jobs, assets, cfg.Public.BaseURL, logging.NewNop())
	err := reconciler.Complete(ctx, job, encoding.ManifestPath(cfg.Paths.MediaRoot, asset.ID))
	if !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending job, got %v", err)
	}

	// The rejected completion must not leak a manifest onto the asset.
	updated, err := assets.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if updated.ManifestURL != "" {
		t.Fatalf("asset should be untouched, got manifest %q", updated.ManifestURL)
	}
}
