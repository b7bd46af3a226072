package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reel/internal/config"
	"reel/internal/encoding"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/storage"
)

// Manager drives jobs through the queue: it claims pending work, runs the
// encoder under a concurrency limit, keeps heartbeats fresh, and hands
// finished encodes to the reconciler.
type Manager struct {
	cfg        *config.Config
	jobs       *queue.Store
	invoker    encoding.Invoker
	reconciler *Reconciler
	logger     *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewManager wires the workflow together. A nil logger is replaced with a
// no-op logger.
func NewManager(cfg *config.Config, db *storage.DB, jobs *queue.Store, assets *media.Store, invoker encoding.Invoker, logger *slog.Logger) *Manager {
	limit := cfg.Workflow.MaxConcurrentEncodes
	if limit <= 0 {
		limit = 1
	}
	return &Manager{
		cfg:        cfg,
		jobs:       jobs,
		invoker:    invoker,
		reconciler: NewReconciler(db, jobs, assets, cfg.Public.BaseURL, logger),
		logger:     logging.WithComponent(logger, "workflow"),
		sem:        make(chan struct{}, limit),
	}
}

// Run processes the queue until ctx is canceled. Jobs still marked running
// from a previous process are failed before polling starts.
func (m *Manager) Run(ctx context.Context) error {
	abandoned, err := m.jobs.FailAbandoned(ctx)
	if err != nil {
		return err
	}
	for _, job := range abandoned {
		m.logger.Warn("failed abandoned job",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldAssetID, job.AssetID))
	}

	pollInterval := time.Duration(m.cfg.Workflow.QueuePollInterval) * time.Second
	watchdogInterval := time.Duration(m.cfg.Workflow.HeartbeatTimeout) * time.Second / 2
	if watchdogInterval <= 0 {
		watchdogInterval = pollInterval
	}

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	watchdog := time.NewTicker(watchdogInterval)
	defer watchdog.Stop()

	m.logger.Info("workflow started",
		logging.Int("max_concurrent_encodes", cap(m.sem)),
		logging.Duration("poll_interval", pollInterval))

	m.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			m.logger.Info("workflow stopped")
			return nil
		case <-poll.C:
			m.dispatch(ctx)
		case <-watchdog.C:
			m.sweepStale(ctx)
		}
	}
}

// dispatch claims pending jobs until the queue is empty or every encode
// slot is busy.
func (m *Manager) dispatch(ctx context.Context) {
	for {
		select {
		case m.sem <- struct{}{}:
		default:
			return
		}

		job, err := m.claim(ctx)
		if err != nil {
			<-m.sem
			if ctx.Err() == nil {
				m.logger.Error("claim pending job", logging.Error(err))
			}
			return
		}
		if job == nil {
			<-m.sem
			return
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() { <-m.sem }()
			m.runJob(ctx, job)
		}()
	}
}

func (m *Manager) claim(ctx context.Context) (*queue.Job, error) {
	job, err := m.jobs.NextPending(ctx)
	if err != nil || job == nil {
		return nil, err
	}
	running, err := m.jobs.MarkRunning(ctx, job.ID)
	if err != nil {
		// Another claimer won the race; nothing to run.
		if errors.Is(err, services.ErrInvalidState) {
			return nil, nil
		}
		return nil, err
	}
	return running, nil
}

func (m *Manager) runJob(ctx context.Context, job *queue.Job) {
	logger := m.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldAssetID, job.AssetID),
	)
	logger.Info("encode started", logging.String("source_url", job.SourceURL))

	stopHeartbeat := m.startHeartbeat(ctx, job.ID)
	outputDir := encoding.OutputDir(m.cfg.Paths.MediaRoot, job.AssetID)
	result, encodeErr := m.invoker.Encode(ctx, encoding.Request{
		JobID:     job.ID,
		AssetID:   job.AssetID,
		SourceURL: job.SourceURL,
		OutputDir: outputDir,
	})
	stopHeartbeat()

	if encodeErr != nil {
		m.failJob(ctx, job, encodeErr, logger)
		return
	}

	if err := m.reconciler.Complete(ctx, job, result.ManifestPath); err != nil {
		m.failJob(ctx, job, err, logger)
		return
	}
	logger.Info("encode completed", logging.String("manifest_path", result.ManifestPath))
}

// failJob records the failure and nothing else. Output files are left in
// place: a prior completed rendition may live in the same directory, and the
// asset's manifest URL still points at it.
func (m *Manager) failJob(ctx context.Context, job *queue.Job, cause error, logger *slog.Logger) {
	// The daemon is shutting down; leave the row to the startup sweep.
	if ctx.Err() != nil {
		logger.Warn("encode interrupted by shutdown")
		return
	}

	if _, err := m.jobs.MarkFailed(ctx, job.ID, services.Message(cause)); err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			// The watchdog got there first.
			logger.Warn("job already terminal", logging.Error(cause))
			return
		}
		logger.Error("record job failure", logging.Error(err))
		return
	}
	logger.Error("encode failed", logging.Error(cause))
}

// startHeartbeat refreshes the job's liveness stamp until the returned stop
// function is called.
func (m *Manager) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := time.Duration(m.cfg.Workflow.HeartbeatInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	var once sync.Once

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.jobs.UpdateHeartbeat(ctx, jobID); err != nil && ctx.Err() == nil {
					m.logger.Warn("update heartbeat",
						logging.String(logging.FieldJobID, jobID),
						logging.Error(err))
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (m *Manager) sweepStale(ctx context.Context) {
	timeout := time.Duration(m.cfg.Workflow.HeartbeatTimeout) * time.Second
	failed, err := m.jobs.FailStaleRunning(ctx, timeout)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("stale job sweep", logging.Error(err))
		}
		return
	}
	for _, job := range failed {
		m.logger.Warn("failed stuck job",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldAssetID, job.AssetID),
			logging.Duration("heartbeat_timeout", timeout))
	}
}
