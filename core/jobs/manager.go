// Package jobs runs analysis pipelines in the background and records every
// lifecycle step in the cache store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/codetime/core/ingest"
	"github.com/huangsam/codetime/core/synth"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/metrics"
	"github.com/huangsam/codetime/schema"
)

// Options bound how many pipelines run and for how long.
type Options struct {
	Workers    int
	JobTimeout time.Duration
	MaxCommits int // Used when a request does not set one
}

// OptionsFromConfig reads the manager options from cfg.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{Workers: cfg.Workers, JobTimeout: cfg.JobTimeout, MaxCommits: cfg.MaxCommits}
}

// Manager owns the analysis job lifecycle. A job id has at most one running
// pipeline; the store is the single source of truth for its status.
type Manager struct {
	store       contract.CacheStore
	ingestor    *ingest.Ingestor
	synthesizer *synth.Synthesizer
	metrics     *metrics.Metrics
	opts        Options

	slots   chan struct{} // Worker slots
	mu      sync.Mutex    // Serializes submit decisions
	running map[string]struct{}
	wg      sync.WaitGroup

	ctx    context.Context // Parent of every pipeline
	cancel context.CancelFunc
}

// NewManager creates a Manager. m may be nil when metrics are not collected.
func NewManager(store contract.CacheStore, ingestor *ingest.Ingestor, synthesizer *synth.Synthesizer, m *metrics.Metrics, opts Options) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = contract.DefaultWorkers
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout, _ = time.ParseDuration(contract.DefaultJobTimeout)
	}
	if opts.MaxCommits <= 0 {
		opts.MaxCommits = contract.DefaultMaxCommits
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:       store,
		ingestor:    ingestor,
		synthesizer: synthesizer,
		metrics:     m,
		opts:        opts,
		slots:       make(chan struct{}, opts.Workers),
		running:     make(map[string]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit registers an analysis for repoURL and returns immediately.
// A completed analysis is returned as cached without re-running, and a job
// that is already running is never started twice.
func (m *Manager) Submit(ctx context.Context, repoURL string, maxCommits int) (schema.SubmitResult, error) {
	normalized, err := contract.NormalizeRepoURL(repoURL)
	if err != nil {
		return schema.SubmitResult{}, err
	}
	if maxCommits <= 0 {
		maxCommits = m.opts.MaxCommits
	}
	if maxCommits > contract.MaxCommitsLimit {
		return schema.SubmitResult{}, fmt.Errorf("%w: max_commits cannot exceed %d (received %d)", contract.ErrInvalidInput, contract.MaxCommitsLimit, maxCommits)
	}
	repoID := contract.RepoID(normalized)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return schema.SubmitResult{}, errors.New("job manager is shutting down")
	}

	// --- 1. In flight ---
	if _, ok := m.running[repoID]; ok {
		status := schema.PendingStatus
		if entry, found, err := m.store.Get(ctx, repoID); err == nil && found {
			status = entry.Status
		}
		return schema.SubmitResult{RepoID: repoID, Status: status}, nil
	}

	// --- 2. Cached ---
	entry, found, err := m.store.Get(ctx, repoID)
	if err != nil {
		return schema.SubmitResult{}, fmt.Errorf("failed to read analysis %s: %w", repoID, err)
	}
	if found && entry.Status == schema.CompletedStatus {
		m.metrics.ObserveCached()
		return schema.SubmitResult{RepoID: repoID, Status: schema.CompletedStatus, Cached: true}, nil
	}

	// --- 3. New run ---
	now := time.Now()
	job := &schema.CacheEntry{
		RepoID:     repoID,
		RepoURL:    normalized,
		MaxCommits: maxCommits,
		Status:     schema.PendingStatus,
		RunID:      uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.Put(ctx, repoID, job); err != nil {
		return schema.SubmitResult{}, fmt.Errorf("failed to record analysis %s: %w", repoID, err)
	}

	m.running[repoID] = struct{}{}
	m.wg.Add(1)
	go m.run(job)
	m.metrics.ObserveSubmitted()

	slog.Info("Submitted analysis", "repo_id", repoID, "repo", normalized, "max_commits", maxCommits, "run_id", job.RunID)
	return schema.SubmitResult{RepoID: repoID, Status: schema.PendingStatus}, nil
}

// GetStatus reads the current state of a job. It never mutates anything.
func (m *Manager) GetStatus(ctx context.Context, repoID string) (schema.AnalysisResponse, error) {
	entry, found, err := m.store.Get(ctx, repoID)
	if err != nil {
		return schema.AnalysisResponse{}, fmt.Errorf("failed to read analysis %s: %w", repoID, err)
	}
	if !found {
		return schema.AnalysisResponse{}, fmt.Errorf("%w: %s", contract.ErrNotFound, repoID)
	}
	return schema.AnalysisResponse{
		RepoID:       entry.RepoID,
		Status:       entry.Status,
		Data:         entry.Data,
		ErrorMessage: entry.ErrorMessage,
	}, nil
}

// List returns recent jobs, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]schema.EntrySummary, error) {
	return m.store.List(ctx, limit)
}

// Delete removes a finished job. Running jobs cannot be deleted.
func (m *Manager) Delete(ctx context.Context, repoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[repoID]; ok {
		return fmt.Errorf("%w: %s is still running", contract.ErrNotReady, repoID)
	}
	ok, err := m.store.Exists(ctx, repoID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", contract.ErrNotFound, repoID)
	}
	return m.store.Delete(ctx, repoID)
}

// Cleanup removes jobs not updated within retention, including orphans
// left pending or processing by an earlier process.
func (m *Manager) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	removed, err := m.store.Cleanup(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	m.metrics.ObserveCleanup(removed)
	if removed > 0 {
		slog.Info("Removed stale analyses", "count", removed, "retention", retention)
	}
	return removed, nil
}

// Wait blocks until every submitted pipeline has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops accepting work, interrupts running pipelines and waits for
// them to record a terminal status.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
