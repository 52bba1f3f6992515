package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/codetime/core/algo"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// storeTimeout bounds each lifecycle write, independent of the pipeline deadline.
const storeTimeout = 30 * time.Second

// run executes one pipeline and always leaves the job in a terminal status.
func (m *Manager) run(job *schema.CacheEntry) {
	start := time.Now()
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.running, job.RepoID)
		m.mu.Unlock()
	}()

	// --- 1. Wait for a worker slot ---
	select {
	case m.slots <- struct{}{}:
		defer func() { <-m.slots }()
	case <-m.ctx.Done():
		m.finish(job, nil, fmt.Errorf("pipeline not started: %w", m.ctx.Err()), start)
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.opts.JobTimeout)
	defer cancel()

	analysis, err := m.execute(ctx, job)
	// Synthesis degrades silently, so an expired or cancelled run is caught here.
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		err = fmt.Errorf("%w after %s", contract.ErrJobTimeout, m.opts.JobTimeout)
	case ctxErr != nil && err == nil:
		err = ctxErr
	}
	m.finish(job, analysis, err, start)
}

// execute runs the pipeline stages. Panics surface as errors.
func (m *Manager) execute(ctx context.Context, job *schema.CacheEntry) (analysis *schema.RepoAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			analysis, err = nil, fmt.Errorf("pipeline panicked: %v", r)
		}
	}()

	// --- 2. Processing ---
	if err := m.transition(job, schema.ProcessingStatus); err != nil {
		return nil, err
	}

	// --- 3. Ingest and categorize ---
	res, err := m.ingestor.Ingest(ctx, job.RepoURL, job.MaxCommits)
	if err != nil {
		return nil, err
	}

	// --- 4. Aggregate ---
	stats := algo.ComputeStats(res.Commits, res.Files)

	// --- 5. Synthesize ---
	patterns := m.synthesizer.Synthesize(ctx, res.Commits)
	m.metrics.ObserveFailedBatches(patterns.FailedBatches)

	return &schema.RepoAnalysis{
		RepoID:     job.RepoID,
		RepoURL:    job.RepoURL,
		Stats:      stats,
		Commits:    res.Commits,
		Patterns:   patterns,
		Truncated:  res.Truncated,
		MaxCommits: job.MaxCommits,
		AnalyzedAt: time.Now(),
	}, nil
}

// finish records the terminal status of a run.
func (m *Manager) finish(job *schema.CacheEntry, analysis *schema.RepoAnalysis, err error, start time.Time) {
	elapsed := time.Since(start)
	if err != nil {
		m.fail(job, err, elapsed)
		return
	}

	job.Data = analysis
	if terr := m.transition(job, schema.CompletedStatus); terr != nil {
		// The stored entry is still PROCESSING and must still reach a terminal status.
		job.Data = nil
		m.fail(job, terr, elapsed)
		return
	}
	m.metrics.ObserveFinished(schema.CompletedStatus, elapsed.Seconds())
	slog.Info("Analysis completed", "repo_id", job.RepoID, "commits", analysis.Stats.TotalCommits,
		"truncated", analysis.Truncated, "failed_batches", analysis.Patterns.FailedBatches, "elapsed", elapsed)
}

// fail records job as FAILED with a short, user-facing message.
func (m *Manager) fail(job *schema.CacheEntry, err error, elapsed time.Duration) {
	slog.Warn("Analysis failed", "repo_id", job.RepoID, "run_id", job.RunID, "error", err, "elapsed", elapsed)
	job.ErrorMessage = contract.UserMessage(err)
	if terr := m.transition(job, schema.FailedStatus); terr != nil {
		contract.LogWarn("Could not record failed analysis", terr)
	}
	m.metrics.ObserveFinished(schema.FailedStatus, elapsed.Seconds())
}

// transition moves job to next and persists the whole entry. Transitions
// that would move the lifecycle backwards are rejected.
func (m *Manager) transition(job *schema.CacheEntry, next schema.JobStatus) error {
	if !job.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal transition %s -> %s for %s", job.Status, next, job.RepoID)
	}
	prev := job.Status
	job.Status = next
	job.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.store.Put(ctx, job.RepoID, job); err != nil {
		job.Status = prev
		return fmt.Errorf("failed to record %s status for %s: %w", next, job.RepoID, err)
	}
	return nil
}
