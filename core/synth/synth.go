// Package synth turns refactor and architecture commits into pattern records
// with the help of a language model, and derives milestones from history.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huangsam/codetime/core/algo"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"golang.org/x/sync/errgroup"
)

// PatternBudget is the completion budget for one batch.
const PatternBudget = 1000

// filesPerLine is how many changed files each prompt line lists.
const filesPerLine = 3

// Options bound how the synthesizer talks to the model.
type Options struct {
	BatchSize    int
	Concurrency  int
	BatchTimeout time.Duration
}

// OptionsFromConfig reads the synthesizer options from cfg.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{BatchSize: cfg.BatchSize, Concurrency: cfg.Concurrency, BatchTimeout: cfg.BatchTimeout}
}

// Synthesizer extracts patterns and milestones from categorized commits.
type Synthesizer struct {
	llm  contract.LLMClient
	opts Options
}

// New creates a Synthesizer. Non-positive options fall back to defaults.
func New(llm contract.LLMClient, opts Options) *Synthesizer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = contract.DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = contract.DefaultConcurrency
	}
	return &Synthesizer{llm: llm, opts: opts}
}

// batchResult is the outcome of one model call.
type batchResult struct {
	decoded Decoded
	failed  bool
}

// Synthesize never fails. Batches that error, time out or panic are logged,
// counted in FailedBatches and left out of the result.
func (s *Synthesizer) Synthesize(ctx context.Context, commits []schema.CommitRecord) schema.Patterns {
	patterns := schema.Patterns{
		Architectural: []schema.PatternRecord{},
		Milestones:    Milestones(commits),
		Insights:      []string{},
	}

	candidates := algo.FilterByCategory(commits, schema.RefactorCategory, schema.ArchitectureCategory)
	batches := chunk(candidates, s.opts.BatchSize)
	if len(batches) == 0 {
		return patterns
	}

	results := make([]batchResult, len(batches))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = s.runBatch(ctx, i, batch)
			return nil
		})
	}
	_ = g.Wait()

	// Results are merged in batch order so output does not depend on scheduling.
	for _, r := range results {
		if r.failed {
			patterns.FailedBatches++
			continue
		}
		patterns.Architectural = append(patterns.Architectural, r.decoded.Patterns...)
		patterns.Insights = append(patterns.Insights, r.decoded.Insights...)
	}
	return patterns
}

// runBatch performs one model call and converts panics into a failed batch.
func (s *Synthesizer) runBatch(ctx context.Context, index int, batch []schema.CommitRecord) (res batchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Pattern batch panicked", "batch", index, "panic", r)
			res = batchResult{failed: true}
		}
	}()

	if s.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.BatchTimeout)
		defer cancel()
	}

	raw, err := s.llm.Complete(ctx, BuildPatternPrompt(batch), PatternBudget)
	if err != nil {
		slog.Warn("Pattern batch failed", "batch", index, "commits", len(batch), "error", err)
		return batchResult{failed: true}
	}
	return batchResult{decoded: Decode(raw)}
}

// chunk splits commits into consecutive batches of at most size.
func chunk(commits []schema.CommitRecord, size int) [][]schema.CommitRecord {
	var batches [][]schema.CommitRecord
	for start := 0; start < len(commits); start += size {
		end := min(start+size, len(commits))
		batches = append(batches, commits[start:end])
	}
	return batches
}

// BuildPatternPrompt renders the model prompt for one batch.
func BuildPatternPrompt(batch []schema.CommitRecord) string {
	var sb strings.Builder
	sb.WriteString("Analyze these architectural commits and identify key patterns and decisions:\n\n")
	for _, c := range batch {
		files := c.Files
		if len(files) > filesPerLine {
			files = files[:filesPerLine]
		}
		fmt.Fprintf(&sb, "- %s: %s (Files: %s)\n",
			c.Date.Format(time.DateOnly), contract.TruncateText(c.Subject(), 200), strings.Join(files, ", "))
	}
	sb.WriteString(`
Identify:
1. Design patterns introduced (MVC, Observer, Factory, etc.)
2. Architectural decisions (microservices, monolith, separation of concerns)
3. Technology migrations (framework changes, database changes)
4. Code organization improvements (refactoring, modularization)

Return only a JSON array of patterns. Each pattern has the keys
type, description, impact (low, medium or high) and commits_involved.
`)
	return sb.String()
}
