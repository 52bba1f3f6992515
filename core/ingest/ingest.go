// Package ingest obtains a bounded, newest-first, categorized commit history.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/huangsam/codetime/core/algo"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// Result is the bounded output of one ingestion.
type Result struct {
	Commits   []schema.CommitRecord // Newest first, at most MaxCommits
	Files     []string
	Truncated bool // More commits existed than were ingested
}

// Ingestor wraps a CommitSource with the commit bound and categorization.
type Ingestor struct {
	source contract.CommitSource
}

// NewIngestor creates an Ingestor over source.
func NewIngestor(source contract.CommitSource) *Ingestor {
	return &Ingestor{source: source}
}

// Ingest fetches at most maxCommits commits, newest first. Truncation is
// reported on the result, not as an error. Every source failure wraps
// contract.ErrSourceUnavailable.
func (in *Ingestor) Ingest(ctx context.Context, repoURL string, maxCommits int) (*Result, error) {
	if maxCommits <= 0 {
		return nil, fmt.Errorf("%w: max commits must be positive (received %d)", contract.ErrInvalidInput, maxCommits)
	}

	// Ask for one extra commit so truncation can be detected.
	snap, err := in.source.FetchCommits(ctx, repoURL, maxCommits+1)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", contract.ErrSourceUnavailable, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: source returned no history", contract.ErrSourceUnavailable)
	}

	commits := slices.Clone(snap.Commits)
	slices.SortStableFunc(commits, func(a, b schema.CommitRecord) int {
		return b.Date.Compare(a.Date)
	})

	res := &Result{Files: snap.Files, Truncated: snap.Truncated}
	if len(commits) > maxCommits {
		commits = commits[:maxCommits]
		res.Truncated = true
	}
	for i := range commits {
		commits[i] = algo.Classify(commits[i])
	}
	res.Commits = commits

	slog.Debug("Ingested commits", "repo", repoURL, "commits", len(commits), "truncated", res.Truncated)
	return res, nil
}
