package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/parquet"
	"github.com/huangsam/codetime/schema"
)

// ExportResult reports what an export wrote.
type ExportResult struct {
	AnalysesFile string
	CommitsFile  string
	Analyses     int
	Commits      int
}

// ExecuteAnalysisExport writes every completed analysis in store to two
// Parquet files named after outputPrefix. Pending and failed entries are skipped.
func ExecuteAnalysisExport(ctx context.Context, store contract.CacheStore, outputPrefix string, w io.Writer) (ExportResult, error) {
	if outputPrefix == "" {
		return ExportResult{}, errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to get cache status: %w", err)
	}
	if status.ByStatus[schema.CompletedStatus] == 0 {
		return ExportResult{}, errors.New("no completed analyses found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	summaries, err := store.List(ctx, status.TotalEntries)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to list analyses: %w", err)
	}

	var analyses []parquet.AnalysisRow
	var commits []parquet.CommitRow
	for _, s := range summaries {
		if s.Status != schema.CompletedStatus {
			continue
		}
		entry, found, err := store.Get(ctx, s.RepoID)
		if err != nil {
			return ExportResult{}, fmt.Errorf("failed to read analysis %s: %w", s.RepoID, err)
		}
		// Deleted or cleaned up since listing.
		if !found || entry.Data == nil {
			continue
		}
		analyses = append(analyses, parquet.ConvertAnalysis(entry.Data))
		commits = append(commits, parquet.ConvertCommits(entry.RepoID, entry.Data.Commits)...)
	}

	res := ExportResult{
		AnalysesFile: outputPrefix + ".analyses.parquet",
		CommitsFile:  outputPrefix + ".commits.parquet",
		Analyses:     len(analyses),
		Commits:      len(commits),
	}
	if err := parquet.WriteAnalysesParquet(analyses, res.AnalysesFile); err != nil {
		return res, fmt.Errorf("failed to write analyses: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d analyses to: %s\n", res.Analyses, res.AnalysesFile)

	if err := parquet.WriteCommitsParquet(commits, res.CommitsFile); err != nil {
		return res, fmt.Errorf("failed to write commits: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d commits to: %s\n", res.Commits, res.CommitsFile)
	return res, nil
}
