// Package parquet exports cached repository analyses to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/codetime/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRow is one completed analysis, flattened for columnar export.
type AnalysisRow struct {
	// RepoID is the stable job id (md5 of the normalized URL)
	RepoID string `parquet:"repo_id,snappy"`

	RepoURL string `parquet:"repo_url,snappy"`

	// AnalyzedAt is when the pipeline finished
	AnalyzedAt time.Time `parquet:"analyzed_at,snappy"`

	TotalCommits    int32 `parquet:"total_commits,snappy"`
	TotalFiles      int32 `parquet:"total_files,snappy"`
	TotalInsertions int64 `parquet:"total_insertions,snappy"`
	TotalDeletions  int64 `parquet:"total_deletions,snappy"`
	AuthorCount     int32 `parquet:"author_count,snappy"`

	// FirstCommit and LastCommit are empty for analyses without commits
	FirstCommit *time.Time `parquet:"first_commit,optional,snappy"`
	LastCommit  *time.Time `parquet:"last_commit,optional,snappy"`

	PatternCount   int32 `parquet:"pattern_count,snappy"`
	MilestoneCount int32 `parquet:"milestone_count,snappy"`
	FailedBatches  int32 `parquet:"failed_batches,snappy"`
	Truncated      bool  `parquet:"truncated,snappy"`
	MaxCommits     int32 `parquet:"max_commits,snappy"`
}

// CommitRow is one ingested commit of an analysis.
type CommitRow struct {
	RepoID       string    `parquet:"repo_id,snappy"`
	Hash         string    `parquet:"hash,snappy"`
	Author       string    `parquet:"author,snappy"`
	Date         time.Time `parquet:"date,snappy"`
	Subject      string    `parquet:"subject,snappy"`
	Category     string    `parquet:"category,snappy"`
	Impact       string    `parquet:"impact,snappy"`
	Insertions   int32     `parquet:"insertions,snappy"`
	Deletions    int32     `parquet:"deletions,snappy"`
	FilesChanged int32     `parquet:"files_changed,snappy"`

	// Scope is the comma-joined list of file types touched (nullable)
	Scope *string `parquet:"scope,optional,snappy"`
}

// writeRows writes rows to outputPath with a schema inferred from T.
func writeRows[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteAnalysesParquet writes analysis rows to a Parquet file.
func WriteAnalysesParquet(data []AnalysisRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteCommitsParquet writes commit rows to a Parquet file.
func WriteCommitsParquet(data []CommitRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertAnalysis flattens a completed analysis into one AnalysisRow.
func ConvertAnalysis(a *schema.RepoAnalysis) AnalysisRow {
	row := AnalysisRow{
		RepoID:          a.RepoID,
		RepoURL:         a.RepoURL,
		AnalyzedAt:      a.AnalyzedAt,
		TotalCommits:    int32(a.Stats.TotalCommits),
		TotalFiles:      int32(a.Stats.TotalFiles),
		TotalInsertions: int64(a.Stats.TotalInsertions),
		TotalDeletions:  int64(a.Stats.TotalDeletions),
		AuthorCount:     int32(len(a.Stats.Authors)),
		PatternCount:    int32(len(a.Patterns.Architectural)),
		MilestoneCount:  int32(len(a.Patterns.Milestones)),
		FailedBatches:   int32(a.Patterns.FailedBatches),
		Truncated:       a.Truncated,
		MaxCommits:      int32(a.MaxCommits),
	}
	if a.Stats.TotalCommits > 0 {
		first, last := a.Stats.DateRange.Start, a.Stats.DateRange.End
		row.FirstCommit = &first
		row.LastCommit = &last
	}
	return row
}

// ConvertCommits flattens the commits of an analysis into CommitRows.
func ConvertCommits(repoID string, commits []schema.CommitRecord) []CommitRow {
	result := make([]CommitRow, len(commits))
	for i, c := range commits {
		result[i] = CommitRow{
			RepoID:       repoID,
			Hash:         c.Hash,
			Author:       c.Author,
			Date:         c.Date,
			Subject:      c.Subject(),
			Category:     string(c.Category),
			Impact:       string(c.Impact),
			Insertions:   int32(c.Insertions),
			Deletions:    int32(c.Deletions),
			FilesChanged: int32(c.FilesChanged),
		}
		if len(c.Scope) > 0 {
			scope := strings.Join(c.Scope, ",")
			result[i].Scope = &scope
		}
	}
	return result
}
