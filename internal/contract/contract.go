// Package contract provides interfaces and shared utilities for codetime's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/codetime/schema"
)

// TreeEntry is one blob listed at a Git ref.
type TreeEntry struct {
	Path string
	Size int64
}

// GitClient defines the interface for all Git operations.
// This allows the core logic to be tested without a real git executable.
type GitClient interface {
	// Run executes an arbitrary git command in repoPath.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// Clone makes a shallow, single-branch clone of url into dest.
	Clone(ctx context.Context, url, dest string, depth int) error

	// GetCommitLog returns the raw delimited log for at most maxCount commits.
	GetCommitLog(ctx context.Context, repoPath string, maxCount int) ([]byte, error)

	// ListFilesAtRef lists every blob at ref with its size in bytes.
	ListFilesAtRef(ctx context.Context, repoPath string, ref string) ([]TreeEntry, error)

	// ShallowBoundary returns the grafted commits of a shallow clone, whose
	// parents were not fetched. It is empty for a complete history.
	ShallowBoundary(ctx context.Context, repoPath string) ([]string, error)
}

// CommitSource obtains commit history for a repository URL.
type CommitSource interface {
	// FetchCommits returns at most maxDepth commits, newest first.
	FetchCommits(ctx context.Context, url string, maxDepth int) (*schema.SourceSnapshot, error)
}

// LLMClient is the language model collaborator.
// Implementations may time out, be rate-limited or return unstructured text.
type LLMClient interface {
	// Complete sends prompt and returns the raw completion. budget caps the
	// number of tokens the reply may use.
	Complete(ctx context.Context, prompt string, budget int) (string, error)
}

// CacheStore is the durable map from job id to job record.
// Put overwrites the whole entry; readers see the old or the new entry, never a mix.
type CacheStore interface {
	Put(ctx context.Context, repoID string, entry *schema.CacheEntry) error
	Get(ctx context.Context, repoID string) (*schema.CacheEntry, bool, error)
	Exists(ctx context.Context, repoID string) (bool, error)
	List(ctx context.Context, limit int) ([]schema.EntrySummary, error)
	Delete(ctx context.Context, repoID string) error
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetAnalysisStore() CacheStore
}
