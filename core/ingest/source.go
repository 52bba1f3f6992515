package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/src-d/enry/v2"
)

const (
	cloneHeadroom = 100     // Extra clone depth beyond the commits read, for merge-heavy histories
	maxTreeDepth  = 3       // Directory depth of files sampled at HEAD
	maxFileBytes  = 1 << 20 // Files larger than this are skipped
)

// GitSource fetches commits by shallow-cloning the repository into a scratch
// directory and reading its log through a GitClient.
type GitSource struct {
	client       contract.GitClient
	maxFiles     int
	maxTreeFiles int
	workDir      string // Parent of scratch clones; empty means os.TempDir
}

var _ contract.CommitSource = &GitSource{} // Compile-time check

// NewGitSource creates a git-backed commit source.
func NewGitSource(client contract.GitClient, maxFilesPerCommit, maxTreeFiles int) *GitSource {
	return &GitSource{client: client, maxFiles: maxFilesPerCommit, maxTreeFiles: maxTreeFiles}
}

// WithWorkDir sets where scratch clones are created.
func (s *GitSource) WithWorkDir(dir string) *GitSource {
	s.workDir = dir
	return s
}

// cloneDepth mirrors the history needed for maxDepth commits.
func cloneDepth(maxDepth int) int {
	return maxDepth + cloneHeadroom
}

// FetchCommits implements the CommitSource interface.
func (s *GitSource) FetchCommits(ctx context.Context, url string, maxDepth int) (*schema.SourceSnapshot, error) {
	dir, err := os.MkdirTemp(s.workDir, "codetime-clone-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	repoPath := filepath.Join(dir, "repo")
	if err := s.client.Clone(ctx, url, repoPath, cloneDepth(maxDepth)); err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	out, err := s.client.GetCommitLog(ctx, repoPath, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("read log of %s: %w", url, err)
	}
	commits := parseCommitLog(out, s.maxFiles)

	// Grafted commits diff against an empty tree, so their numstat counts
	// every file as inserted. They are dropped and the history is truncated.
	boundary, err := s.client.ShallowBoundary(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("inspect clone of %s: %w", url, err)
	}
	commits = dropBoundary(commits, boundary)

	entries, err := s.client.ListFilesAtRef(ctx, repoPath, "HEAD")
	if err != nil {
		// An empty tree still has useful history.
		contract.LogWarn("Could not list files at HEAD", err)
	}

	return &schema.SourceSnapshot{
		Commits:   commits,
		Files:     sampleTree(entries, s.maxTreeFiles),
		Truncated: len(boundary) > 0,
	}, nil
}

// dropBoundary removes commits whose hash is in boundary.
func dropBoundary(commits []schema.CommitRecord, boundary []string) []schema.CommitRecord {
	if len(boundary) == 0 {
		return commits
	}
	grafted := make(map[string]bool, len(boundary))
	for _, h := range boundary {
		grafted[h] = true
	}
	return slices.DeleteFunc(commits, func(c schema.CommitRecord) bool {
		return grafted[c.Hash]
	})
}

// sampleTree keeps shallow, reasonably sized, non-vendored files, up to limit.
func sampleTree(entries []contract.TreeEntry, limit int) []string {
	files := []string{}
	for _, e := range entries {
		if len(files) >= limit {
			break
		}
		if strings.Count(e.Path, "/") >= maxTreeDepth || e.Size > maxFileBytes {
			continue
		}
		if enry.IsVendor(e.Path) || enry.IsDotFile(e.Path) {
			continue
		}
		files = append(files, e.Path)
	}
	return files
}
