package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Delimiters used in the commit log format. They never appear in commit text.
const (
	RecordSep = "\x1e"
	FieldSep  = "\x1f"
)

// commitLogFormat emits: RS hash US author US email US date US body US, then numstat lines.
const commitLogFormat = "--pretty=format:%x1e%H%x1f%an%x1f%ae%x1f%ad%x1f%B%x1f"

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	return c.exec(ctx, fullArgs...)
}

// exec runs git with prompts disabled so private repositories fail fast
// instead of waiting for credentials.
func (c *LocalGitClient) exec(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=true")
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git %s failed: %s", args[0], stderr)
	} else if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// Clone implements the GitClient interface.
func (c *LocalGitClient) Clone(ctx context.Context, url, dest string, depth int) error {
	args := []string{
		"clone",
		"--quiet",
		"--single-branch",
		"--no-tags",
	}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	args = append(args, "--", url, dest)
	_, err := c.exec(ctx, args...)
	return err
}

// GetCommitLog implements the GitClient interface.
func (c *LocalGitClient) GetCommitLog(ctx context.Context, repoPath string, maxCount int) ([]byte, error) {
	args := []string{
		"log",
		fmt.Sprintf("--max-count=%d", maxCount),
		"--numstat",
		"--diff-merges=first-parent",
		"--date=iso-strict",
		commitLogFormat,
	}
	return c.Run(ctx, repoPath, args...)
}

// ListFilesAtRef implements the GitClient interface.
func (c *LocalGitClient) ListFilesAtRef(ctx context.Context, repoPath string, ref string) ([]TreeEntry, error) {
	out, err := c.Run(ctx, repoPath, "ls-tree", "-r", "-l", "--full-tree", ref)
	if err != nil {
		return nil, err
	}
	return ParseTreeListing(string(out)), nil
}

// ShallowBoundary implements the GitClient interface.
func (c *LocalGitClient) ShallowBoundary(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(out)) != "true" {
		return nil, nil
	}
	out, err = c.Run(ctx, repoPath, "rev-parse", "--git-path", "shallow")
	if err != nil {
		return nil, err
	}
	shallowFile := strings.TrimSpace(string(out))
	if !filepath.IsAbs(shallowFile) {
		shallowFile = filepath.Join(repoPath, shallowFile)
	}
	data, err := os.ReadFile(shallowFile)
	if err != nil {
		return nil, fmt.Errorf("read shallow boundary: %w", err)
	}
	return strings.Fields(string(data)), nil
}

// ParseTreeListing parses `git ls-tree -r -l` output.
// Each line looks like "<mode> blob <sha> <size>\t<path>".
func ParseTreeListing(out string) []TreeEntry {
	var entries []TreeEntry
	for line := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
		meta, path, ok := strings.Cut(line, "\t")
		if !ok || path == "" {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) < 4 || fields[1] != "blob" {
			continue
		}
		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			size = 0
		}
		entries = append(entries, TreeEntry{Path: path, Size: size})
	}
	return entries
}
