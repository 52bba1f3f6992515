package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// parseCommitLog parses the delimited output of GitClient.GetCommitLog.
// At most maxFiles paths are kept per commit, but insertions, deletions and
// the changed-file count cover every file. Malformed records are skipped.
func parseCommitLog(out []byte, maxFiles int) []schema.CommitRecord {
	var commits []schema.CommitRecord
	for record := range strings.SplitSeq(string(out), contract.RecordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		if c, ok := parseCommitRecord(record, maxFiles); ok {
			commits = append(commits, c)
		}
	}
	return commits
}

// parseCommitRecord parses "hash US author US email US date US body US numstat".
func parseCommitRecord(record string, maxFiles int) (schema.CommitRecord, bool) {
	parts := strings.SplitN(record, contract.FieldSep, 6)
	if len(parts) < 5 {
		return schema.CommitRecord{}, false
	}
	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return schema.CommitRecord{}, false
	}
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[3]))
	if err != nil {
		return schema.CommitRecord{}, false
	}

	c := schema.CommitRecord{
		Hash:    hash,
		Author:  strings.TrimSpace(parts[1]),
		Email:   strings.TrimSpace(parts[2]),
		Date:    date,
		Message: strings.TrimSpace(parts[4]),
		Files:   []string{},
	}
	if len(parts) == 6 {
		for line := range strings.SplitSeq(parts[5], "\n") {
			path, add, del, ok := parseFileStatsLine(line)
			if !ok {
				continue
			}
			c.FilesChanged++
			c.Insertions += add
			c.Deletions += del
			if len(c.Files) < maxFiles {
				c.Files = append(c.Files, path)
			}
		}
	}
	return c, true
}

// parseFileStatsLine parses one numstat line and returns the post-change path.
func parseFileStatsLine(line string) (string, int, int, bool) {
	parts := strings.SplitN(strings.TrimRight(line, "\r"), "\t", 3)
	if len(parts) < 3 || parts[2] == "" {
		return "", 0, 0, false
	}
	return resolveRenamePath(parts[2]), parseChurnValue(parts[0]), parseChurnValue(parts[1]), true
}

// parseChurnValue converts a churn string to int, handling "-" (binary) as 0.
func parseChurnValue(s string) int {
	if val, err := strconv.Atoi(s); err == nil && val >= 0 {
		return val
	}
	return 0
}

// resolveRenamePath returns the new path of a numstat rename entry, which is
// either "old => new" or "prefix{old => new}suffix". Other paths pass through.
func resolveRenamePath(path string) string {
	if !strings.Contains(path, " => ") {
		return path
	}
	start := strings.Index(path, "{")
	end := strings.Index(path, "}")
	if start == -1 || end == -1 || start >= end {
		_, newPath, _ := strings.Cut(path, " => ")
		return newPath
	}
	_, newPart, ok := strings.Cut(path[start+1:end], " => ")
	if !ok {
		return path
	}
	joined := path[:start] + newPart + path[end+1:]
	return strings.ReplaceAll(joined, "//", "/")
}
