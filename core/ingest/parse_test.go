package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommitLog_Basic(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := generateTestGitLog([]logScenario{
		{
			hash:    "abc123",
			author:  "Alice Developer",
			email:   "alice@example.com",
			date:    date,
			message: "fix: crash on empty input\n\nLonger body text.",
			files: []fileChange{
				{"core/parse.go", 12, 3},
				{"core/parse_test.go", 40, 0},
			},
		},
	})

	commits := parseCommitLog(out, 100)
	require.Len(t, commits, 1)

	c := commits[0]
	assert.Equal(t, "abc123", c.Hash)
	assert.Equal(t, "Alice Developer", c.Author)
	assert.Equal(t, "alice@example.com", c.Email)
	assert.True(t, date.Equal(c.Date))
	assert.Equal(t, "fix: crash on empty input\n\nLonger body text.", c.Message)
	assert.Equal(t, []string{"core/parse.go", "core/parse_test.go"}, c.Files)
	assert.Equal(t, 52, c.Insertions)
	assert.Equal(t, 3, c.Deletions)
	assert.Equal(t, 2, c.FilesChanged)
}

func TestParseCommitLog_FileCap(t *testing.T) {
	var files []fileChange
	for i := range 150 {
		files = append(files, fileChange{fmt.Sprintf("gen/file%03d.go", i), 1, 1})
	}
	out := generateTestGitLog([]logScenario{{
		hash: "big", author: "Bob", email: "bob@example.com",
		date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), message: "generate code", files: files,
	}})

	commits := parseCommitLog(out, 100)
	require.Len(t, commits, 1)
	assert.Len(t, commits[0].Files, 100, "paths are capped")
	assert.Equal(t, 150, commits[0].FilesChanged, "count covers every file")
	assert.Equal(t, 150, commits[0].Insertions)
}

func TestParseCommitLog_EdgeCases(t *testing.T) {
	t.Run("empty output", func(t *testing.T) {
		assert.Empty(t, parseCommitLog(nil, 10))
		assert.Empty(t, parseCommitLog([]byte("\n\n"), 10))
	})

	t.Run("malformed date is skipped", func(t *testing.T) {
		out := []byte("\x1eabc\x1fAlice\x1fa@x\x1fnot-a-date\x1fmsg\x1f\n")
		assert.Empty(t, parseCommitLog(out, 10))
	})

	t.Run("too few fields", func(t *testing.T) {
		out := []byte("\x1eabc\x1fAlice\n")
		assert.Empty(t, parseCommitLog(out, 10))
	})

	t.Run("commit without files", func(t *testing.T) {
		out := generateTestGitLog([]logScenario{{
			hash: "empty", author: "Alice", email: "a@x",
			date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), message: "initial commit",
		}})
		commits := parseCommitLog(out, 10)
		require.Len(t, commits, 1)
		assert.Empty(t, commits[0].Files)
		assert.Zero(t, commits[0].FilesChanged)
	})
}

func TestParseFileStatsLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantPath string
		wantAdd  int
		wantDel  int
		wantOK   bool
	}{
		{"plain", "10\t5\tmain.go", "main.go", 10, 5, true},
		{"binary", "-\t-\tlogo.png", "logo.png", 0, 0, true},
		{"rename", "3\t1\tsrc/{old => new}/a.go", "src/new/a.go", 3, 1, true},
		{"blank", "", "", 0, 0, false},
		{"missing path", "1\t2", "", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, add, del, ok := parseFileStatsLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantAdd, add)
			assert.Equal(t, tt.wantDel, del)
		})
	}
}

func TestResolveRenamePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"main.go", "main.go"},
		{"old.go => new.go", "new.go"},
		{"src/{utils => helpers}/file.go", "src/helpers/file.go"},
		{"src/{ => sub}/file.go", "src/sub/file.go"},
		{"src/{sub => }/file.go", "src/file.go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, resolveRenamePath(tt.input), tt.input)
	}
}

func TestParseChurnValue(t *testing.T) {
	assert.Equal(t, 42, parseChurnValue("42"))
	assert.Equal(t, 0, parseChurnValue("-"))
	assert.Equal(t, 0, parseChurnValue(""))
	assert.Equal(t, 0, parseChurnValue("-3"))
}
