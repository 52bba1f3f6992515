package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/codetime/internal/contract"
)

// fileChange represents a numstat entry in a generated log.
type fileChange struct {
	path      string
	additions int
	deletions int
}

// logScenario represents one commit in a generated log.
type logScenario struct {
	hash    string
	author  string
	email   string
	date    time.Time
	message string
	files   []fileChange
}

// generateTestGitLog renders scenarios in the delimited format read by parseCommitLog.
func generateTestGitLog(scenarios []logScenario) []byte {
	var b strings.Builder
	for _, s := range scenarios {
		b.WriteString(contract.RecordSep)
		fields := []string{s.hash, s.author, s.email, s.date.Format(time.RFC3339), s.message, ""}
		b.WriteString(strings.Join(fields, contract.FieldSep))
		b.WriteString("\n\n")
		for _, f := range s.files {
			fmt.Fprintf(&b, "%d\t%d\t%s\n", f.additions, f.deletions, f.path)
		}
	}
	return []byte(b.String())
}

// linearHistory creates n commits one hour apart, oldest first.
func linearHistory(n int) []logScenario {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	scenarios := make([]logScenario, n)
	for i := range n {
		scenarios[i] = logScenario{
			hash:    fmt.Sprintf("%040x", i+1),
			author:  "Alice Developer",
			email:   "alice@example.com",
			date:    base.Add(time.Duration(i) * time.Hour),
			message: fmt.Sprintf("update module %d", i),
			files:   []fileChange{{fmt.Sprintf("pkg/mod%d.go", i), 10, 2}},
		}
	}
	return scenarios
}
