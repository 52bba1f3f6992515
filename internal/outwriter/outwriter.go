// Package outwriter has output and writer logic.
package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Shared display formats.
const (
	dateLayout   = "2006-01-02"
	shortHashLen = 10
)

var headingColor = color.New(color.Bold)

// OutWriter provides a unified interface for all output operations.
// Every result is written as JSON or as human-readable tables depending on
// the configured output mode.
type OutWriter struct {
	cfg *contract.Config
	w   io.Writer // Overrides the configured output file when set
}

// NewOutWriter creates a writer that honors cfg.Output and cfg.OutputFile.
func NewOutWriter(cfg *contract.Config) *OutWriter {
	return &OutWriter{cfg: cfg}
}

// NewOutWriterTo creates a writer that always writes to w.
func NewOutWriterTo(cfg *contract.Config, w io.Writer) *OutWriter {
	return &OutWriter{cfg: cfg, w: w}
}

// render writes data as JSON, or calls text for the table form.
func (ow *OutWriter) render(data any, text func(io.Writer) error) error {
	write := func(w io.Writer) error {
		if ow.cfg.Output == schema.JSONOut {
			return writeJSON(w, data)
		}
		return text(w)
	}
	if ow.w != nil {
		return write(ow.w)
	}

	file, err := contract.SelectOutputFile(ow.cfg.OutputFile)
	if err != nil {
		return err
	}
	if file == os.Stdout {
		return write(file)
	}
	defer func() { _ = file.Close() }()
	if err := write(file); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %s to %s\n", ow.cfg.Output, ow.cfg.OutputFile)
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// newTable creates a table with the given headers. Numeric columns are
// right-aligned by the caller's alignment list, if any.
func newTable(w io.Writer, headers []string, align ...tw.Align) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	if len(align) > 0 {
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.PerColumn = align
		})
	}
	return table
}

// renderTable bulk-loads rows and renders the table.
func renderTable(table *tablewriter.Table, rows [][]string) error {
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// heading prints a bold section title.
func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	headingColor.Fprintln(w, title)
}

// shortHash abbreviates a commit hash for tables.
func shortHash(h string) string {
	if len(h) > shortHashLen {
		return h[:shortHashLen]
	}
	return h
}

// statusLabel colors a job status.
func statusLabel(s schema.JobStatus) string {
	switch s {
	case schema.CompletedStatus:
		return contract.FeatureColor.Sprint(s)
	case schema.FailedStatus:
		return contract.BugfixColor.Sprint(s)
	default:
		return contract.TestColor.Sprint(s)
	}
}

// bulletList prints each item on its own line.
func bulletList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "  • %s\n", strings.TrimSpace(item))
	}
}
