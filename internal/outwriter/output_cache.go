package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteEntries lists cached jobs, newest first.
func (ow *OutWriter) WriteEntries(entries []schema.EntrySummary) error {
	return ow.render(entries, func(w io.Writer) error {
		if len(entries) == 0 {
			fmt.Fprintln(w, "No analyses cached.")
			return nil
		}
		table := newTable(w, []string{"Job", "Status", "Commits", "Updated", "Repository"}, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignLeft)
		width := maxTextWidth(ow.cfg, 70)
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.RepoID,
				statusLabel(e.Status),
				strconv.Itoa(e.TotalCommits),
				humanize.Time(e.UpdatedAt),
				contract.TruncateText(e.RepoURL, width),
			})
		}
		return renderTable(table, rows)
	})
}

// WriteCacheStatus prints backend health and entry counts.
func (ow *OutWriter) WriteCacheStatus(status schema.CacheStatus) error {
	return ow.render(status, func(w io.Writer) error {
		connected := contract.BugfixColor.Sprint("no")
		if status.Connected {
			connected = contract.FeatureColor.Sprint("yes")
		}
		fmt.Fprintf(w, "Backend: %s (connected: %s)\n", status.Backend, connected)
		fmt.Fprintf(w, "Entries: %d", status.TotalEntries)
		if status.TableSizeBytes > 0 {
			fmt.Fprintf(w, ", %s", humanize.Bytes(uint64(status.TableSizeBytes)))
		}
		fmt.Fprintln(w)
		if status.TotalEntries == 0 {
			return nil
		}
		fmt.Fprintf(w, "Newest: %s  Oldest: %s\n", humanize.Time(status.LastEntryTime), humanize.Time(status.OldestEntryTime))

		table := newTable(w, []string{"Status", "Entries"}, tw.AlignLeft, tw.AlignRight)
		var rows [][]string
		for _, s := range []schema.JobStatus{schema.PendingStatus, schema.ProcessingStatus, schema.CompletedStatus, schema.FailedStatus} {
			if n := status.ByStatus[s]; n > 0 {
				rows = append(rows, []string{statusLabel(s), strconv.Itoa(n)})
			}
		}
		return renderTable(table, rows)
	})
}
