package outwriter

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/olekukonko/tablewriter/tw"
)

// Row limits for the analysis report.
const (
	topAuthors   = 10
	topFileTypes = 8
)

// WriteSubmit prints the result of an analyze request.
func (ow *OutWriter) WriteSubmit(res schema.SubmitResult) error {
	return ow.render(res, func(w io.Writer) error {
		cached := ""
		if res.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(w, "Job %s is %s%s\n", res.RepoID, statusLabel(res.Status), cached)
		return nil
	})
}

// WriteAnalysis prints a job status and, when completed, the full report.
func (ow *OutWriter) WriteAnalysis(resp schema.AnalysisResponse) error {
	return ow.render(resp, func(w io.Writer) error {
		fmt.Fprintf(w, "Job %s is %s\n", resp.RepoID, statusLabel(resp.Status))
		if resp.ErrorMessage != "" {
			fmt.Fprintf(w, "Error: %s\n", resp.ErrorMessage)
		}
		if resp.Data == nil {
			return nil
		}
		return ow.writeAnalysisReport(w, resp.Data)
	})
}

func (ow *OutWriter) writeAnalysisReport(w io.Writer, a *schema.RepoAnalysis) error {
	s := a.Stats

	// --- 1. Summary ---
	heading(w, "📊 "+a.RepoURL)
	fmt.Fprintf(w, "Commits: %s", humanize.Comma(int64(s.TotalCommits)))
	if a.Truncated {
		fmt.Fprintf(w, " (most recent %d, history truncated)", a.MaxCommits)
	}
	fmt.Fprintln(w)
	if s.TotalCommits > 0 {
		fmt.Fprintf(w, "Span: %s → %s\n", s.DateRange.Start.Format(dateLayout), s.DateRange.End.Format(dateLayout))
	}
	fmt.Fprintf(w, "Files: %s  Lines: +%s / -%s  Contributors: %d\n",
		humanize.Comma(int64(s.TotalFiles)), humanize.Comma(int64(s.TotalInsertions)), humanize.Comma(int64(s.TotalDeletions)), len(s.Authors))
	if !a.AnalyzedAt.IsZero() {
		fmt.Fprintf(w, "Analyzed %s\n", humanize.Time(a.AnalyzedAt))
	}

	// --- 2. Categories ---
	heading(w, "Categories")
	table := newTable(w, []string{"Category", "Commits", "Share"}, tw.AlignLeft, tw.AlignRight, tw.AlignRight)
	var rows [][]string
	for _, c := range schema.AllCategories {
		n := s.Categories[c]
		if n == 0 {
			continue
		}
		rows = append(rows, []string{contract.GetColorLabel(c), strconv.Itoa(n), percent(n, s.TotalCommits)})
	}
	if err := renderTable(table, rows); err != nil {
		return err
	}

	// --- 3. Contributors ---
	heading(w, "Top contributors")
	table = newTable(w, []string{"Author", "Commits", "Added", "Removed"}, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight)
	if err := renderTable(table, authorRows(s.Authors, topAuthors)); err != nil {
		return err
	}

	// --- 4. File types ---
	if len(s.FileTypes) > 0 {
		heading(w, "File types")
		table = newTable(w, []string{"Type", "Files"}, tw.AlignLeft, tw.AlignRight)
		if err := renderTable(table, countRows(s.FileTypes, topFileTypes)); err != nil {
			return err
		}
	}

	// --- 5. Patterns, milestones and insights ---
	p := a.Patterns
	if len(p.Architectural) > 0 {
		heading(w, "Architectural patterns")
		table = newTable(w, []string{"Type", "Impact", "Description"})
		width := maxTextWidth(ow.cfg, 35)
		rows = nil
		for _, pr := range p.Architectural {
			rows = append(rows, []string{pr.Type, string(pr.Impact), contract.TruncateText(pr.Description, width)})
		}
		if err := renderTable(table, rows); err != nil {
			return err
		}
	}
	if len(p.Milestones) > 0 {
		heading(w, "Milestones")
		table = newTable(w, []string{"Date", "Commit", "Category", "Title"})
		width := maxTextWidth(ow.cfg, 45)
		rows = nil
		for _, m := range p.Milestones {
			date := ""
			if m.Date != nil {
				date = m.Date.Format(dateLayout)
			}
			rows = append(rows, []string{date, shortHash(m.Hash), contract.GetColorLabel(m.Category), contract.TruncateText(m.Title, width)})
		}
		if err := renderTable(table, rows); err != nil {
			return err
		}
	}
	if len(p.Insights) > 0 {
		heading(w, "Insights")
		bulletList(w, p.Insights)
	}
	if p.FailedBatches > 0 {
		fmt.Fprintf(w, "\n⚠️  %d synthesis batch(es) failed; patterns may be incomplete.\n", p.FailedBatches)
	}
	return nil
}

// percent formats n as a share of total.
func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(total))
}

// authorRows lists the most active authors first.
func authorRows(authors map[string]schema.AuthorStats, limit int) [][]string {
	names := make([]string, 0, len(authors))
	for name := range authors {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(authors[b].Commits, authors[a].Commits); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	rows := make([][]string, 0, min(limit, len(names)))
	for _, name := range names[:min(limit, len(names))] {
		st := authors[name]
		rows = append(rows, []string{
			schema.AbbreviateName(name),
			strconv.Itoa(st.Commits),
			humanize.Comma(int64(st.Insertions)),
			humanize.Comma(int64(st.Deletions)),
		})
	}
	return rows
}

// countRows lists the largest counts first.
func countRows(counts map[string]int, limit int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	rows := make([][]string, 0, min(limit, len(keys)))
	for _, k := range keys[:min(limit, len(keys))] {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}
