package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteQuery prints an answer with its evidence, timeline and insights.
func (ow *OutWriter) WriteQuery(res *schema.QueryResult) error {
	return ow.render(res, func(w io.Writer) error {
		ans := res.Result
		heading(w, "❓ "+res.Query)
		fmt.Fprintln(w, ans.Answer)

		if len(ans.Evidence) > 0 {
			heading(w, "Evidence")
			table := newTable(w, []string{"Commit", "Date", "Author", "Summary"})
			width := maxTextWidth(ow.cfg, 45)
			rows := make([][]string, 0, len(ans.Evidence))
			for _, ev := range ans.Evidence {
				rows = append(rows, []string{shortHash(ev.CommitRef), ev.Date, schema.AbbreviateName(ev.Author), contract.TruncateText(ev.Summary, width)})
			}
			if err := renderTable(table, rows); err != nil {
				return err
			}
		}
		if len(ans.Timeline) > 0 {
			heading(w, "Timeline")
			for _, item := range ans.Timeline {
				if item.Date != "" {
					fmt.Fprintf(w, "  %s  %s\n", item.Date, item.Event)
				} else {
					fmt.Fprintf(w, "  %s\n", item.Event)
				}
			}
		}
		if len(ans.Insights) > 0 {
			heading(w, "Insights")
			bulletList(w, ans.Insights)
		}
		return nil
	})
}

// WriteSuggestions prints suggested questions.
func (ow *OutWriter) WriteSuggestions(suggestions []string) error {
	return ow.render(map[string][]string{"suggestions": suggestions}, func(w io.Writer) error {
		heading(w, "Suggested questions")
		bulletList(w, suggestions)
		return nil
	})
}

// WriteVisualization prints the timeline, heatmap and ownership views.
func (ow *OutWriter) WriteVisualization(data *schema.VisualizationData) error {
	return ow.render(data, func(w io.Writer) error {
		heading(w, "Timeline")
		table := newTable(w, []string{"Date", "Commit", "Category", "Files", "Message"}, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft)
		width := maxTextWidth(ow.cfg, 50)
		var rows [][]string
		for _, ev := range data.Timeline {
			rows = append(rows, []string{ev.Date.Format(dateLayout), shortHash(ev.Hash), contract.GetColorLabel(ev.Category), strconv.Itoa(ev.FilesChanged), contract.TruncateText(ev.Message, width)})
		}
		if err := renderTable(table, rows); err != nil {
			return err
		}

		heading(w, "Most changed files")
		table = newTable(w, []string{"File", "Changes"}, tw.AlignLeft, tw.AlignRight)
		pathWidth := maxTextWidth(ow.cfg, 15)
		rows = nil
		for _, cell := range data.Heatmap {
			rows = append(rows, []string{contract.TruncatePath(cell.File, pathWidth), strconv.Itoa(cell.Changes)})
		}
		if err := renderTable(table, rows); err != nil {
			return err
		}

		heading(w, "Ownership")
		table = newTable(w, []string{"Author", "Commits", "Files touched"}, tw.AlignLeft, tw.AlignRight, tw.AlignRight)
		rows = nil
		for _, o := range data.Ownership {
			rows = append(rows, []string{schema.AbbreviateName(o.Author), strconv.Itoa(o.Commits), strconv.Itoa(o.FilesTouched)})
		}
		return renderTable(table, rows)
	})
}
