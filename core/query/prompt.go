package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// Context limits beyond the ranked commits.
const (
	contextPatterns   = 3
	contextMilestones = 5
	shortHashLen      = 12
	subjectChars      = 200
	dateLayout        = "2006-01-02"
)

// answerShape is the reply format the model is asked for.
const answerShape = `{"answer": "...", "evidence": [{"commit_hash": "...", "summary": "...", "author": "...", "date": "YYYY-MM-DD"}], "timeline": [{"event": "...", "date": "YYYY-MM-DD"}], "insights": ["..."]}`

// shortHash abbreviates a commit hash for prompts.
func shortHash(h string) string {
	if len(h) > shortHashLen {
		return h[:shortHashLen]
	}
	return h
}

// commitLine renders one ranked commit. Only commit lines start with "- ".
func commitLine(c schema.CommitRecord) string {
	line := fmt.Sprintf("- %s %s %s [%s]: %s",
		shortHash(c.Hash), c.Date.Format(dateLayout), c.Author, c.Category,
		contract.TruncateText(c.Subject(), subjectChars))
	if len(c.Files) > 0 {
		line += fmt.Sprintf(" (Files: %s)", strings.Join(c.Files[:min(3, len(c.Files))], ", "))
	}
	return line
}

// BuildQueryPrompt assembles the bounded context for one question: repository
// stats, category counts, top patterns, recent milestones and at most
// maxCommits ranked commits, keeping the whole prompt within maxChars when
// the fixed sections allow it.
func BuildQueryPrompt(question string, a *schema.RepoAnalysis, ranked []schema.ScoredCommit, maxCommits, maxChars int) string {
	var head strings.Builder
	fmt.Fprintf(&head, "You are answering questions about the history of the repository %s.\n\n", a.RepoURL)

	// --- 1. Stats ---
	s := a.Stats
	head.WriteString("Repository statistics:\n")
	fmt.Fprintf(&head, "* Commits analyzed: %d", s.TotalCommits)
	if s.TotalCommits > 0 {
		fmt.Fprintf(&head, " (from %s to %s)", s.DateRange.Start.Format(dateLayout), s.DateRange.End.Format(dateLayout))
	}
	if a.Truncated {
		head.WriteString(", history truncated")
	}
	head.WriteString("\n")
	fmt.Fprintf(&head, "* Contributors: %d\n", len(s.Authors))
	fmt.Fprintf(&head, "* Lines: +%d / -%d\n", s.TotalInsertions, s.TotalDeletions)
	if cats := categoryCounts(s.Categories); cats != "" {
		fmt.Fprintf(&head, "* Commit categories: %s\n", cats)
	}

	// --- 2. Patterns and milestones ---
	if patterns := a.Patterns.Architectural; len(patterns) > 0 {
		head.WriteString("\nArchitectural patterns:\n")
		for _, p := range patterns[:min(contextPatterns, len(patterns))] {
			fmt.Fprintf(&head, "* %s: %s (impact %s)\n", p.Type, contract.TruncateText(p.Description, subjectChars), p.Impact)
		}
	}
	if ms := a.Patterns.Milestones; len(ms) > 0 {
		head.WriteString("\nMilestones:\n")
		for _, m := range ms[:min(contextMilestones, len(ms))] {
			date := ""
			if m.Date != nil {
				date = m.Date.Format(dateLayout) + " "
			}
			fmt.Fprintf(&head, "* %s%s [%s]\n", date, m.Title, m.Category)
		}
	}

	var tail strings.Builder
	fmt.Fprintf(&tail, "\nQuestion: %s\n\n", question)
	tail.WriteString("Answer using only the history above and cite commits by hash. ")
	tail.WriteString("Respond with JSON only, in this shape:\n")
	tail.WriteString(answerShape)
	tail.WriteString("\n")

	// --- 3. Ranked commits within the remaining budget ---
	budget := maxChars - head.Len() - tail.Len()
	var body strings.Builder
	body.WriteString("\nMost relevant commits:\n")
	added := 0
	for _, sc := range ranked {
		if added >= maxCommits {
			break
		}
		line := commitLine(sc.Commit) + "\n"
		if added > 0 && body.Len()+len(line) > budget {
			break
		}
		body.WriteString(line)
		added++
	}
	if added == 0 {
		body.WriteString("(none)\n")
	}

	return head.String() + body.String() + tail.String()
}

// categoryCounts lists category counts, largest first.
func categoryCounts(counts map[schema.Category]int) string {
	cats := make([]schema.Category, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			cats = append(cats, c)
		}
	}
	slices.SortFunc(cats, func(a, b schema.Category) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return cmp.Compare(a, b)
	})
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = fmt.Sprintf("%s=%d", c, counts[c])
	}
	return strings.Join(parts, ", ")
}
