package algo

import (
	"slices"
	"strings"
	"unicode"

	"github.com/huangsam/codetime/schema"
)

// Points awarded per distinct query token.
const (
	MessagePoints  = 3
	CategoryPoints = 2
	FilePoints     = 1
)

// minStemLen is the shortest message word accepted as a stem of a longer
// query token, so "auth" in a message matches the query "authentication".
const minStemLen = 4

// Tokenize splits a query on whitespace, strips punctuation, lowercases,
// drops empty tokens and de-duplicates while keeping first-seen order.
func Tokenize(query string) []string {
	var tokens []string
	seen := make(map[string]struct{})
	for field := range strings.FieldsSeq(query) {
		tok := strings.Map(func(r rune) rune {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				return -1
			}
			return unicode.ToLower(r)
		}, field)
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// inMessage reports whether tok occurs in the lowercased message, either as a
// substring or because a message word is a stem of tok.
func inMessage(tok, message string, words []string) bool {
	if strings.Contains(message, tok) {
		return true
	}
	for _, w := range words {
		if len(w) >= minStemLen && len(w) < len(tok) && strings.HasPrefix(tok, w) {
			return true
		}
	}
	return false
}

// Score measures how well a commit matches pre-tokenized query tokens.
// Each distinct token earns +3 when it occurs in the message, +2 when it
// equals or is contained in the category label and +1 when it occurs in any
// changed file path. The result is never negative; no overlap scores 0.
func Score(tokens []string, c schema.CommitRecord) int {
	if len(tokens) == 0 {
		return 0
	}
	message := strings.ToLower(c.Message)
	words := MessageTokens(c.Message)
	label := string(c.Category)
	lowerFiles := make([]string, len(c.Files))
	for i, f := range c.Files {
		lowerFiles[i] = strings.ToLower(f)
	}

	score := 0
	for _, tok := range tokens {
		if inMessage(tok, message, words) {
			score += MessagePoints
		}
		if label != "" && strings.Contains(label, tok) {
			score += CategoryPoints
		}
		if slices.ContainsFunc(lowerFiles, func(f string) bool { return strings.Contains(f, tok) }) {
			score += FilePoints
		}
	}
	return score
}

// ScoreQuery tokenizes query and scores the commit against it.
func ScoreQuery(query string, c schema.CommitRecord) int {
	return Score(Tokenize(query), c)
}

// Rank scores every commit against query and returns at most k of them,
// highest score first. Ties break by ingestion order, then newer first.
func Rank(query string, commits []schema.CommitRecord, k int) []schema.ScoredCommit {
	if k <= 0 || len(commits) == 0 {
		return nil
	}
	tokens := Tokenize(query)
	scored := make([]schema.ScoredCommit, len(commits))
	for i, c := range commits {
		scored[i] = schema.ScoredCommit{Commit: c, Score: Score(tokens, c), Index: i}
	}
	slices.SortStableFunc(scored, func(a, b schema.ScoredCommit) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		if a.Index != b.Index {
			return a.Index - b.Index
		}
		return b.Commit.Date.Compare(a.Commit.Date)
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// FilterByCategory keeps the commits whose category is in cats, preserving order.
func FilterByCategory(commits []schema.CommitRecord, cats ...schema.Category) []schema.CommitRecord {
	var out []schema.CommitRecord
	for _, c := range commits {
		if slices.Contains(cats, c.Category) {
			out = append(out, c)
		}
	}
	return out
}
