// Package query answers natural-language questions about a completed
// analysis and derives its visualization views.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/huangsam/codetime/core/algo"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/metrics"
	"github.com/huangsam/codetime/schema"
)

// AnswerBudget is the completion budget for one answer.
const AnswerBudget = 1500

// ApologyAnswer is returned when the model cannot be reached.
const ApologyAnswer = "Sorry, the question could not be answered right now. Please try again in a moment."

// minRefLen is the shortest cited hash prefix resolved against the history.
const minRefLen = 7

// Options bound the context sent with each question.
type Options struct {
	TopK           int
	ContextCommits int
	ContextChars   int
}

// OptionsFromConfig reads the query options from cfg.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{TopK: cfg.TopK, ContextCommits: cfg.ContextCommits, ContextChars: cfg.ContextChars}
}

// Engine answers questions against cached analyses. It never writes.
type Engine struct {
	store   contract.CacheStore
	llm     contract.LLMClient
	metrics *metrics.Metrics
	opts    Options
}

// New creates an Engine. m may be nil.
func New(store contract.CacheStore, llm contract.LLMClient, m *metrics.Metrics, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = contract.DefaultTopK
	}
	if opts.ContextCommits <= 0 {
		opts.ContextCommits = contract.DefaultContextCommits
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = contract.DefaultContextChars
	}
	return &Engine{store: store, llm: llm, metrics: m, opts: opts}
}

// load returns the analysis of a completed job.
func (e *Engine) load(ctx context.Context, repoID string) (*schema.RepoAnalysis, error) {
	entry, found, err := e.store.Get(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis %s: %w", repoID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", contract.ErrNotFound, repoID)
	}
	if entry.Status != schema.CompletedStatus || entry.Data == nil {
		return nil, fmt.Errorf("%w: %s is %s", contract.ErrNotReady, repoID, entry.Status)
	}
	return entry.Data, nil
}

// Ask answers question about a completed analysis. Model failures produce
// an apology answer rather than an error.
func (e *Engine) Ask(ctx context.Context, repoID, question string) (*schema.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: query is required", contract.ErrInvalidInput)
	}
	analysis, err := e.load(ctx, repoID)
	if err != nil {
		return nil, err
	}

	ranked := algo.Rank(question, analysis.Commits, e.opts.TopK)
	prompt := BuildQueryPrompt(question, analysis, ranked, e.opts.ContextCommits, e.opts.ContextChars)

	raw, err := e.llm.Complete(ctx, prompt, AnswerBudget)
	if err != nil {
		slog.Warn("Query answer unavailable", "repo_id", repoID, "error", err)
		e.metrics.ObserveQuery(metrics.ApologyOutcome)
		ans := emptyAnswer()
		ans.Answer = ApologyAnswer
		return &schema.QueryResult{Query: question, Result: ans}, nil
	}

	ans := DecodeAnswer(raw)
	ans.Evidence = resolveEvidence(ans.Evidence, analysis.Commits)
	if len(ans.Evidence) == 0 {
		ans.Evidence = rankedEvidence(ranked)
	}
	e.metrics.ObserveQuery(metrics.AnsweredOutcome)
	return &schema.QueryResult{Query: question, Result: ans}, nil
}

// Visualize derives the timeline, heatmap and ownership views.
func (e *Engine) Visualize(ctx context.Context, repoID string) (*schema.VisualizationData, error) {
	analysis, err := e.load(ctx, repoID)
	if err != nil {
		return nil, err
	}
	data := algo.BuildVisualization(analysis.Commits)
	return &data, nil
}

// Suggestions lists suggested questions for a repository URL.
func Suggestions(repoURL string) []string {
	return schema.SuggestionsFor(contract.RepoIdentity(repoURL))
}

// evidenceOf describes a commit as evidence.
func evidenceOf(c schema.CommitRecord) schema.Evidence {
	return schema.Evidence{
		CommitRef: c.Hash,
		Summary:   c.Subject(),
		Author:    c.Author,
		Date:      c.Date.Format(dateLayout),
	}
}

// resolveEvidence expands cited hash prefixes to full hashes and fills in
// missing details from the history. Unknown references are kept as given.
func resolveEvidence(evidence []schema.Evidence, commits []schema.CommitRecord) []schema.Evidence {
	for i, ev := range evidence {
		ref := strings.ToLower(ev.CommitRef)
		if len(ref) < minRefLen {
			continue
		}
		for _, c := range commits {
			if !strings.HasPrefix(c.Hash, ref) {
				continue
			}
			known := evidenceOf(c)
			evidence[i].CommitRef = known.CommitRef
			if ev.Summary == "" {
				evidence[i].Summary = known.Summary
			}
			if ev.Author == "" {
				evidence[i].Author = known.Author
			}
			if ev.Date == "" {
				evidence[i].Date = known.Date
			}
			break
		}
	}
	return evidence
}

// rankedEvidence cites the ranked commits that matched the question at all.
func rankedEvidence(ranked []schema.ScoredCommit) []schema.Evidence {
	out := []schema.Evidence{}
	for _, sc := range ranked {
		if sc.Score > 0 {
			out = append(out, evidenceOf(sc.Commit))
		}
	}
	return out
}
