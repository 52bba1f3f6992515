// Package schema has the models shared by every part of codetime.
package schema

import "time"

// CommitRecord is one historical change as ingested from the source.
// Category, Scope and Impact are assigned once at ingestion and never change.
type CommitRecord struct {
	Hash         string      `json:"hash"`
	Author       string      `json:"author"`
	Email        string      `json:"email,omitempty"`
	Date         time.Time   `json:"date"`
	Message      string      `json:"message"`
	Files        []string    `json:"files"`
	Insertions   int         `json:"insertions"`
	Deletions    int         `json:"deletions"`
	FilesChanged int         `json:"files_changed"` // Counts every file, even past the sampling cap
	Category     Category    `json:"category"`
	Scope        []string    `json:"scope,omitempty"`
	Impact       ImpactLevel `json:"impact"`
}

// Subject returns the first line of the commit message.
func (c CommitRecord) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// LinesChanged is the sum of insertions and deletions.
func (c CommitRecord) LinesChanged() int {
	return c.Insertions + c.Deletions
}

// SourceSnapshot is what the source collaborator hands back for one repository.
type SourceSnapshot struct {
	Commits []CommitRecord // Newest first as reported by the source
	Files   []string       // Tracked files at HEAD, already sampled

	// Truncated is set when the source knows older history exists that it
	// did not fetch, such as a depth-bounded clone.
	Truncated bool
}

// AuthorStats aggregates one author's contributions.
type AuthorStats struct {
	Commits    int `json:"commits"`
	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
}

// DateRange spans the oldest and newest ingested commit.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Stats holds the aggregate statistics for one repository analysis.
type Stats struct {
	TotalCommits    int                    `json:"total_commits"`
	TotalFiles      int                    `json:"total_files"`
	FileTypes       map[string]int         `json:"file_types"`
	Authors         map[string]AuthorStats `json:"authors"`
	Categories      map[Category]int       `json:"categories"`
	DateRange       DateRange              `json:"date_range"`
	TotalInsertions int                    `json:"total_insertions"`
	TotalDeletions  int                    `json:"total_deletions"`
}

// PatternRecord is an architectural pattern extracted by the synthesizer.
type PatternRecord struct {
	Type            string      `json:"type"`
	Description     string      `json:"description"`
	Impact          ImpactLevel `json:"impact"`
	CommitsInvolved []string    `json:"commits_involved,omitempty"`
	Confidence      string      `json:"confidence,omitempty"`
}

// Milestone is a notable commit in the repository's history.
type Milestone struct {
	Hash         string      `json:"hash"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Category     Category    `json:"category"`
	Impact       ImpactLevel `json:"impact"`
	Author       string      `json:"author,omitempty"`
	Date         *time.Time  `json:"date,omitempty"`
	FilesChanged int         `json:"files_changed"`
}

// Patterns is everything the synthesizer produced for one analysis.
// It may be partial when some batches failed.
type Patterns struct {
	Architectural []PatternRecord `json:"architectural"`
	Milestones    []Milestone     `json:"milestones"`
	Insights      []string        `json:"insights"`
	FailedBatches int             `json:"failed_batches"`
}

// RepoAnalysis is the snapshot produced once per job. It is read-only after it is written.
type RepoAnalysis struct {
	RepoID     string         `json:"repo_id"`
	RepoURL    string         `json:"repo_url"`
	Stats      Stats          `json:"stats"`
	Commits    []CommitRecord `json:"commits"`
	Patterns   Patterns       `json:"patterns"`
	Truncated  bool           `json:"truncated"`
	MaxCommits int            `json:"max_commits"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// Evidence is a normalized reference to a commit that supports an answer.
type Evidence struct {
	CommitRef string `json:"commit_ref"`
	Summary   string `json:"summary"`
	Author    string `json:"author,omitempty"`
	Date      string `json:"date,omitempty"`
}

// TimelineItem is one event in an answer's timeline.
type TimelineItem struct {
	Event string `json:"event"`
	Date  string `json:"date,omitempty"`
}

// Answer is the canonical body of a query response.
type Answer struct {
	Answer   string         `json:"answer"`
	Evidence []Evidence     `json:"evidence"`
	Timeline []TimelineItem `json:"timeline"`
	Insights []string       `json:"insights"`
}

// QueryResult is produced fresh for every question and never cached.
type QueryResult struct {
	Query  string `json:"query"`
	Result Answer `json:"result"`
}

// ScoredCommit pairs a commit with its relevance score and ingestion index.
type ScoredCommit struct {
	Commit CommitRecord
	Score  int
	Index  int
}
