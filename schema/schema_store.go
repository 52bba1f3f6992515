package schema

import "time"

// CacheEntry is the single record kept per job id.
// Data is set only when completed, ErrorMessage only when failed.
type CacheEntry struct {
	RepoID       string        `json:"repo_id"`
	RepoURL      string        `json:"repo_url"`
	MaxCommits   int           `json:"max_commits"`
	Status       JobStatus     `json:"status"`
	RunID        string        `json:"run_id,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Data         *RepoAnalysis `json:"data,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// EntrySummary is a lightweight view of a cache entry for listing.
type EntrySummary struct {
	RepoID       string    `json:"repo_id"`
	RepoURL      string    `json:"repo_url"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	TotalCommits int       `json:"total_commits"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary creates a summary view of the entry.
func (e *CacheEntry) Summary() EntrySummary {
	s := EntrySummary{
		RepoID:       e.RepoID,
		RepoURL:      e.RepoURL,
		Status:       e.Status,
		ErrorMessage: e.ErrorMessage,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.Data != nil {
		s.TotalCommits = e.Data.Stats.TotalCommits
	}
	return s
}

// SubmitResult is returned by an analyze request.
type SubmitResult struct {
	RepoID string    `json:"repo_id"`
	Status JobStatus `json:"status"`
	Cached bool      `json:"cached,omitempty"`
}

// AnalysisResponse is returned by a status read.
type AnalysisResponse struct {
	RepoID       string        `json:"repo_id"`
	Status       JobStatus     `json:"status"`
	Data         *RepoAnalysis `json:"data,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}
