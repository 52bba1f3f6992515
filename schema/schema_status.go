package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string            `json:"backend"`
	Connected       bool              `json:"connected"`
	TotalEntries    int               `json:"total_entries"`
	ByStatus        map[JobStatus]int `json:"by_status"`
	LastEntryTime   time.Time         `json:"last_entry_time"`
	OldestEntryTime time.Time         `json:"oldest_entry_time"`
	TableSizeBytes  int64             `json:"table_size_bytes"`
}
