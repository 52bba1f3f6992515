package iocache

import (
	"context"
	"sync"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// MemoryStore keeps analyses in process memory. Entries are stored encoded
// so every reader gets its own copy and writers replace them atomically.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ contract.CacheStore = &MemoryStore{} // Compile-time check

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Put implements the CacheStore interface.
func (s *MemoryStore) Put(_ context.Context, repoID string, entry *schema.CacheEntry) error {
	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[repoID] = payload
	s.mu.Unlock()
	return nil
}

// Get implements the CacheStore interface.
func (s *MemoryStore) Get(_ context.Context, repoID string) (*schema.CacheEntry, bool, error) {
	s.mu.RLock()
	payload, ok := s.entries[repoID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	entry, err := decodeEntry(payload)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Exists implements the CacheStore interface.
func (s *MemoryStore) Exists(_ context.Context, repoID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[repoID]
	return ok, nil
}

func (s *MemoryStore) all() ([]*schema.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*schema.CacheEntry, 0, len(s.entries))
	for _, payload := range s.entries {
		entry, err := decodeEntry(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// List implements the CacheStore interface.
func (s *MemoryStore) List(_ context.Context, limit int) ([]schema.EntrySummary, error) {
	if limit <= 0 {
		limit = contract.DefaultListLimit
	}
	entries, err := s.all()
	if err != nil {
		return nil, err
	}
	return summarize(entries, limit), nil
}

// Delete implements the CacheStore interface.
func (s *MemoryStore) Delete(_ context.Context, repoID string) error {
	s.mu.Lock()
	delete(s.entries, repoID)
	s.mu.Unlock()
	return nil
}

// Cleanup implements the CacheStore interface.
func (s *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, payload := range s.entries {
		entry, err := decodeEntry(payload)
		if err != nil {
			return removed, err
		}
		if entry.UpdatedAt.Before(olderThan) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// GetStatus implements the CacheStore interface.
func (s *MemoryStore) GetStatus() (schema.CacheStatus, error) {
	entries, err := s.all()
	if err != nil {
		return schema.CacheStatus{Backend: string(schema.MemoryBackend)}, err
	}
	status := statusOf(schema.MemoryBackend, entries)
	s.mu.RLock()
	for _, payload := range s.entries {
		status.TableSizeBytes += int64(len(payload))
	}
	s.mu.RUnlock()
	return status, nil
}

// Close implements the CacheStore interface.
func (s *MemoryStore) Close() error {
	return nil
}
