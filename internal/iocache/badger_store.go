package iocache

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// badgerKeyPrefix namespaces analysis rows in the key space.
const badgerKeyPrefix = "analysis:"

// BadgerStore keeps analyses in an embedded Badger database.
type BadgerStore struct {
	db  *badger.DB
	dir string
}

var _ contract.CacheStore = &BadgerStore{} // Compile-time check

// NewBadgerStore opens (or creates) a Badger database in dir.
// An empty dir uses the default location; ":memory:" keeps data in memory.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	var opts badger.Options
	switch dir {
	case ":memory:":
		opts = badger.DefaultOptions("").WithInMemory(true)
	case "":
		dir = contract.GetBadgerDirPath()
		opts = badger.DefaultOptions(dir)
	default:
		opts = badger.DefaultOptions(dir)
	}
	db, err := badger.Open(opts.WithLogger(nil)) // Suppress Badger logger
	if err != nil {
		return nil, fmt.Errorf("failed to open Badger cache at %q: %w", dir, err)
	}
	return &BadgerStore{db: db, dir: dir}, nil
}

func badgerKey(repoID string) []byte {
	return []byte(badgerKeyPrefix + repoID)
}

// Put implements the CacheStore interface. The value is replaced in one transaction.
func (s *BadgerStore) Put(_ context.Context, repoID string, entry *schema.CacheEntry) error {
	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(repoID), payload)
	})
}

// Get implements the CacheStore interface.
func (s *BadgerStore) Get(_ context.Context, repoID string) (*schema.CacheEntry, bool, error) {
	var entry *schema.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(repoID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = decodeEntry(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read analysis %s: %w", repoID, err)
	}
	return entry, true, nil
}

// Exists implements the CacheStore interface.
func (s *BadgerStore) Exists(_ context.Context, repoID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(repoID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scan decodes every stored entry, keyed by repo id.
func (s *BadgerStore) scan() (map[string]*schema.CacheEntry, error) {
	entries := make(map[string]*schema.CacheEntry)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			repoID := strings.TrimPrefix(string(item.Key()), badgerKeyPrefix)
			err := item.Value(func(val []byte) error {
				entry, err := decodeEntry(val)
				if err != nil {
					return err
				}
				entries[repoID] = entry
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

// List implements the CacheStore interface. Newest entries come first.
func (s *BadgerStore) List(_ context.Context, limit int) ([]schema.EntrySummary, error) {
	if limit <= 0 {
		limit = contract.DefaultListLimit
	}
	entries, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return summarize(slices.Collect(maps.Values(entries)), limit), nil
}

// Delete implements the CacheStore interface.
func (s *BadgerStore) Delete(_ context.Context, repoID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(repoID))
	})
}

// Cleanup implements the CacheStore interface.
func (s *BadgerStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	entries, err := s.scan()
	if err != nil {
		return 0, fmt.Errorf("failed to clean up analyses: %w", err)
	}
	removed := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		for repoID, e := range entries {
			if !e.UpdatedAt.Before(olderThan) {
				continue
			}
			if err := txn.Delete(badgerKey(repoID)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up analyses: %w", err)
	}
	return removed, nil
}

// GetStatus implements the CacheStore interface.
func (s *BadgerStore) GetStatus() (schema.CacheStatus, error) {
	entries, err := s.scan()
	if err != nil {
		return schema.CacheStatus{Backend: string(schema.BadgerBackend)}, err
	}
	status := statusOf(schema.BadgerBackend, slices.Collect(maps.Values(entries)))
	lsm, vlog := s.db.Size()
	status.TableSizeBytes = lsm + vlog
	return status, nil
}

// Close implements the CacheStore interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// summarize sorts entries newest first and returns at most limit summaries.
func summarize(entries []*schema.CacheEntry, limit int) []schema.EntrySummary {
	slices.SortFunc(entries, func(a, b *schema.CacheEntry) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.RepoID, b.RepoID)
	})
	summaries := []schema.EntrySummary{}
	for _, e := range entries {
		if len(summaries) >= limit {
			break
		}
		summaries = append(summaries, e.Summary())
	}
	return summaries
}

// statusOf aggregates entries into a CacheStatus.
func statusOf(backend schema.DatabaseBackend, entries []*schema.CacheEntry) schema.CacheStatus {
	status := schema.CacheStatus{
		Backend:      string(backend),
		Connected:    true,
		TotalEntries: len(entries),
		ByStatus:     map[schema.JobStatus]int{},
	}
	for i, e := range entries {
		status.ByStatus[e.Status]++
		if i == 0 || e.UpdatedAt.After(status.LastEntryTime) {
			status.LastEntryTime = e.UpdatedAt
		}
		if i == 0 || e.UpdatedAt.Before(status.OldestEntryTime) {
			status.OldestEntryTime = e.UpdatedAt
		}
	}
	return status
}
