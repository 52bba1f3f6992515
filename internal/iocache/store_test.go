package iocache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// baseTime has whole-second precision so SQL rows compare cleanly.
var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func completedEntry(id string, updated time.Time) *schema.CacheEntry {
	return &schema.CacheEntry{
		RepoID:     id,
		RepoURL:    "https://github.com/acme/" + id,
		MaxCommits: 100,
		Status:     schema.CompletedStatus,
		RunID:      "run-" + id,
		Data: &schema.RepoAnalysis{
			RepoID:  id,
			RepoURL: "https://github.com/acme/" + id,
			Stats: schema.Stats{
				TotalCommits: 2,
				Categories:   map[schema.Category]int{schema.FeatureCategory: 2},
			},
			Commits: []schema.CommitRecord{
				{Hash: "b", Author: "alice", Date: updated, Message: "feat: b", Category: schema.FeatureCategory},
				{Hash: "a", Author: "alice", Date: updated.Add(-time.Hour), Message: "feat: a", Category: schema.FeatureCategory},
			},
			Patterns: schema.Patterns{
				Architectural: []schema.PatternRecord{{Type: "layering", Description: "split core", Impact: schema.MediumImpact}},
				Milestones:    []schema.Milestone{},
				Insights:      []string{"steady growth"},
			},
			MaxCommits: 100,
			AnalyzedAt: updated,
		},
		CreatedAt: updated.Add(-time.Minute),
		UpdatedAt: updated,
	}
}

func pendingEntry(id string, updated time.Time) *schema.CacheEntry {
	return &schema.CacheEntry{
		RepoID:    id,
		RepoURL:   "https://github.com/acme/" + id,
		Status:    schema.PendingStatus,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// storeFactories opens every backend that needs no external server.
func storeFactories(t *testing.T) map[string]func() contract.CacheStore {
	return map[string]func() contract.CacheStore{
		"memory": func() contract.CacheStore {
			return NewMemoryStore()
		},
		"sqlite": func() contract.CacheStore {
			s, err := NewSQLStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			return s
		},
		"badger": func() contract.CacheStore {
			s, err := NewBadgerStore(":memory:")
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_PutGetExists(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()

			got, found, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, got)

			ok, err := store.Exists(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			entry := completedEntry("r1", baseTime)
			require.NoError(t, store.Put(ctx, "r1", entry))

			ok, err = store.Exists(ctx, "r1")
			require.NoError(t, err)
			assert.True(t, ok)

			got, found, err = store.Get(ctx, "r1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, schema.CompletedStatus, got.Status)
			assert.Equal(t, "run-r1", got.RunID)
			require.NotNil(t, got.Data)
			assert.Len(t, got.Data.Commits, 2)
			assert.Equal(t, "b", got.Data.Commits[0].Hash)
			assert.Equal(t, []string{"steady growth"}, got.Data.Patterns.Insights)
			assert.True(t, got.UpdatedAt.Equal(baseTime))
		})
	}
}

func TestStore_GetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()

			require.NoError(t, store.Put(ctx, "r1", completedEntry("r1", baseTime)))

			first, _, err := store.Get(ctx, "r1")
			require.NoError(t, err)
			second, _, err := store.Get(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, first, second)

			// Readers get independent copies.
			first.Data.Commits[0].Hash = "mutated"
			third, _, err := store.Get(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, "b", third.Data.Commits[0].Hash)
		})
	}
}

func TestStore_PutOverwritesWholeEntry(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()

			require.NoError(t, store.Put(ctx, "r1", pendingEntry("r1", baseTime)))

			failed := pendingEntry("r1", baseTime.Add(time.Minute))
			failed.Status = schema.FailedStatus
			failed.ErrorMessage = "Repository could not be reached."
			require.NoError(t, store.Put(ctx, "r1", failed))

			got, found, err := store.Get(ctx, "r1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, schema.FailedStatus, got.Status)
			assert.Equal(t, "Repository could not be reached.", got.ErrorMessage)
			assert.Nil(t, got.Data)

			list, err := store.List(ctx, 10)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, schema.FailedStatus, list[0].Status)
		})
	}
}

// TestStore_ReadsDuringOverwritesAreWhole runs readers against a writer that
// walks one entry through its lifecycle many times. Every read must be one of
// the written entries, never fields from two different writes.
func TestStore_ReadsDuringOverwritesAreWhole(t *testing.T) {
	const rounds = 20
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()
			require.NoError(t, store.Put(ctx, "r1", pendingEntry("r1", baseTime)))

			var done atomic.Bool
			var reads atomic.Int64
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				defer done.Store(true)
				for i := range rounds {
					runID := fmt.Sprintf("run-%d", i)
					updated := baseTime.Add(time.Duration(i) * time.Minute)

					entry := pendingEntry("r1", updated)
					entry.RunID = runID
					for _, status := range []schema.JobStatus{schema.PendingStatus, schema.ProcessingStatus} {
						entry.Status = status
						if err := store.Put(gctx, "r1", entry); err != nil {
							return err
						}
					}

					completed := completedEntry("r1", updated)
					completed.RunID = runID
					completed.Data.Patterns.Insights = []string{runID}
					if err := store.Put(gctx, "r1", completed); err != nil {
						return err
					}
				}
				return nil
			})

			for range 4 {
				g.Go(func() error {
					for {
						last := done.Load()
						got, found, err := store.Get(gctx, "r1")
						if err != nil {
							return err
						}
						if !found {
							return errors.New("entry vanished during overwrite")
						}
						reads.Add(1)
						switch got.Status {
						case schema.CompletedStatus:
							if got.Data == nil || len(got.Data.Patterns.Insights) != 1 || got.Data.Patterns.Insights[0] != got.RunID {
								return fmt.Errorf("torn completed entry: run %q with data %+v", got.RunID, got.Data)
							}
						case schema.PendingStatus, schema.ProcessingStatus:
							if got.Data != nil || got.ErrorMessage != "" {
								return fmt.Errorf("torn %s entry carries completed fields", got.Status)
							}
						default:
							return fmt.Errorf("unexpected status %q", got.Status)
						}
						if last {
							return nil
						}
					}
				})
			}

			require.NoError(t, g.Wait())
			assert.GreaterOrEqual(t, reads.Load(), int64(4))
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()

			require.NoError(t, store.Put(ctx, "old", completedEntry("old", baseTime)))
			require.NoError(t, store.Put(ctx, "mid", pendingEntry("mid", baseTime.Add(time.Hour))))
			require.NoError(t, store.Put(ctx, "new", completedEntry("new", baseTime.Add(2*time.Hour))))

			list, err := store.List(ctx, 10)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "new", list[0].RepoID)
			assert.Equal(t, "mid", list[1].RepoID)
			assert.Equal(t, "old", list[2].RepoID)
			assert.Equal(t, 2, list[0].TotalCommits)
			assert.Equal(t, 0, list[1].TotalCommits)

			limited, err := store.List(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)
		})
	}
}

func TestStore_DeleteAndCleanup(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()

			require.NoError(t, store.Put(ctx, "stale", completedEntry("stale", baseTime)))
			require.NoError(t, store.Put(ctx, "orphan", pendingEntry("orphan", baseTime.Add(time.Hour))))
			require.NoError(t, store.Put(ctx, "fresh", completedEntry("fresh", baseTime.Add(48*time.Hour))))

			require.NoError(t, store.Delete(ctx, "missing"), "deleting a missing id is not an error")

			removed, err := store.Cleanup(ctx, baseTime.Add(24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 2, removed, "stale and orphaned entries are removed regardless of status")

			ok, err := store.Exists(ctx, "fresh")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, store.Delete(ctx, "fresh"))
			ok, err = store.Exists(ctx, "fresh")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_GetStatus(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer func() { _ = store.Close() }()

			status, err := store.GetStatus()
			require.NoError(t, err)
			assert.Equal(t, name, status.Backend)
			assert.True(t, status.Connected)
			assert.Equal(t, 0, status.TotalEntries)

			require.NoError(t, store.Put(ctx, "a", completedEntry("a", baseTime)))
			require.NoError(t, store.Put(ctx, "b", completedEntry("b", baseTime.Add(time.Hour))))
			require.NoError(t, store.Put(ctx, "c", pendingEntry("c", baseTime.Add(2*time.Hour))))

			status, err = store.GetStatus()
			require.NoError(t, err)
			assert.Equal(t, 3, status.TotalEntries)
			assert.Equal(t, 2, status.ByStatus[schema.CompletedStatus])
			assert.Equal(t, 1, status.ByStatus[schema.PendingStatus])
			assert.True(t, status.OldestEntryTime.Equal(baseTime))
			assert.True(t, status.LastEntryTime.Equal(baseTime.Add(2*time.Hour)))
			if name != "badger" { // In-memory Badger may not report its size yet
				assert.Positive(t, status.TableSizeBytes)
			}
		})
	}
}

func TestNewCacheStore_UnsupportedBackend(t *testing.T) {
	_, err := NewCacheStore("oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache backend")
}

func TestInitStoresAndClose(t *testing.T) {
	require.NoError(t, InitStores(schema.MemoryBackend, ""))
	store := Manager.GetAnalysisStore()
	require.NotNil(t, store)

	// Later calls keep the first store.
	require.NoError(t, InitStores(schema.SQLiteBackend, filepath.Join(t.TempDir(), "ignored.db")))
	assert.Same(t, store, Manager.GetAnalysisStore())

	CloseCaching()
	CloseCaching()
}

func TestClearCache_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewSQLStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "r1", completedEntry("r1", baseTime)))
	require.NoError(t, store.Close())

	require.NoError(t, ClearCache(schema.SQLiteBackend, path))
	require.NoError(t, ClearCache(schema.SQLiteBackend, path), "clearing twice is not an error")

	store, err = NewSQLStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ok, err := store.Exists(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearCache_Badger(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "badger")

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "r1", completedEntry("r1", baseTime)))
	require.NoError(t, store.Close())

	require.NoError(t, ClearCache(schema.BadgerBackend, dir))
	assert.NoDirExists(t, dir)
}
