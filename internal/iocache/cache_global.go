package iocache

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// NewCacheStore creates the store for a backend.
func NewCacheStore(backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	switch backend {
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLStore(backend, connStr)
	case schema.BadgerBackend:
		return NewBadgerStore(connStr)
	case schema.MemoryBackend:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s. Must be sqlite, mysql, postgresql, badger or memory", backend)
	}
}

// InitStores initializes the global manager. Only the first call has effect.
func InitStores(backend schema.DatabaseBackend, connStr string) error {
	var initErr error
	initOnce.Do(func() {
		store, err := NewCacheStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize analysis store: %w", err)
			return
		}
		Manager.Lock()
		Manager.analysis = store
		Manager.Unlock()
	})
	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.analysis != nil {
			_ = Manager.analysis.Close()
		}
	})
}

// ClearCache removes every cached analysis for a backend.
// For SQLite it deletes the database file, for Badger its directory, and for
// MySQL/PostgreSQL it drops the table. The store must not be open.
func ClearCache(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		path := connStr
		if path == "" {
			path = contract.GetCacheDBFilePath()
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", path, err)
		}
		return nil

	case schema.BadgerBackend:
		dir := connStr
		if dir == "" {
			dir = contract.GetBadgerDirPath()
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove Badger directory %s: %w", dir, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTable(backend, connStr, analysesTable)

	case schema.MemoryBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}
