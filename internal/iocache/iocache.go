// Package iocache persists analysis jobs behind the CacheStore interface.
package iocache

import (
	"sync"

	"github.com/huangsam/codetime/internal/contract"
)

// CacheStoreManager owns the process-wide analysis store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	analysis     contract.CacheStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetAnalysisStore returns the analysis CacheStore.
func (mgr *CacheStoreManager) GetAnalysisStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.analysis
}
