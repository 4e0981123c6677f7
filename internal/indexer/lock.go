package indexer

import (
	"sync/atomic"

	"github.com/dshills/smartsearch/pkg/types"
)

// IndexLock is a non-blocking single-flight guard for one reindex scope
type IndexLock struct {
	held atomic.Bool
}

// TryAcquire takes the lock if it is free and reports whether it did
func (l *IndexLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.held.Store(false)
}

// Held reports whether a run currently owns the lock
func (l *IndexLock) Held() bool {
	return l.held.Load()
}

// ScopeAll names a reindex over every entity type
const ScopeAll = "all"

// scopeLocks holds one lock per reindex scope. The set is fixed at
// construction so lookups need no synchronisation.
type scopeLocks map[string]*IndexLock

func newScopeLocks() scopeLocks {
	locks := scopeLocks{ScopeAll: &IndexLock{}}
	for _, t := range types.AllEntityTypes() {
		locks[t.Scope()] = &IndexLock{}
	}
	return locks
}
