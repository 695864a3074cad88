package indexer

import (
	"sync"
	"sync/atomic"
)

// IndexLock provides non-blocking lock semantics using atomic operations.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// sourceLocks hands out one IndexLock per source id
type sourceLocks struct {
	mu    sync.Mutex
	locks map[string]*IndexLock
}

func newSourceLocks() *sourceLocks {
	return &sourceLocks{locks: make(map[string]*IndexLock)}
}

// tryAcquire locks sourceID, returning a release func, or false when an
// ingestion of the same source is already running. Lookup and acquire
// happen under mu, and release unlocks before the entry is removed, so a
// source never has two live locks.
func (s *sourceLocks) tryAcquire(sourceID string) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[sourceID]
	if !ok {
		l = &IndexLock{}
		s.locks[sourceID] = l
	}
	if !l.TryAcquire() {
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			l.Release()
			delete(s.locks, sourceID)
		})
	}, true
}
