package indexer

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexLock(t *testing.T) {
	var l IndexLock
	require.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}

func TestSourceLocks_SameSource(t *testing.T) {
	s := newSourceLocks()

	release, ok := s.tryAcquire("a.md")
	require.True(t, ok)

	_, ok = s.tryAcquire("a.md")
	assert.False(t, ok)

	other, ok := s.tryAcquire("b.md")
	require.True(t, ok)
	other()

	release()
	release()
	assert.Empty(t, s.locks)

	again, ok := s.tryAcquire("a.md")
	require.True(t, ok)
	again()
}

// TestSourceLocks_Exclusive holds many goroutines against one source and
// checks that at most one is ever inside the critical section
func TestSourceLocks_Exclusive(t *testing.T) {
	s := newSourceLocks()

	var active, peak, acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				release, ok := s.tryAcquire("shared.txt")
				if !ok {
					continue
				}
				acquired.Add(1)
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				active.Add(-1)
				release()
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, acquired.Load())
	assert.Equal(t, int32(1), peak.Load())
	assert.Empty(t, s.locks)
}
