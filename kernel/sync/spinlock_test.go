package sync

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func withTestYield(t *testing.T) {
	t.Helper()
	orig := yieldFn
	yieldFn = runtime.Gosched
	t.Cleanup(func() { yieldFn = orig })
}

func TestSpinlock_TryToAcquireFailsWhileHeld(t *testing.T) {
	withTestYield(t)

	var l Spinlock
	require.True(t, l.TryToAcquire())
	require.False(t, l.TryToAcquire(), "a second attempt must fail while the lock is held")

	l.Release()
	require.True(t, l.TryToAcquire(), "the lock must be acquirable again after Release")
}

// TestSpinlock_SerializesConcurrentWriters is the mutual-exclusion property
// the shared-memory transport's single-slot handoff gate depends on
// (kernel/ipc/sharedmemory.go's smRegion.lock): every Acquire/Release pair
// around a read-modify-write must serialize completely, or the final count
// falls short of numWorkers*incrementsPerWorker.
func TestSpinlock_SerializesConcurrentWriters(t *testing.T) {
	withTestYield(t)

	const numWorkers = 20
	const incrementsPerWorker = 500

	var l Spinlock
	counter := 0

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < incrementsPerWorker; j++ {
				l.Acquire()
				counter++
				l.Release()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, numWorkers*incrementsPerWorker, counter)
}

func TestSpinlock_ReleaseOnUnheldLockIsANoOp(t *testing.T) {
	withTestYield(t)

	var l Spinlock
	l.Release()
	require.True(t, l.TryToAcquire(), "releasing a free lock must not corrupt its state")
}
