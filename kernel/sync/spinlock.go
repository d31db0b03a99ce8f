// Package sync provides synchronization primitive implementations for
// spinlocks. The original kernel package implemented the busy-wait loop in
// arch-specific assembly (PAUSE on amd64) because it ran before the Go
// runtime's scheduler existed; MTOS-core runs hosted under a real goroutine
// scheduler, so the loop below yields to it directly instead.
package sync

import (
	"runtime"
	"sync/atomic"
)

var (
	// yieldFn is a package variable so tests can substitute their own
	// yield function.
	yieldFn = runtime.Gosched
)

// spinAttemptsBeforeYielding bounds how many times Acquire spins on the CAS
// before calling yieldFn, mirroring the teacher's attemptsBeforeYielding
// parameter without the arch-specific PAUSE instruction backing it.
const spinAttemptsBeforeYielding = 1000

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	attempts := uint32(0)
	for !l.TryToAcquire() {
		attempts++
		if attempts >= spinAttemptsBeforeYielding {
			attempts = 0
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
