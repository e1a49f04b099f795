// Package ipc implements the kernel-side half of the futex-style blocking
// primitives (spec.md §4.5/§5) and the reference three-state user-space
// mutex protocol built on top of them.
package ipc

import (
	"novaos/kernel/proc"
	"novaos/kernel/sync"
	"sync/atomic"
	"unsafe"
)

// futexLock makes the check-then-block sequence in FutexWait atomic with
// respect to FutexWake, matching spec.md §5's "futex wait queues ...
// modification is interrupts-off".
var futexLock sync.IrqLock

// FutexWait blocks the calling thread iff the 32-bit word at addr still
// equals expected. addr is a user virtual address, trusted as-is per
// spec.md §4.5's failure-semantics note.
func FutexWait(addr uintptr, expected uint32) {
	futexLock.Acquire()
	defer futexLock.Release()

	word := (*uint32)(unsafe.Pointer(addr))
	if atomic.LoadUint32(word) != expected {
		return
	}

	// The lock stays held (interrupts stay disabled) across the block:
	// otherwise a FutexWake between the check above and the thread
	// actually going Blocked would be lost. Schedule's context switch
	// re-enables interrupts for whichever thread runs next regardless of
	// this lock's bookkeeping, so the deferred Release above only needs
	// to restore this thread's own notion of its critical section once
	// it is eventually woken and resumes here.
	proc.BlockCurrentOnKey(addr)
}

// FutexWake wakes one thread blocked in FutexWait on addr, if any.
// Returns true if a thread was woken.
func FutexWake(addr uintptr) bool {
	futexLock.Acquire()
	defer futexLock.Release()
	return proc.WakeOneWithKey(addr)
}
