package sync

import "sync/atomic"

// Semaphore is a classic counting semaphore. Wait blocks (via the
// scheduler hooks installed through SetSchedulerHooks) while the count is
// zero; Signal increments the count and wakes one blocked waiter.
type Semaphore struct {
	count int32
}

// NewSemaphore returns a Semaphore initialized to the given count.
func NewSemaphore(initial int32) *Semaphore {
	return &Semaphore{count: initial}
}

// Wait decrements the semaphore's count, blocking the calling thread via
// the scheduler's block hook while the count is not positive.
func (s *Semaphore) Wait() {
	for {
		cur := atomic.LoadInt32(&s.count)
		if cur <= 0 {
			blockCurrentFn(s)
			continue
		}
		if atomic.CompareAndSwapInt32(&s.count, cur, cur-1) {
			return
		}
	}
}

// TryWait attempts to decrement the count without blocking. It returns
// true if it succeeded.
func (s *Semaphore) TryWait() bool {
	for {
		cur := atomic.LoadInt32(&s.count)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.count, cur, cur-1) {
			return true
		}
	}
}

// Signal increments the count and wakes one thread blocked in Wait, if
// any.
func (s *Semaphore) Signal() {
	atomic.AddInt32(&s.count, 1)
	wakeOneFn(s)
}
