package sync

// Mutex is a blocking mutual-exclusion lock: unlike Spinlock, a contended
// Lock deschedules the calling thread instead of busy-waiting, via the
// same scheduler hooks Semaphore uses.
type Mutex struct {
	sem Semaphore
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: Semaphore{count: 1}}
}

// Lock blocks until the mutex can be acquired.
func (m *Mutex) Lock() {
	m.sem.Wait()
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	return m.sem.TryWait()
}

// Unlock releases the mutex. Calling Unlock on an already-unlocked Mutex
// allows two threads into the critical section simultaneously; callers
// must pair every Lock with exactly one Unlock.
func (m *Mutex) Unlock() {
	m.sem.Signal()
}
