package sync

// Semaphore and Mutex need to deschedule the calling thread when they are
// contended and wake a waiter when a resource becomes available. That
// logic lives in kernel/proc's scheduler, but kernel/sync cannot import
// kernel/proc: the scheduler itself uses an IrqLock to protect its
// run queue, which would create an import cycle. Instead kernel/proc
// registers the two callbacks it wants invoked via SetSchedulerHooks
// during kernel init, mirroring the yieldFn indirection Spinlock already
// uses for the same reason.
var (
	blockCurrentFn = func(waitChannel interface{}) { defaultYield() }
	wakeOneFn      = func(waitChannel interface{}) {}
)

// SetSchedulerHooks installs the scheduler callbacks used by Semaphore and
// Mutex. block deschedules the calling thread until a matching call to
// wake(waitChannel) selects it to run again; wake picks one thread
// blocked on waitChannel (if any) and makes it runnable. waitChannel is an
// opaque token (typically the address of the Semaphore/Mutex) used only
// to match blockers to wakers.
func SetSchedulerHooks(block func(waitChannel interface{}), wake func(waitChannel interface{})) {
	blockCurrentFn = block
	wakeOneFn = wake
}

func defaultYield() {
	if yieldFn != nil {
		yieldFn()
	}
}
