package sync

import (
	"runtime"
	"sync"
	"testing"
)

func withScheduledHooks(t *testing.T) {
	origBlock, origWake := blockCurrentFn, wakeOneFn
	t.Cleanup(func() {
		blockCurrentFn, wakeOneFn = origBlock, origWake
	})
	blockCurrentFn = func(interface{}) { runtime.Gosched() }
	wakeOneFn = func(interface{}) {}
}

func TestSemaphoreTryWait(t *testing.T) {
	withScheduledHooks(t)
	sem := NewSemaphore(1)

	if !sem.TryWait() {
		t.Fatal("expected first TryWait to succeed")
	}
	if sem.TryWait() {
		t.Fatal("expected second TryWait to fail, count should be exhausted")
	}

	sem.Signal()
	if !sem.TryWait() {
		t.Fatal("expected TryWait to succeed after Signal")
	}
}

func TestSemaphoreWaitBlocksUntilSignal(t *testing.T) {
	withScheduledHooks(t)
	sem := NewSemaphore(0)

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		sem.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Signal was called")
	default:
	}

	sem.Signal()
	wg.Wait()

	select {
	case <-done:
	default:
		t.Fatal("expected Wait to return after Signal")
	}
}
