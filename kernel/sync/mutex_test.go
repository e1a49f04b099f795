package sync

import "testing"

func TestMutexLockUnlock(t *testing.T) {
	withScheduledHooks(t)
	m := NewMutex()

	if !m.TryLock() {
		t.Fatal("expected uncontended TryLock to succeed")
	}
	if m.TryLock() {
		t.Fatal("expected TryLock to fail while already locked")
	}

	m.Unlock()
	if !m.TryLock() {
		t.Fatal("expected TryLock to succeed after Unlock")
	}
}
