package sync

import "testing"

func TestIrqLockNesting(t *testing.T) {
	var l IrqLock

	l.Acquire()
	if l.depth != 1 {
		t.Fatalf("expected depth 1, got %d", l.depth)
	}

	l.Acquire()
	if l.depth != 2 {
		t.Fatalf("expected depth 2, got %d", l.depth)
	}

	l.Release()
	if l.depth != 1 {
		t.Fatalf("expected depth 1 after one release, got %d", l.depth)
	}

	l.Release()
	if l.depth != 0 {
		t.Fatalf("expected depth 0 after both releases, got %d", l.depth)
	}
}

func TestIrqLockExtraReleaseIsNoop(t *testing.T) {
	var l IrqLock
	l.Release()
	if l.depth != 0 {
		t.Fatalf("expected depth to stay 0, got %d", l.depth)
	}
}
