package kheap

import (
	"novaos/kernel/config"
	"testing"
	"unsafe"
)

func TestKmallocKfreeRoundTrip(t *testing.T) {
	Init()

	ptr, err := Kmalloc(64)
	if err != nil {
		t.Fatalf("Kmalloc failed: %v", err)
	}
	if ptr == nil {
		t.Fatalf("expected non-nil pointer")
	}
	if uintptr(ptr)%config.HeapAlignment != 0 {
		t.Fatalf("pointer %p not aligned to %d", ptr, config.HeapAlignment)
	}

	if err := Kfree(ptr); err != nil {
		t.Fatalf("Kfree failed: %v", err)
	}

	_, used := Stats()
	if used != 0 {
		t.Fatalf("expected 0 bytes used after freeing the only allocation, got %d", used)
	}
}

func TestKmallocOutOfMemory(t *testing.T) {
	Init()

	if _, err := Kmalloc(uint32(len(arena)) + 1); err == nil {
		t.Fatalf("expected out-of-memory error for an allocation larger than the arena")
	}
}

func TestKfreeCoalescesBothDirections(t *testing.T) {
	Init()

	a, err := Kmalloc(32)
	if err != nil {
		t.Fatalf("Kmalloc a failed: %v", err)
	}
	b, err := Kmalloc(32)
	if err != nil {
		t.Fatalf("Kmalloc b failed: %v", err)
	}
	c, err := Kmalloc(32)
	if err != nil {
		t.Fatalf("Kmalloc c failed: %v", err)
	}

	if err := Kfree(a); err != nil {
		t.Fatalf("Kfree a failed: %v", err)
	}
	if err := Kfree(c); err != nil {
		t.Fatalf("Kfree c failed: %v", err)
	}
	if err := Kfree(b); err != nil {
		t.Fatalf("Kfree b failed: %v", err)
	}

	// The whole arena should have coalesced back into a single free
	// segment spanning it entirely.
	if head.next != nil {
		t.Fatalf("expected a single coalesced free segment, found a second segment of size %d", head.next.size)
	}
	if head.allocated {
		t.Fatalf("expected the coalesced segment to be free")
	}
	if head.size != uint32(len(arena)) {
		t.Fatalf("expected coalesced segment to span the whole arena (%d), got %d", len(arena), head.size)
	}
}

func TestKfreeDetectsGuardCorruption(t *testing.T) {
	Init()

	ptr, err := Kmalloc(32)
	if err != nil {
		t.Fatalf("Kmalloc failed: %v", err)
	}

	seg := (*segment)(unsafe.Pointer(uintptr(ptr) - headerSize))
	seg.magic = 0

	if err := Kfree(ptr); err == nil {
		t.Fatalf("expected Kfree to detect a corrupted guard")
	}
}

func TestKfreeNilIsNoop(t *testing.T) {
	Init()
	if err := Kfree(nil); err != nil {
		t.Fatalf("expected nil to be a no-op, got %v", err)
	}
}
