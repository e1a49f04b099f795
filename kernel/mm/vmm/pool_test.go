package vmm

import (
	"novaos/kernel/config"
	"testing"
)

func resetAddressSpacePool() {
	for i := range addressSpaceUsed {
		addressSpaceUsed[i] = false
	}
}

func TestAllocAddressSpaceExhaustsPool(t *testing.T) {
	resetAddressSpacePool()
	t.Cleanup(resetAddressSpacePool)

	for i := 0; i < config.MaxProcesses; i++ {
		if allocAddressSpace() == nil {
			t.Fatalf("expected slot %d to be available", i)
		}
	}

	if allocAddressSpace() != nil {
		t.Fatalf("expected pool to be exhausted after allocating every slot")
	}
}

func TestFreeAddressSpaceReturnsSlotToPool(t *testing.T) {
	resetAddressSpacePool()
	t.Cleanup(resetAddressSpacePool)

	as := allocAddressSpace()
	if as == nil {
		t.Fatalf("expected a free slot")
	}
	freeAddressSpace(as)

	for i := 0; i < config.MaxProcesses; i++ {
		if allocAddressSpace() == nil {
			t.Fatalf("expected slot %d to be available after freeing one", i)
		}
	}
}

func TestNewFailsWhenAddressSpacePoolExhausted(t *testing.T) {
	newFakePhysMem(t, 8)
	withFakeFrameAllocator(t, 1)
	resetAddressSpacePool()
	t.Cleanup(resetAddressSpacePool)

	for i := range addressSpaceUsed {
		addressSpaceUsed[i] = true
	}

	if _, err := New(nil); err == nil {
		t.Fatalf("expected New to fail when the address space pool is exhausted")
	}
}
