package vmm

import (
	"novaos/kernel/config"
	"novaos/kernel/mm"
	"testing"
)

func withNoopPDTHooks(t *testing.T) {
	origSwitch, origFlush := switchPDTFn, flushTLBFn
	t.Cleanup(func() { switchPDTFn, flushTLBFn = origSwitch, origFlush })
	switchPDTFn = func(uintptr) {}
	flushTLBFn = func(uintptr) {}
}

// withFrameLifecycleRecorder also defaults refcountFrameFn to report 2
// (genuinely shared), matching the fork-then-fault scenario most tests in
// this package exercise; tests of the sole-owner fast path override it
// after calling this helper.
func withFrameLifecycleRecorder(t *testing.T) (retained, freed *[]mm.Frame) {
	retained, freed = &[]mm.Frame{}, &[]mm.Frame{}
	origRetain, origFree, origRefcount := retainFrameFn, freeFrameFn, refcountFrameFn
	t.Cleanup(func() { retainFrameFn, freeFrameFn, refcountFrameFn = origRetain, origFree, origRefcount })
	retainFrameFn = func(f mm.Frame) { *retained = append(*retained, f) }
	freeFrameFn = func(f mm.Frame) { *freed = append(*freed, f) }
	refcountFrameFn = func(mm.Frame) uint8 { return 2 }
	return
}

func TestAddressSpaceCloneSharesFramesCopyOnWrite(t *testing.T) {
	newFakePhysMem(t, 64)
	withNoopPDTHooks(t)
	withFakeFrameAllocator(t, 2)
	retained, _ := withFrameLifecycleRecorder(t)

	var parent AddressSpace
	if err := parent.Init(mm.Frame(0), nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	virt := uintptr(config.UserTextStart)
	dataFrame := mm.Frame(40)
	if err := parent.Map(virt, dataFrame, FlagRW|FlagUser); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	child, err := parent.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	if len(*retained) != 1 || (*retained)[0] != dataFrame {
		t.Fatalf("expected dataFrame to be retained once, got %v", *retained)
	}

	parentPTE, err := parent.entryAt(virt)
	if err != nil || parentPTE == nil {
		t.Fatalf("parent entryAt failed: %v", err)
	}
	if parentPTE.HasFlags(FlagRW) || !parentPTE.HasFlags(FlagCopyOnWrite) {
		t.Fatalf("parent PTE not demoted to read-only+COW")
	}

	childPTE, err := child.entryAt(virt)
	if err != nil || childPTE == nil {
		t.Fatalf("child entryAt failed: %v", err)
	}
	if childPTE.HasFlags(FlagRW) || !childPTE.HasFlags(FlagCopyOnWrite) {
		t.Fatalf("child PTE not marked read-only+COW")
	}
	if childPTE.Frame() != dataFrame {
		t.Fatalf("expected child to share frame %d, got %d", dataFrame, childPTE.Frame())
	}
}

func TestAddressSpaceCloneLinksDirectMapByValue(t *testing.T) {
	newFakePhysMem(t, 64)
	withNoopPDTHooks(t)
	withFakeFrameAllocator(t, 10)
	withFrameLifecycleRecorder(t)

	var parent AddressSpace
	directMapTables := []mm.Frame{30, 31}
	if err := parent.Init(mm.Frame(0), directMapTables); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	child, err := parent.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	for i, tableFrame := range directMapTables {
		pdeI := uintptr(config.DirectMapPDEStart + i)
		childPDE := entryPtr(child.frame.Address(), pdeI)
		if childPDE.Frame() != tableFrame {
			t.Fatalf("direct-map PDE %d not linked: expected frame %d, got %d", i, tableFrame, childPDE.Frame())
		}
	}
}

func TestAddressSpaceDestroyFreesOwnedFrames(t *testing.T) {
	newFakePhysMem(t, 64)
	withNoopPDTHooks(t)
	withFakeFrameAllocator(t, 2)
	_, freed := withFrameLifecycleRecorder(t)

	var as AddressSpace
	if err := as.Init(mm.Frame(0), nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	dataFrame := mm.Frame(40)
	if err := as.Map(config.UserTextStart, dataFrame, FlagRW|FlagUser); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	as.Destroy()

	found := false
	for _, f := range *freed {
		if f == dataFrame {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dataFrame %d to be freed, got %v", dataFrame, *freed)
	}
}

func TestAddressSpaceUnmapUserRegionClearsMappings(t *testing.T) {
	newFakePhysMem(t, 64)
	withNoopPDTHooks(t)
	withFakeFrameAllocator(t, 2)
	withFrameLifecycleRecorder(t)

	var as AddressSpace
	if err := as.Init(mm.Frame(0), nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	virt := uintptr(config.UserTextStart)
	if err := as.Map(virt, mm.Frame(40), FlagRW|FlagUser); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	as.UnmapUserRegion()

	pte, err := as.entryAt(virt)
	if err != nil {
		t.Fatalf("entryAt failed: %v", err)
	}
	if pte != nil && pte.HasFlags(FlagPresent) {
		t.Fatalf("expected mapping to be cleared after UnmapUserRegion")
	}
}
