package vmm

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/mm"
	"testing"
	"unsafe"
)

// newFakePhysMem stands in for physical RAM during tests: frame N is
// backed by buf[N*PageSize : (N+1)*PageSize]. tablePtrFn is overridden to
// resolve a "physical address" to a pointer into this slice instead of
// going through the direct map, which does not exist in a hosted test
// process.
func newFakePhysMem(t *testing.T, frames int) []byte {
	buf := make([]byte, frames*config.PageSize)
	orig := tablePtrFn
	t.Cleanup(func() { tablePtrFn = orig })
	tablePtrFn = func(physAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(&buf[physAddr])
	}
	return buf
}

func withFakeFrameAllocator(t *testing.T, startAt mm.Frame) {
	next := startAt
	orig := frameAllocator
	t.Cleanup(func() { frameAllocator = orig })
	frameAllocator = func() (mm.Frame, *kernel.Error) {
		f := next
		next++
		return f, nil
	}
}

func TestPageDirectoryMapUnmapTranslate(t *testing.T) {
	newFakePhysMem(t, 64)

	origSwitch, origFlush := switchPDTFn, flushTLBFn
	t.Cleanup(func() { switchPDTFn, flushTLBFn = origSwitch, origFlush })
	switchPDTFn = func(uintptr) {}
	flushTLBFn = func(uintptr) {}

	withFakeFrameAllocator(t, 1)

	var pd PageDirectory
	if err := pd.Init(mm.Frame(0), nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	dataFrame := mm.Frame(10)
	virt := uintptr(0x00400000)
	if err := pd.Map(virt, dataFrame, FlagRW|FlagUser); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	phys, err := pd.Translate(virt)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if phys != dataFrame.Address() {
		t.Fatalf("expected translated address %#x, got %#x", dataFrame.Address(), phys)
	}

	if err := pd.Unmap(virt); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if _, err := pd.Translate(virt); err != ErrInvalidMapping {
		t.Fatalf("expected ErrInvalidMapping after Unmap, got %v", err)
	}
}

func TestPageDirectoryTranslateUnmappedAddress(t *testing.T) {
	newFakePhysMem(t, 8)
	var pd PageDirectory
	if err := pd.Init(mm.Frame(0), nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := pd.Translate(0x00401000); err != ErrInvalidMapping {
		t.Fatalf("expected ErrInvalidMapping, got %v", err)
	}
}

func TestPageDirectoryDirectMapPDEsAreInstalled(t *testing.T) {
	newFakePhysMem(t, 64)

	var pd PageDirectory
	directMapTables := []mm.Frame{20, 21, 22}
	if err := pd.Init(mm.Frame(0), directMapTables); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for i, tableFrame := range directMapTables {
		pde := entryPtr(pd.frame.Address(), uintptr(config.DirectMapPDEStart+i))
		if !pde.HasFlags(FlagPresent | FlagRW | FlagGlobal) {
			t.Fatalf("direct-map PDE %d missing expected flags", i)
		}
		if pde.Frame() != tableFrame {
			t.Fatalf("direct-map PDE %d: expected frame %d, got %d", i, tableFrame, pde.Frame())
		}
	}
}
