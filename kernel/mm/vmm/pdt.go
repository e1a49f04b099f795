package vmm

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/cpu"
	"novaos/kernel/mm"
	"unsafe"
)

// FrameAllocatorFn allocates a single physical frame.
type FrameAllocatorFn func() (mm.Frame, *kernel.Error)

// frameAllocator is installed by kernel init via SetFrameAllocator and is
// used whenever Map needs a fresh page table.
var frameAllocator FrameAllocatorFn

// The following indirections let tests substitute software fakes for the
// asm-backed cpu primitives and for direct-map address translation (which
// otherwise points at real physical memory that does not exist in a
// hosted test process); the compiler inlines them away in the real kernel
// build.
var (
	switchPDTFn = cpu.SwitchPDT
	flushTLBFn  = cpu.FlushTLBEntry

	// tablePtrFn resolves the physical address of a page table/directory
	// to a pointer its entries can be read/written through. In the real
	// kernel this is always P2V; tests override it to index into
	// ordinary Go-allocated buffers instead.
	tablePtrFn = func(tablePhysAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(P2V(tablePhysAddr))
	}
)

// SetFrameAllocator registers the allocator Map uses to obtain frames for
// new page tables.
func SetFrameAllocator(fn FrameAllocatorFn) {
	frameAllocator = fn
}

// PageDirectory is a handle to a page directory identified by the
// physical frame that backs it. Every read/write of directory or table
// contents goes through the direct map (P2V), never through recursive
// self-mapping.
type PageDirectory struct {
	frame mm.Frame
}

func entryPtr(tablePhysAddr uintptr, index uintptr) *pageTableEntry {
	base := uintptr(tablePtrFn(tablePhysAddr))
	return (*pageTableEntry)(unsafe.Pointer(base + index*unsafe.Sizeof(pageTableEntry(0))))
}

func pdeIndex(virtAddr uintptr) uintptr { return (virtAddr >> pageDirectoryShift) & indexMask }
func pteIndex(virtAddr uintptr) uintptr { return (virtAddr >> pageTableShift) & indexMask }

// Init zeroes the directory and installs the shared direct-map PDEs
// (indices config.DirectMapPDEStart..DirectMapPDEEnd), which every address
// space must carry identically and which Clone never copies by value --
// only links, exactly like the teacher's recursive PDT slot was shared
// across all address spaces.
func (pd *PageDirectory) Init(frame mm.Frame, directMapTables []mm.Frame) *kernel.Error {
	pd.frame = frame
	kernel.Memset(uintptr(tablePtrFn(frame.Address())), 0, config.PageSize)

	for i, tableFrame := range directMapTables {
		pdeI := uintptr(config.DirectMapPDEStart + i)
		if pdeI > config.DirectMapPDEEnd {
			break
		}
		pde := entryPtr(frame.Address(), pdeI)
		pde.SetFrame(tableFrame)
		pde.SetFlags(FlagPresent | FlagRW | FlagGlobal)
	}

	return nil
}

// Frame returns the physical frame backing this directory.
func (pd *PageDirectory) Frame() mm.Frame { return pd.frame }

// Activate loads this directory into CR3, making it the active address
// space.
func (pd *PageDirectory) Activate() {
	switchPDTFn(pd.frame.Address())
}

// walk locates the PTE for virtAddr, allocating an absent page table along
// the way when alloc is true. It returns nil if the table does not exist
// and alloc is false.
func (pd *PageDirectory) walk(virtAddr uintptr, alloc bool) (*pageTableEntry, *kernel.Error) {
	pde := entryPtr(pd.frame.Address(), pdeIndex(virtAddr))

	if !pde.HasFlags(FlagPresent) {
		if !alloc {
			return nil, nil
		}

		tableFrame, err := frameAllocator()
		if err != nil {
			return nil, err
		}
		kernel.Memset(uintptr(tablePtrFn(tableFrame.Address())), 0, config.PageSize)

		pde.SetFrame(tableFrame)
		pde.SetFlags(FlagPresent | FlagRW | FlagUser)
	}

	return entryPtr(pde.Frame().Address(), pteIndex(virtAddr)), nil
}

// Map installs a mapping from virtAddr to frame with the given flags,
// allocating a new page table if the covering PDE is absent.
func (pd *PageDirectory) Map(virtAddr uintptr, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	pte, err := pd.walk(virtAddr, true)
	if err != nil {
		return err
	}

	pte.SetFrame(frame)
	pte.SetFlags(flags | FlagPresent)
	flushTLBFn(virtAddr)
	return nil
}

// Unmap clears the mapping for virtAddr. Unmapping an address with no
// mapping is a no-op.
func (pd *PageDirectory) Unmap(virtAddr uintptr) *kernel.Error {
	pte, err := pd.walk(virtAddr, false)
	if err != nil {
		return err
	}
	if pte == nil || !pte.HasFlags(FlagPresent) {
		return nil
	}

	*pte = 0
	flushTLBFn(virtAddr)
	return nil
}

// Translate returns the physical address mapped to virtAddr, or
// ErrInvalidMapping if virtAddr is not mapped.
func (pd *PageDirectory) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	pte, err := pd.walk(virtAddr, false)
	if err != nil {
		return 0, err
	}
	if pte == nil || !pte.HasFlags(FlagPresent) {
		return 0, ErrInvalidMapping
	}

	return pte.Frame().Address() | (virtAddr & (config.PageSize - 1)), nil
}

// entryAt exposes the raw PTE/PDE for callers (the COW fault handler, and
// AddressSpace.Clone) that need to inspect or mutate flags directly.
func (pd *PageDirectory) entryAt(virtAddr uintptr) (*pageTableEntry, *kernel.Error) {
	return pd.walk(virtAddr, false)
}
