package vmm

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/mm"
)

// retainFn/freeFrameFn let the pmm-level refcount operations be invoked
// without vmm importing pmm directly at the package level in a way that
// would complicate testing; kernel init wires the real pmm functions in.
var (
	retainFrameFn   = func(mm.Frame) {}
	freeFrameFn     = func(mm.Frame) {}
	refcountFrameFn = func(mm.Frame) uint8 { return 1 }
)

// SetFrameLifecycleHooks installs the refcount callbacks Clone/Destroy/the
// copy-on-write fault handler use when sharing, releasing or inspecting the
// reference count of physical frames.
func SetFrameLifecycleHooks(retain, free func(mm.Frame), refcount func(mm.Frame) uint8) {
	retainFrameFn = retain
	freeFrameFn = free
	refcountFrameFn = refcount
}

var errNoAddressSpaceSlots = &kernel.Error{Module: "vmm", Message: "out of address space slots"}

// AddressSpace owns a page directory together with the lifecycle
// operations -- fork-time copy-on-write cloning and full teardown -- that
// spec.md requires of a process's virtual memory.
type AddressSpace struct {
	PageDirectory
}

// New allocates a fresh page directory sharing the kernel's direct-map
// PDEs (so every address space can access the direct map identically) but
// with no user mappings.
func New(directMapTables []mm.Frame) (*AddressSpace, *kernel.Error) {
	frame, err := frameAllocator()
	if err != nil {
		return nil, err
	}

	as := allocAddressSpace()
	if as == nil {
		freeFrameFn(frame)
		return nil, errNoAddressSpaceSlots
	}
	if err := as.Init(frame, directMapTables); err != nil {
		freeAddressSpace(as)
		return nil, err
	}
	return as, nil
}

// Clone implements fork's address-space duplication: every present user
// page (PDE indices below config.DirectMapPDEStart) is shared between
// parent and child, marked read-only and copy-on-write in both, with the
// underlying frame's reference count bumped once per extra owner. The
// shared direct-map PDEs (768..1023) are linked by value, never copied,
// per the higher-half invariant.
func (as *AddressSpace) Clone() (*AddressSpace, *kernel.Error) {
	childFrame, err := frameAllocator()
	if err != nil {
		return nil, err
	}

	child := allocAddressSpace()
	if child == nil {
		freeFrameFn(childFrame)
		return nil, errNoAddressSpaceSlots
	}
	if err := child.Init(childFrame, nil); err != nil {
		freeAddressSpace(child)
		return nil, err
	}

	for pdeI := uintptr(0); pdeI < config.DirectMapPDEStart; pdeI++ {
		parentPDE := entryPtr(as.frame.Address(), pdeI)
		if !parentPDE.HasFlags(FlagPresent) {
			continue
		}

		childPDE := entryPtr(child.frame.Address(), pdeI)
		if err := cloneUserPageTable(*parentPDE, childPDE); err != nil {
			child.Destroy()
			return nil, err
		}
	}

	// Link the shared direct-map region by value.
	for pdeI := uintptr(config.DirectMapPDEStart); pdeI <= config.DirectMapPDEEnd; pdeI++ {
		*entryPtr(child.frame.Address(), pdeI) = *entryPtr(as.frame.Address(), pdeI)
	}

	return child, nil
}

func cloneUserPageTable(parentPDE pageTableEntry, childPDE *pageTableEntry) *kernel.Error {
	childTableFrame, err := frameAllocator()
	if err != nil {
		return err
	}
	kernel.Memset(uintptr(tablePtrFn(childTableFrame.Address())), 0, config.PageSize)

	childPDE.SetFrame(childTableFrame)
	childPDE.SetFlags(parentPDE.flagBits() | FlagPresent | FlagRW | FlagUser)

	parentTableFrame := parentPDE.Frame()
	for i := uintptr(0); i < config.PageTableEntries; i++ {
		parentPTE := entryPtr(parentTableFrame.Address(), i)
		if !parentPTE.HasFlags(FlagPresent) {
			continue
		}

		childPTE := entryPtr(childTableFrame.Address(), i)
		*childPTE = *parentPTE

		// Demote both copies to read-only + copy-on-write so the next
		// write by either parent or child triggers the fault handler's
		// copy-and-detach logic instead of silently corrupting the
		// other's view of the page.
		childPTE.ClearFlags(FlagRW)
		childPTE.SetFlags(FlagCopyOnWrite)
		parentPTE.ClearFlags(FlagRW)
		parentPTE.SetFlags(FlagCopyOnWrite)

		retainFrameFn(parentPTE.Frame())
	}

	return nil
}

// flagBits returns the raw flag bits of a PDE, ignoring its frame field.
func (pte pageTableEntry) flagBits() PageTableEntryFlag {
	return PageTableEntryFlag(uintptr(pte) &^ ptePhysAddrMask)
}

// Destroy releases every frame owned exclusively by this address space:
// each present user page table's frames plus the tables themselves, and
// finally the directory. Frames still shared with another address space
// (refcount > 1) are only decremented, never double-freed, since
// freeFrameFn is the same refcounted release pmm.FreeFrame performs. The
// AddressSpace's own pool slot is released last, so as must not be used
// again after this call.
func (as *AddressSpace) Destroy() {
	for pdeI := uintptr(0); pdeI < config.DirectMapPDEStart; pdeI++ {
		pde := entryPtr(as.frame.Address(), pdeI)
		if !pde.HasFlags(FlagPresent) {
			continue
		}

		tableFrame := pde.Frame()
		for i := uintptr(0); i < config.PageTableEntries; i++ {
			pte := entryPtr(tableFrame.Address(), i)
			if pte.HasFlags(FlagPresent) {
				freeFrameFn(pte.Frame())
			}
		}
		freeFrameFn(tableFrame)
	}

	freeFrameFn(as.frame)
	freeAddressSpace(as)
}

// UnmapUserRegion tears down every present user mapping without freeing
// the page tables themselves, so the directory can immediately be reused
// to map a freshly loaded ELF image. execve calls this before mapping the
// new program's segments, closing the frame leak a naive in-place exec
// would otherwise have.
func (as *AddressSpace) UnmapUserRegion() {
	for pdeI := uintptr(0); pdeI < config.DirectMapPDEStart; pdeI++ {
		pde := entryPtr(as.frame.Address(), pdeI)
		if !pde.HasFlags(FlagPresent) {
			continue
		}

		tableFrame := pde.Frame()
		for i := uintptr(0); i < config.PageTableEntries; i++ {
			pte := entryPtr(tableFrame.Address(), i)
			if pte.HasFlags(FlagPresent) {
				freeFrameFn(pte.Frame())
				*pte = 0
			}
		}
	}
}
