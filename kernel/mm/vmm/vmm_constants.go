package vmm

import "novaos/kernel/config"

// i686 uses a 2-level page table: 1024 page-directory entries indexed by
// bits 31..22 of a virtual address, each pointing at a page table of 1024
// entries indexed by bits 21..12.
const (
	pageDirectoryShift = 22
	pageTableShift     = 12
	indexMask          = config.PageTableEntries - 1
)

// PageTableEntryFlag describes a flag bit of a page-directory or
// page-table entry.
type PageTableEntryFlag uintptr

// Flag bit layout shared by PDEs and PTEs on i686.
const (
	FlagPresent      PageTableEntryFlag = 1 << 0
	FlagRW           PageTableEntryFlag = 1 << 1
	FlagUser         PageTableEntryFlag = 1 << 2
	FlagWriteThrough PageTableEntryFlag = 1 << 3
	FlagCacheDisable PageTableEntryFlag = 1 << 4
	FlagAccessed     PageTableEntryFlag = 1 << 5
	// FlagDirty is only meaningful on PTEs.
	FlagDirty PageTableEntryFlag = 1 << 6
	// FlagGlobal marks a PTE as present in every address space's TLB
	// entry (used for the direct map and kernel text/data).
	FlagGlobal PageTableEntryFlag = 1 << 8

	// FlagCopyOnWrite reuses bit 9, one of the three bits (9-11) the
	// architecture reserves for OS use in both PDEs and PTEs.
	FlagCopyOnWrite PageTableEntryFlag = 1 << 9

	ptePhysAddrMask uintptr = ^uintptr(config.PageSize - 1)
)
