// Package boot documents the two-stage boot contract this kernel relies
// on and parses the BIOS E820 memory map the loader deposits before
// handing control to the kernel's higher-half trampoline.
//
// The trampoline itself -- enabling paging, identity- and higher-half
// mapping the first 4 MiB, and jumping to the linked (0xC0100000) address
// -- is implemented in assembly and is out of scope for this package; its
// Go-visible layout constants (KernelLoadPhys, KernelLoadVirt,
// E820TableAddr) live in kernel/config.
package boot

import (
	"novaos/kernel/config"
	"unsafe"
)

// E820Type classifies a BIOS E820 memory region.
type E820Type uint32

const (
	E820TypeUsable E820Type = iota + 1
	E820TypeReserved
	E820TypeACPIReclaimable
	E820TypeACPINVS
	E820TypeBad
)

// E820Entry mirrors one 24-byte record of the BIOS E820 table: base (8),
// length (8), type (4) and ACPI extended attributes (4).
type E820Entry struct {
	Base      uint64
	Length    uint64
	Type      E820Type
	ACPIAttrs uint32
}

// maxE820Entries bounds how many entries VisitE820 will walk, guarding
// against a corrupt entry count wrapping into unrelated memory.
const maxE820Entries = 128

// VisitE820 walks the BIOS E820 table at directMappedTableAddr, the
// direct-mapped virtual address of the table the loader left at physical
// config.E820TableAddr, calling visit once per entry until visit returns
// false or the table is exhausted. The table layout is a 16-bit entry
// count at offset 0 followed by that many config.E820EntrySize-byte
// records starting at offset 4.
//
// This must be called only after the direct map is installed, since the
// table sits at a physical address below 1 MiB and is only reachable
// through the direct map's P2V translation once paging is enabled.
func VisitE820(directMappedTableAddr uintptr, visit func(*E820Entry) bool) {
	count := *(*uint16)(unsafe.Pointer(directMappedTableAddr))
	if int(count) > maxE820Entries {
		count = maxE820Entries
	}

	base := directMappedTableAddr + 4
	for i := uint16(0); i < count; i++ {
		recAddr := base + uintptr(i)*config.E820EntrySize
		entry := E820Entry{
			Base:      *(*uint64)(unsafe.Pointer(recAddr)),
			Length:    *(*uint64)(unsafe.Pointer(recAddr + 8)),
			Type:      E820Type(*(*uint32)(unsafe.Pointer(recAddr + 16))),
			ACPIAttrs: *(*uint32)(unsafe.Pointer(recAddr + 20)),
		}
		if !visit(&entry) {
			return
		}
	}
}
