package vmm

import "novaos/kernel/config"

// addressSpacePool backs every AddressSpace this kernel ever creates, the
// same fixed-size-array discipline kernel/mm/pmm uses for physical frames
// and kernel/proc uses for PCBs: with no Go heap bootstrap to back
// `new(AddressSpace)`, one per process (bounded by config.MaxProcesses) is
// the most this kernel will ever need live at once.
var (
	addressSpacePool [config.MaxProcesses]AddressSpace
	addressSpaceUsed [config.MaxProcesses]bool
)

// allocAddressSpace reserves a zeroed AddressSpace slot, or nil if the pool
// is full.
func allocAddressSpace() *AddressSpace {
	for i := range addressSpaceUsed {
		if !addressSpaceUsed[i] {
			addressSpaceUsed[i] = true
			addressSpacePool[i] = AddressSpace{}
			return &addressSpacePool[i]
		}
	}
	return nil
}

// freeAddressSpace releases as's slot back to the pool. as must already
// have had Destroy called on it.
func freeAddressSpace(as *AddressSpace) {
	for i := range addressSpacePool {
		if &addressSpacePool[i] == as {
			addressSpaceUsed[i] = false
			return
		}
	}
}
