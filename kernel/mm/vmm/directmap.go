package vmm

import "novaos/kernel/config"

// P2V translates a physical address within the directly-mapped low 128 MiB
// of RAM to its kernel virtual address. It must never be applied to a user
// virtual address or to physical memory outside the direct map.
func P2V(physAddr uintptr) uintptr {
	return physAddr + config.DirectMapBase
}

// V2P is the inverse of P2V.
func V2P(virtAddr uintptr) uintptr {
	return virtAddr - config.DirectMapBase
}
