package proc

import "novaos/kernel/config"

// pcbPool backs every PCB this kernel ever creates, the same fixed-size-
// array discipline kernel/mm/pmm uses for physical frames: a PCB is 16 KiB
// or more (KernelStack dominates), and with no Go heap bootstrap to back
// `new(PCB)`, allocating one from the Go runtime's allocator is not an
// option on bare metal.
var (
	pcbPool [config.MaxProcesses]PCB
	pcbUsed [config.MaxProcesses]bool
)

// resetPool clears every slot, used by Init to give each test (and the one
// real boot) a clean process table.
func resetPool() {
	for i := range pcbUsed {
		pcbUsed[i] = false
	}
}

// allocPCB reserves a zeroed PCB slot, or nil if the table is full.
func allocPCB() *PCB {
	for i := range pcbUsed {
		if !pcbUsed[i] {
			pcbUsed[i] = true
			pcbPool[i] = PCB{}
			return &pcbPool[i]
		}
	}
	return nil
}

// freePCB releases p's slot back to the pool. p must already be unlinked
// from the process list.
func freePCB(p *PCB) {
	for i := range pcbPool {
		if &pcbPool[i] == p {
			pcbUsed[i] = false
			return
		}
	}
}
