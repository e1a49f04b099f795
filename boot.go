package main

import (
	"novaos/kernel/config"
	"novaos/kernel/kmain"
	"novaos/kernel/mm"
)

// kernelEndPhys, e820TableAddr and directMapTables are written by the
// assembly trampoline before it jumps here: kernelEndPhys is the linker's
// _kernel_end symbol, e820TableAddr is the direct-mapped address of the
// BIOS E820 table the second-stage loader copied to config.E820TableAddr,
// and directMapTables holds one frame per page table the trampoline built
// to back the direct map's PDEs (config.DirectMapPDEStart..PDEEnd).
var (
	kernelEndPhys   uintptr
	e820TableAddr   uintptr
	directMapTables [config.DirectMapPDEEnd - config.DirectMapPDEStart + 1]mm.Frame
)

// main is the only Go symbol the rt0 trampoline calls, once paging is live
// and it has jumped to the higher-half linked address (kernel/boot
// documents the contract). It exists only to hand off to kmain.Kmain; the
// compiler must not be allowed to inline or strip it, since nothing else
// in this package calls it.
//
// main is not expected to return. If it does, the trampoline halts the CPU.
func main() {
	kmain.Kmain(kernelEndPhys, e820TableAddr, directMapTables[:])
}
