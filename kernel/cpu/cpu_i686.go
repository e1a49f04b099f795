// Package cpu exposes i686 instructions that have no Go equivalent. Each
// function below is implemented in assembly; the declarations here only
// describe the contract so the rest of the kernel can be written and
// tested in plain Go.
package cpu

// EnableInterrupts enables interrupt handling (sti).
func EnableInterrupts()

// DisableInterrupts disables interrupt handling (cli).
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt (hlt).
func Halt()

// In8 reads a byte from the given I/O port.
func In8(port uint16) uint8

// Out8 writes a byte to the given I/O port.
func Out8(port uint16, value uint8)

// In16 reads a 16-bit word from the given I/O port.
func In16(port uint16) uint16

// Out16 writes a 16-bit word to the given I/O port.
func Out16(port uint16, value uint16)

// In32 reads a 32-bit word from the given I/O port.
func In32(port uint16) uint32

// Out32 writes a 32-bit word to the given I/O port.
func Out32(port uint16, value uint32)

// FlushTLBEntry invalidates the TLB entry for the given virtual address
// (invlpg).
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets CR3 to the physical address of a page directory and
// flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address currently loaded in CR3.
func ActivePDT() uintptr

// ReadCR2 returns the faulting address recorded by the last page fault.
func ReadCR2() uintptr

// SwitchContext saves the current kernel stack pointer into *savedESP and
// switches execution to the stack pointed to by newESP. It returns when
// some other thread switches back into the caller. This is the only
// caller-visible entry point into the context-switch trampoline; register
// save/restore detail lives entirely in assembly.
func SwitchContext(savedESP *uintptr, newESP uintptr)

// SetTSSESP0 updates the esp0 field of the single TSS this kernel loads at
// boot, so that the next ring 3 -> ring 0 transition lands on the
// incoming thread's kernel stack. Called by the scheduler on every
// context switch (proc.SetTSSHook).
func SetTSSESP0(esp0 uintptr)
