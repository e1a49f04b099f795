// Package kmain wires together every subsystem's mockable hooks and
// brings the kernel up to its steady state: interrupts and scheduling
// live, the flat filesystem mounted, and the "init" program from it loaded
// and Ready to run as PID 1.
//
// Kmain is entered from the root package's main, which the rt0 assembly
// trampoline calls once paging is enabled and it has jumped to the
// higher-half linked address (kernel/boot documents that contract). Kmain
// is not expected to return.
package kmain

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/cpu"
	"novaos/kernel/driver/console"
	"novaos/kernel/driver/keyboard"
	"novaos/kernel/driver/timer"
	"novaos/kernel/elf"
	"novaos/kernel/fs"
	"novaos/kernel/fs/ata"
	"novaos/kernel/irq"
	"novaos/kernel/kfmt"
	"novaos/kernel/mm"
	"novaos/kernel/mm/pmm"
	"novaos/kernel/mm/vmm"
	"novaos/kernel/proc"
	"novaos/kernel/syscall"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// timerFrequencyHz is the preemption tick rate (spec.md §5).
const timerFrequencyHz = 100

// Kmain brings up every subsystem in dependency order: physical memory,
// then virtual memory (which the rest of boot needs to reach anything
// above 1 MiB through the direct map), then interrupts, drivers, the
// scheduler, and finally the filesystem and first user thread.
//
//go:noinline
func Kmain(kernelEndPhys, directMappedE820Addr uintptr, directMapTables []mm.Frame) {
	console.Init()
	kfmt.SetOutputSink(console.Out)
	kfmt.Printf("novaos starting\n")

	if err := pmm.Init(kernelEndPhys, directMappedE820Addr); err != nil {
		kernel.Panic(err)
	}
	wireFrameHooks()

	vmm.SetCurrentAddressSpaceFn(func() *vmm.AddressSpace { return proc.Current().AddressSpace })

	irq.Init()
	proc.SetTSSHook(cpu.SetTSSESP0)
	syscall.Install()
	syscall.SetScheduleFunc(proc.Schedule)

	keyboard.Init()
	syscall.SetConsoleHooks(keyboard.Read, console.WriteHook)

	ata.SetPortHooks(cpu.In8, cpu.Out8, cpu.In16)

	proc.Init()

	if fs.Mount() {
		spawnInitProcess(directMapTables)
	} else {
		kfmt.Printf("novaos: no filesystem found, staying in the idle loop\n")
	}

	timer.SetScheduleFunc(proc.Schedule)
	timer.Init(timerFrequencyHz)

	cpu.EnableInterrupts()
	proc.RunIdleLoop()

	kernel.Panic(errKmainReturned)
}

// initProgramName is the flat filesystem entry loaded as PID 1, the first
// program any novaos image runs.
var initProgramName = []byte("init")

// spawnInitProcess loads initProgramName's ELF image into a fresh address
// space and schedules it as the first user thread. Failure just leaves
// the idle loop as the only runnable thread instead of halting outright:
// a missing or corrupt init binary is recoverable by reflashing the disk
// image, not a reason to stop booting.
func spawnInitProcess(directMapTables []mm.Frame) {
	in, lookupErr := fs.Lookup(initProgramName)
	if lookupErr != nil {
		kfmt.Printf("novaos: no init program on disk, staying in the idle loop\n")
		return
	}

	blocksRead, readErr := fs.ReadFile(&in, initImageBuf[:])
	if readErr != nil {
		kfmt.Printf("novaos: failed to read init program: %s\n", readErr.Message)
		return
	}

	as, spaceErr := vmm.New(directMapTables)
	if spaceErr != nil {
		kfmt.Printf("novaos: failed to create init's address space: %s\n", spaceErr.Message)
		return
	}

	entry, loadErr := elf.Load(as, initImageBuf[:blocksRead*config.SectorSize])
	if loadErr != nil {
		kfmt.Printf("novaos: failed to load init program: %s\n", loadErr.Message)
		return
	}

	stackFrame, frameErr := pmm.AllocFrame()
	if frameErr != nil {
		kfmt.Printf("novaos: out of memory mapping init's stack\n")
		return
	}
	if err := as.Map(config.UserStackPage, stackFrame, vmm.FlagRW|vmm.FlagUser); err != nil {
		kfmt.Printf("novaos: failed to map init's stack: %s\n", err.Message)
		return
	}
	kernel.Memset(vmm.P2V(stackFrame.Address()), 0, config.PageSize)

	if _, err := proc.SpawnUserProcess(as, entry); err != nil {
		kfmt.Printf("novaos: failed to spawn init: %s\n", err.Message)
	}
}

// initImageBuf mirrors syscall.execImageBuf's reasoning: a 24 KiB read
// buffer does not fit on any kernel stack, and this kernel has no heap to
// allocate it from, so it lives as a static array instead. Kmain only
// touches it once, before interrupts are enabled, so there is no
// concurrent access to guard against.
var initImageBuf [config.MaxFileSize]byte

// wireFrameHooks connects the VMM's and ELF loader's frame-acquisition and
// refcount callbacks to the real physical frame allocator. Kept separate
// from Kmain's main body since every one of these ties two otherwise
// independent packages together and is easy to forget when adding a new
// subsystem.
func wireFrameHooks() {
	vmm.SetFrameAllocator(pmm.AllocFrame)
	vmm.SetFrameLifecycleHooks(pmm.Retain, pmm.FreeFrame, pmm.Refcount)
	elf.SetHooks(pmm.AllocFrame)
	syscall.SetExecFrameAllocator(pmm.AllocFrame)
}

