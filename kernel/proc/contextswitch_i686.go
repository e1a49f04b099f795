package proc

import (
	"novaos/kernel/cpu"
	"reflect"
	"unsafe"
)

// switchContextFn is mockable so scheduler tests can run without a real
// CPU; it defaults to the asm-backed trampoline entry point.
var switchContextFn = cpu.SwitchContext

// calleeSavedFrame mirrors the registers the assembly behind cpu.SwitchContext pushes
// before storing ESP and the registers it pops after loading the next
// thread's ESP (spec.md §4.4 step 1/4). A freshly created thread's kernel
// stack is forged to look exactly like this frame, with returnEIP pointing
// at kernelThreadEntryTrampoline so the trampoline's "pop registers, ret"
// epilogue lands there instead of back into some prior switch call.
type calleeSavedFrame struct {
	EDI, ESI, EBX, EBP uint32
	ReturnEIP          uintptr
}

// kernelThreadEntryTrampoline is implemented in assembly. It runs on a
// brand new thread's first switch-in: it enables interrupts (the thread
// was created with IF=1 in its forged flags, but the trampoline itself
// also needs to run with interrupts on before calling into Go) and calls
// kernelThreadEntry, which takes no arguments and reads the entry function
// and argument buildInitialKernelStack stashed in pendingEntry/pendingArg.
func kernelThreadEntryTrampoline()

// pendingEntry/pendingArg are read exactly once by kernelThreadEntry on a
// new kernel thread's first run, then cleared. Only one thread can be
// "about to start" at a time because thread creation runs with interrupts
// disabled and the forged stack is switched into synchronously.
var (
	pendingEntry func(arg interface{})
	pendingArg   interface{}
)

// kernelThreadEntry is called by kernelThreadEntryTrampoline the first time
// a newly created kernel thread is scheduled. It must never return: the
// thread's lifetime ends via exit, not via falling off this function.
func kernelThreadEntry() {
	entry, arg := pendingEntry, pendingArg
	pendingEntry, pendingArg = nil, nil
	entry(arg)
	Exit(0)
}

// buildInitialKernelStack forges p's kernel stack so that the first
// context switch into p resumes inside kernelThreadEntryTrampoline, which
// will call entry(arg).
func buildInitialKernelStack(p *PCB, entry func(arg interface{}), arg interface{}) {
	top := p.kernelStackTop()
	frameAddr := top - unsafe.Sizeof(calleeSavedFrame{})
	frame := (*calleeSavedFrame)(unsafe.Pointer(frameAddr))
	*frame = calleeSavedFrame{ReturnEIP: trampolineAddr()}

	p.SavedESP = frameAddr

	// Stashed for kernelThreadEntry's first (and only) read; safe because
	// the forged thread cannot run until it is explicitly made Ready and
	// scheduled, by which time any previously pending entry has already
	// been consumed.
	pendingEntry, pendingArg = entry, arg
}

// trampolineAddr returns kernelThreadEntryTrampoline's entry address.
var trampolineAddr = func() uintptr {
	return funcPC(kernelThreadEntryTrampoline)
}

// funcPC returns the entry address of a bodyless asm-backed function, the
// same way reflect's method-value machinery resolves a call target.
func funcPC(fn func()) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
