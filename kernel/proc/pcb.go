// Package proc implements the process/thread model: the PCB, the process
// list, and a preemptive round-robin scheduler (spec.md §4.4).
package proc

import (
	"novaos/kernel/config"
	"novaos/kernel/mm/vmm"
	"unsafe"
)

// State is a PCB's position in the state machine of spec.md §4.4.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// PCB is a process or kernel-thread control block. A PCB in Running state
// is the unique PCB whose SavedESP is stale -- the live stack pointer is in
// the CPU, not here. A Terminated PCB retains its AddressSpace and
// KernelStack until wait reaps it.
type PCB struct {
	ID       int
	ParentID int
	State    State

	// SavedESP is the kernel stack pointer saved by the last context
	// switch away from this thread. Meaningless while State == Running.
	SavedESP uintptr

	// KernelStack is this thread's exclusively-owned kernel stack. It is
	// a fixed-size array, not a heap allocation, matching the no-dynamic-
	// heap discipline carried throughout this kernel.
	KernelStack [config.KernelStackSize]byte

	// AddressSpace is shared by pointer across a thread group created by
	// Clone, or owned outright by a single-threaded process. Sharing does
	// not raise the directory frame's refcount; reaping instead checks
	// whether another PCB still holds the same pointer
	// (addressSpaceSharedByOther).
	AddressSpace *vmm.AddressSpace

	ExitCode int

	// waitKey is the futex-style wait address this PCB is blocked on, or
	// 0 if it is not blocked in futex_wait. wait (the syscall) blocks a
	// different way: by leaving the child Running/Ready and the parent
	// Blocked with no key, polled by exit's wake.
	waitKey uintptr

	next, prev *PCB
	waitNext   *PCB
}

// kernelStackTop returns the address one past the end of this PCB's kernel
// stack -- the initial ESP a freshly created thread's stack is built down
// from.
func (p *PCB) kernelStackTop() uintptr {
	return uintptr(unsafe.Pointer(&p.KernelStack[0])) + uintptr(len(p.KernelStack))
}
