package proc

import (
	"novaos/kernel"
	"novaos/kernel/gate"
	"novaos/kernel/sync"
	"unsafe"
)

var errOutOfResources = &kernel.Error{Module: "proc", Message: "out of PCB slots or memory for fork/clone"}

// listLock protects the process list and PCB fields against concurrent
// access from syscall handlers and the timer ISR (spec.md §5: "process
// list ... protected by an interrupt-off critical section").
var listLock sync.IrqLock

// forkReturnTrampoline is implemented in assembly. It is the context
// switch's landing point for a freshly forked or cloned thread: it loads
// the TrapFrame the creator placed directly above this frame on the new
// kernel stack and performs exactly the trap epilogue (restore segments,
// pop registers, iret) -- the child's first instruction is therefore the
// one right after the parent's syscall trap, in user mode, with
// TrapFrame.EAX already forced to the child's return value.
func forkReturnTrampoline()

var forkReturnTrampolineAddr = func() uintptr {
	return funcPC(forkReturnTrampoline)
}

// buildForkStack copies *trap onto p's kernel stack and forges a
// calleeSavedFrame beneath it pointing at forkReturnTrampoline, so the
// next time p is switched into, control resumes via the trap epilogue
// instead of via kernelThreadEntryTrampoline.
func buildForkStack(p *PCB, trap *gate.TrapFrame) *gate.TrapFrame {
	top := p.kernelStackTop()
	trapAddr := top - unsafe.Sizeof(gate.TrapFrame{})
	childTrap := (*gate.TrapFrame)(unsafe.Pointer(trapAddr))
	*childTrap = *trap

	frameAddr := trapAddr - unsafe.Sizeof(calleeSavedFrame{})
	frame := (*calleeSavedFrame)(unsafe.Pointer(frameAddr))
	*frame = calleeSavedFrame{ReturnEIP: forkReturnTrampolineAddr()}

	p.SavedESP = frameAddr
	return childTrap
}

// Fork implements sys_fork: clone the address space per spec.md §4.3,
// copy the trap frame onto the child's kernel stack, and link the child in
// as Ready. The child's TrapFrame.EAX is forced to 0; the parent's normal
// trap epilogue return value (the child's PID) is left to the syscall
// dispatcher to write into the parent's own frame.
func Fork(trap *gate.TrapFrame) (childPID int, err *kernel.Error) {
	listLock.Acquire()
	defer listLock.Release()

	if current.AddressSpace == nil {
		return 0, errOutOfResources
	}

	childSpace, verr := current.AddressSpace.Clone()
	if verr != nil {
		return 0, errOutOfResources
	}

	// Clone demotes current's own PTEs to read-only+COW in place. current
	// is by definition the active address space here (fork is always
	// called by the running thread on itself), so its TLB entries for
	// those pages are now stale: a write that lands before the next trap
	// would hit the old writable mapping and corrupt the frame the child
	// now shares, without ever taking the COW fault (spec.md §4.3/§8).
	current.AddressSpace.Activate()

	child := allocPCB()
	if child == nil {
		childSpace.Destroy()
		return 0, errOutOfResources
	}
	child.ID = allocPID()
	child.ParentID = current.ID
	child.State = Ready
	child.AddressSpace = childSpace

	childTrap := buildForkStack(child, trap)
	childTrap.EAX = 0

	insertAfter(idle, child)
	return child.ID, nil
}

// Clone implements sys_clone: a new thread sharing the caller's address
// space (no cloning -- the same *vmm.AddressSpace pointer, incrementing
// its director's effective owner count by virtue of two PCBs pointing at
// it), entering at newEIP with stack newESP.
func Clone(trap *gate.TrapFrame, newESP, newEIP uint32) (tid int, err *kernel.Error) {
	listLock.Acquire()
	defer listLock.Release()

	if current.AddressSpace == nil {
		return 0, errOutOfResources
	}

	child := allocPCB()
	if child == nil {
		return 0, errOutOfResources
	}
	child.ID = allocPID()
	child.ParentID = current.ID
	child.State = Ready
	child.AddressSpace = current.AddressSpace

	childTrap := buildForkStack(child, trap)
	childTrap.EAX = 0
	childTrap.UserESP = newESP
	childTrap.EIP = newEIP
	childTrap.EBP = 0

	insertAfter(idle, child)
	return child.ID, nil
}
