package syscall

import (
	"novaos/kernel/gate"
	"novaos/kernel/proc"
)

func init() {
	Register(Fork, sysFork)
	Register(Wait, sysWait)
	Register(Exit, sysExit)
	Register(Clone, sysClone)
}

// sysFork implements sys_fork: EAX on return is the child's PID in the
// parent, 0 in the child (forced by proc.Fork onto the child's own trap
// frame, never visible here).
func sysFork(trap *gate.TrapFrame) uint32 {
	pid, err := proc.Fork(trap)
	if err != nil {
		return uint32(int32(-1))
	}
	return uint32(pid)
}

// sysWait implements sys_wait: EBX is a pointer to a user int that
// receives the exit code, trusted as-is per spec.md §4.5's failure
// semantics. Returns the reaped child's PID, or -1 if the caller has no
// children.
func sysWait(trap *gate.TrapFrame) uint32 {
	pid, exitCode := proc.Wait()
	if pid < 0 {
		return uint32(int32(-1))
	}
	if trap.EBX != 0 {
		out := (*int32)(userPointer(trap.EBX))
		*out = int32(exitCode)
	}
	return uint32(pid)
}

// sysExit implements sys_exit: EBX holds the exit code. Never returns to
// the caller -- Schedule switches away before the dispatcher's own
// epilogue would restore this thread's frame.
func sysExit(trap *gate.TrapFrame) uint32 {
	proc.Exit(int(int32(trap.EBX)))
	return 0
}

// sysClone implements sys_clone: EBX is the new thread's stack pointer,
// ECX its entry point. Returns the new thread's tid, or -1 on resource
// exhaustion.
func sysClone(trap *gate.TrapFrame) uint32 {
	tid, err := proc.Clone(trap, trap.EBX, trap.ECX)
	if err != nil {
		return uint32(int32(-1))
	}
	return uint32(tid)
}
