package syscall

import (
	"novaos/kernel/gate"
	"novaos/kernel/ipc"
)

func init() {
	Register(FutexWait, sysFutexWait)
	Register(FutexWake, sysFutexWake)
}

// sysFutexWait implements sys_futex_wait: EBX is the address of the futex
// word, ECX the value the caller last observed there.
func sysFutexWait(trap *gate.TrapFrame) uint32 {
	ipc.FutexWait(uintptr(trap.EBX), trap.ECX)
	return 0
}

// sysFutexWake implements sys_futex_wake: EBX is the address of the futex
// word. Returns 1 if a waiter was woken, 0 otherwise.
func sysFutexWake(trap *gate.TrapFrame) uint32 {
	if ipc.FutexWake(uintptr(trap.EBX)) {
		return 1
	}
	return 0
}
