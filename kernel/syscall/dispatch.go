package syscall

import (
	"novaos/kernel/config"
	"novaos/kernel/gate"
	"novaos/kernel/kfmt"
)

// HandlerFunc implements one syscall. It receives the trap frame (args in
// EBX/ECX/EDX) and returns the value to place in EAX.
type HandlerFunc func(trap *gate.TrapFrame) uint32

var handlers [256]HandlerFunc

// Register installs fn as the handler for syscall number n, replacing any
// previous registration. Called once per syscall during kernel init.
func Register(n Number, fn HandlerFunc) {
	handlers[n] = fn
}

// Install wires Dispatch into the interrupt gate as the handler for the
// syscall vector.
func Install() {
	gate.HandleInterrupt(gate.InterruptNumber(config.SyscallVector), Dispatch)
}

// Dispatch looks up the handler for trap.EAX and invokes it, writing its
// result into trap.EAX. An unregistered syscall number prints a
// diagnostic and leaves trap.EAX untouched, per spec.md §4.5's failure
// semantics.
func Dispatch(trap *gate.TrapFrame) *gate.TrapFrame {
	n := Number(trap.EAX)
	var h HandlerFunc
	if n < Number(len(handlers)) {
		h = handlers[n]
	}
	if h == nil {
		kfmt.Printf("unknown syscall %d\n", n)
		return trap
	}

	trap.EAX = h(trap)
	return trap
}
