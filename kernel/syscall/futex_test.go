package syscall

import (
	"novaos/kernel/gate"
	"novaos/kernel/proc"
	"testing"
	"unsafe"
)

func TestSysFutexWakeWithNoWaiterReturnsZero(t *testing.T) {
	proc.Init()

	var word uint32
	trap := &gate.TrapFrame{}
	trap.EBX = uint32(uintptr(unsafe.Pointer(&word)))

	if got := sysFutexWake(trap); got != 0 {
		t.Fatalf("expected 0 with no waiter, got %d", got)
	}
}

func TestSysFutexWaitReturnsImmediatelyOnMismatch(t *testing.T) {
	proc.Init()

	var word uint32 = 5
	trap := &gate.TrapFrame{}
	trap.EBX = uint32(uintptr(unsafe.Pointer(&word)))
	trap.ECX = 0 // expected value does not match word

	before := proc.Current()
	sysFutexWait(trap)
	if proc.Current() != before {
		t.Fatalf("expected sysFutexWait not to block on mismatch")
	}
}
