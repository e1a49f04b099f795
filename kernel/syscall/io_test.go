package syscall

import (
	"novaos/kernel/gate"
	"testing"
	"unsafe"
)

func withRecordingConsole(t *testing.T) (reads, writes *[][]byte) {
	origRead, origWrite := consoleReadFn, consoleWriteFn
	reads, writes = &[][]byte{}, &[][]byte{}
	t.Cleanup(func() { consoleReadFn, consoleWriteFn = origRead, origWrite })

	consoleReadFn = func(buf []byte) int {
		*reads = append(*reads, buf)
		return len(buf)
	}
	consoleWriteFn = func(buf []byte) int {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		*writes = append(*writes, cp)
		return len(buf)
	}
	return
}

func TestSysWriteForwardsBufferToConsole(t *testing.T) {
	_, writes := withRecordingConsole(t)

	msg := []byte("hi")
	trap := &gate.TrapFrame{}
	trap.EBX = stdoutFD
	trap.ECX = uint32(uintptr(unsafe.Pointer(&msg[0])))
	trap.EDX = uint32(len(msg))

	got := sysWrite(trap)
	if got != uint32(len(msg)) {
		t.Fatalf("expected return value %d, got %d", len(msg), got)
	}
	if len(*writes) != 1 || string((*writes)[0]) != "hi" {
		t.Fatalf("expected console to receive %q, got %v", "hi", *writes)
	}
}

func TestSysWriteRejectsWrongFD(t *testing.T) {
	_, writes := withRecordingConsole(t)

	msg := []byte("hi")
	trap := &gate.TrapFrame{}
	trap.EBX = stdinFD // write only recognizes fd=1
	trap.ECX = uint32(uintptr(unsafe.Pointer(&msg[0])))
	trap.EDX = uint32(len(msg))

	if got := sysWrite(trap); got != 0 {
		t.Fatalf("expected 0 for the wrong fd, got %d", got)
	}
	if len(*writes) != 0 {
		t.Fatalf("expected console write not to be invoked")
	}
}

func TestSysWriteRejectsKernelSpacePointer(t *testing.T) {
	_, writes := withRecordingConsole(t)

	trap := &gate.TrapFrame{}
	trap.EBX = stdoutFD
	trap.ECX = 0xC0001000 // above config.UserSpaceLimit
	trap.EDX = 4

	if got := sysWrite(trap); got != 0 {
		t.Fatalf("expected 0 for a kernel-space pointer, got %d", got)
	}
	if len(*writes) != 0 {
		t.Fatalf("expected console write not to be invoked")
	}
}

func TestSysReadForwardsToConsole(t *testing.T) {
	reads, _ := withRecordingConsole(t)

	buf := make([]byte, 4)
	trap := &gate.TrapFrame{}
	trap.EBX = stdinFD
	trap.ECX = uint32(uintptr(unsafe.Pointer(&buf[0])))
	trap.EDX = uint32(len(buf))

	got := sysRead(trap)
	if got != uint32(len(buf)) {
		t.Fatalf("expected return value %d, got %d", len(buf), got)
	}
	if len(*reads) != 1 {
		t.Fatalf("expected console read to be invoked once")
	}
}

func TestSysReadBlocksUntilDataAvailable(t *testing.T) {
	origRead, origSchedule := consoleReadFn, scheduleFn
	t.Cleanup(func() { consoleReadFn, scheduleFn = origRead, origSchedule })

	attempts := 0
	buf := make([]byte, 4)
	consoleReadFn = func(b []byte) int {
		attempts++
		if attempts < 3 {
			return 0
		}
		return len(b)
	}
	scheduled := 0
	scheduleFn = func() { scheduled++ }

	trap := &gate.TrapFrame{}
	trap.EBX = stdinFD
	trap.ECX = uint32(uintptr(unsafe.Pointer(&buf[0])))
	trap.EDX = uint32(len(buf))

	got := sysRead(trap)
	if got != uint32(len(buf)) {
		t.Fatalf("expected return value %d, got %d", len(buf), got)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 console read attempts, got %d", attempts)
	}
	if scheduled != 2 {
		t.Fatalf("expected scheduleFn invoked twice while waiting, got %d", scheduled)
	}
}
