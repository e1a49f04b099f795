package syscall

import (
	"novaos/kernel/config"
	"novaos/kernel/gate"
	"reflect"
	"unsafe"
)

func init() {
	Register(Read, sysRead)
	Register(Write, sysWrite)
}

// consoleWriteFn and consoleReadFn are installed by kernel/driver/console
// and kernel/driver/keyboard during kernel init. Defaulting to no-ops lets
// this package be imported (and its dispatch logic tested) before a
// console exists.
var consoleWriteFn = func(buf []byte) int { return len(buf) }
var consoleReadFn = func(buf []byte) int { return 0 }

// SetConsoleHooks wires the byte-stream backends for sys_read/sys_write.
func SetConsoleHooks(read func(buf []byte) int, write func(buf []byte) int) {
	consoleReadFn = read
	consoleWriteFn = write
}

// scheduleFn yields the CPU to another Ready thread; kernel init wires in
// proc.Schedule (same mockable-hook indirection kernel/driver/timer uses to
// reach the scheduler without importing kernel/proc at the package level).
// Defaults to a no-op so sysRead's wait loop does not spin forever in a
// test process with nothing else to schedule.
var scheduleFn = func() {}

// SetScheduleFunc registers the callback sysRead uses to give up the CPU
// while stdin has nothing buffered.
func SetScheduleFunc(fn func()) { scheduleFn = fn }

// userPointer converts a user-supplied address into a Go pointer. Bad
// pointers to user memory are currently trusted as-is (spec.md §4.5):
// this kernel does not validate that addr is mapped in the caller's
// address space before dereferencing it.
func userPointer(addr uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

// userSlice builds a []byte view over n bytes starting at a user address,
// without validating that the range is mapped (see userPointer). Overlays
// a slice header directly on the target range rather than performing a Go
// struct assignment, matching kernel.Memcopy's approach on this
// freestanding build.
func userSlice(addr uint32, n uint32) []byte {
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(n),
		Cap:  int(n),
		Data: uintptr(addr),
	}))
}

// stdinFD and stdoutFD are the only file descriptors read/write
// recognize; there is no descriptor table (spec.md §4.5's table fixes
// fd=1 for write, and read always drains the keyboard ring).
const (
	stdinFD  = 0
	stdoutFD = 1
)

// sysRead implements sys_read: EBX is the fd, ECX a buffer pointer, EDX
// its length. Blocks on stdin until at least one byte is available (the
// syscall vector is a trap gate specifically so interrupts -- and with
// them the keyboard IRQ that fills the keyboard's ring buffer -- stay live
// across this wait), yielding the CPU between polls rather than spinning.
func sysRead(trap *gate.TrapFrame) uint32 {
	if trap.EBX != stdinFD || trap.EDX == 0 || trap.ECX >= config.UserSpaceLimit {
		return 0
	}
	buf := userSlice(trap.ECX, trap.EDX)
	for {
		if n := consoleReadFn(buf); n > 0 {
			return uint32(n)
		}
		scheduleFn()
	}
}

// sysWrite implements sys_write: EBX is the fd, ECX a buffer pointer, EDX
// its length. Returns the number of bytes written.
func sysWrite(trap *gate.TrapFrame) uint32 {
	if trap.EBX != stdoutFD || trap.EDX == 0 || trap.ECX >= config.UserSpaceLimit {
		return 0
	}
	buf := userSlice(trap.ECX, trap.EDX)
	return uint32(consoleWriteFn(buf))
}
