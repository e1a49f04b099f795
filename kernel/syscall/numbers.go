// Package syscall implements the trap-frame-based system-call dispatch
// layer (spec.md §4.5): one handler per syscall number, invoked by the
// syscall trap gate with the frame the trap stub built.
package syscall

// Number identifies a system call, matching the ABI in spec.md §4.5's
// table exactly: the syscall number is passed in EAX, arguments in
// EBX/ECX/EDX, and the result is returned in EAX.
type Number uint32

const (
	Read      Number = 0
	Write     Number = 1
	Exit      Number = 2
	Execve    Number = 3
	Fork      Number = 4
	Wait      Number = 5
	Clone     Number = 10
	FutexWait Number = 11
	FutexWake Number = 12
	Ls        Number = 13
)
