package syscall

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/cpu"
	"novaos/kernel/elf"
	"novaos/kernel/fs"
	"novaos/kernel/gate"
	"novaos/kernel/mm"
	"novaos/kernel/mm/vmm"
	"novaos/kernel/proc"
	"reflect"
	"unsafe"
)

func init() {
	Register(Execve, sysExecve)
}

var errExecNoFrame = &kernel.Error{Module: "syscall", Message: "execve: out of physical frames"}

// execImageBuf holds the file being loaded during execve. It is a
// static array, not a kernel-stack local: config.MaxFileSize (24 KiB)
// would not fit in a thread's 16 KiB kernel stack, and this kernel has no
// heap to allocate it from dynamically either. Safe to share across
// threads because sysExecve's only use of it is entirely inside its own
// interrupts-off section, and this is a uniprocessor kernel.
var execImageBuf [config.MaxFileSize]byte

// execFrameAllocatorFn backs the user stack page execve maps; kernel
// init wires the real pmm.AllocFrame in.
var execFrameAllocatorFn = func() (mm.Frame, *kernel.Error) { return 0, errExecNoFrame }

// SetExecFrameAllocator installs the frame allocator sysExecve uses for
// the user stack page.
func SetExecFrameAllocator(fn func() (mm.Frame, *kernel.Error)) {
	execFrameAllocatorFn = fn
}

const maxFilenameLen = config.FilenameMaxLen

// readUserCString scans up to maxLen bytes starting at addr for a NUL
// terminator and returns the bytes up to (excluding) it, or nil if none
// is found within maxLen -- a malformed or unterminated filename.
// Trusted as-is like every other user pointer (spec.md §4.5).
func readUserCString(addr uint32, maxLen int) []byte {
	view := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  maxLen,
		Cap:  maxLen,
		Data: uintptr(addr),
	}))
	for i, b := range view {
		if b == 0 {
			return view[:i]
		}
	}
	return nil
}

// sysExecve implements sys_execve (spec.md §4.5): load the named file's
// ELF image into the caller's own address space, replacing it in place,
// and rewrite the trap frame so the epilogue returns directly into the
// freshly loaded program instead of back into the caller.
func sysExecve(trap *gate.TrapFrame) uint32 {
	if trap.EBX >= config.UserSpaceLimit {
		return uint32(int32(-1))
	}
	name := readUserCString(trap.EBX, maxFilenameLen)
	if name == nil {
		return uint32(int32(-1))
	}

	cpu.DisableInterrupts()
	defer cpu.EnableInterrupts()

	in, lookupErr := fs.Lookup(name)
	if lookupErr != nil {
		return uint32(int32(-1))
	}

	blocksRead, readErr := fs.ReadFile(&in, execImageBuf[:])
	if readErr != nil {
		return uint32(int32(-1))
	}
	image := execImageBuf[:blocksRead*config.SectorSize]

	as := proc.Current().AddressSpace
	if as == nil {
		return uint32(int32(-1))
	}

	// Tear down the previous image's mappings before loading the new
	// one: execve replaces the address space in place, and mapping over
	// a still-populated directory would leak every frame the old image
	// held (DESIGN.md open question 3).
	as.UnmapUserRegion()

	entry, loadErr := elf.Load(as, image)
	if loadErr != nil {
		return uint32(int32(-1))
	}

	if err := mapUserStack(as); err != nil {
		return uint32(int32(-1))
	}

	trap.EIP = uint32(entry)
	trap.UserESP = config.UserStackInitialESP
	trap.Registers = gate.Registers{}
	return 0
}

// mapUserStack allocates and zeroes the fixed one-page user stack if it
// is not already mapped (execve may run more than once in a thread's
// lifetime, e.g. after a prior execve in the same process).
func mapUserStack(as *vmm.AddressSpace) *kernel.Error {
	if _, err := as.Translate(config.UserStackPage); err == nil {
		return nil
	}

	frame, err := execFrameAllocatorFn()
	if err != nil {
		return err
	}
	if err := as.Map(config.UserStackPage, frame, vmm.FlagRW|vmm.FlagUser); err != nil {
		return err
	}
	kernel.Memset(vmm.P2V(frame.Address()), 0, config.PageSize)
	return nil
}
