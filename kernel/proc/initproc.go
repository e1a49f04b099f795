package proc

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/gate"
	"novaos/kernel/mm/vmm"
)

// eflagsIF is the interrupt-enable bit of EFLAGS. Every forged trap frame
// carries it set, since the trap epilogue's iret loads EFLAGS directly
// from the frame and a thread that started with interrupts off could
// never be preempted.
const eflagsIF = 1 << 9

// SpawnUserProcess creates the first thread of a brand new process: no
// parent trap to copy, unlike Fork/Clone, so the ring 3 entry trap frame
// is forged from scratch with the given entry point and address space,
// then linked in exactly the way buildForkStack's forgery lands any other
// newly created thread. Used once, by kernel init, to start the first
// user program after mounting the filesystem.
func SpawnUserProcess(as *vmm.AddressSpace, entry uintptr) (*PCB, *kernel.Error) {
	listLock.Acquire()
	defer listLock.Release()

	if as == nil {
		return nil, errOutOfResources
	}

	p := allocPCB()
	if p == nil {
		return nil, errOutOfResources
	}
	p.ID = allocPID()
	p.ParentID = idle.ID
	p.State = Ready
	p.AddressSpace = as

	trap := gate.TrapFrame{
		GS: config.SelectorUserData,
		FS: config.SelectorUserData,
		ES: config.SelectorUserData,
		DS: config.SelectorUserData,

		EIP:     uint32(entry),
		CS:      config.SelectorUserCode,
		EFlags:  eflagsIF,
		UserESP: config.UserStackInitialESP,
		UserSS:  config.SelectorUserData,
	}
	buildForkStack(p, &trap)

	insertAfter(idle, p)
	return p, nil
}
