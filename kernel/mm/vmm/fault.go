package vmm

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/cpu"
	"novaos/kernel/gate"
	"novaos/kernel/kfmt"
)

var errUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "unrecoverable page fault"}

// readCR2Fn/panicFn are mockable so the fault handlers can be exercised
// without a real CPU or a halt that would kill the test process.
var (
	readCR2Fn = cpu.ReadCR2
	panicFn   = kernel.Panic
)

// currentAddressSpaceFn returns the address space active at the time of a
// fault. kernel/proc installs the real implementation once the scheduler
// knows which process is running; it is nil until then.
var currentAddressSpaceFn func() *AddressSpace

// SetCurrentAddressSpaceFn registers the callback the fault handlers use to
// find the faulting thread's address space.
func SetCurrentAddressSpaceFn(fn func() *AddressSpace) {
	currentAddressSpaceFn = fn
}

// InstallFaultHandlers registers this package's page-fault and
// general-protection-fault handlers with the interrupt dispatcher.
func InstallFaultHandlers() {
	gate.HandleInterrupt(gate.ExceptionPageFault, handlePageFault)
	gate.HandleInterrupt(gate.ExceptionGeneralProtectionFault, handleGeneralProtectionFault)
}

// handlePageFault resolves copy-on-write faults by duplicating the shared
// page and handing the faulting address space its own private copy; every
// other fault is unrecoverable.
func handlePageFault(frame *gate.TrapFrame) *gate.TrapFrame {
	faultAddr := readCR2Fn()

	as := currentAddressSpaceFn
	if as == nil {
		nonRecoverablePageFault(faultAddr, frame, errUnrecoverableFault)
		return frame
	}

	space := as()
	if space == nil {
		nonRecoverablePageFault(faultAddr, frame, errUnrecoverableFault)
		return frame
	}

	pageBase := faultAddr &^ uintptr(config.PageSize-1)
	pte, err := space.entryAt(pageBase)
	if err != nil {
		nonRecoverablePageFault(faultAddr, frame, err)
		return frame
	}
	if pte == nil || !pte.HasFlags(FlagPresent) || !pte.HasFlags(FlagCopyOnWrite) {
		nonRecoverablePageFault(faultAddr, frame, errUnrecoverableFault)
		return frame
	}

	if err := resolveCopyOnWriteFault(pageBase, pte); err != nil {
		nonRecoverablePageFault(faultAddr, frame, err)
		return frame
	}

	return frame
}

// resolveCopyOnWriteFault resolves a copy-on-write fault on the page
// covered by pte. If the underlying frame is no longer actually shared
// (refcount == 1, e.g. the other address space that once held it has
// already exited or dropped the mapping), the fault is resolved in place:
// the CoW bit is cleared and the page marked writable again, with no new
// frame allocated. Otherwise a private copy is made, installed in place of
// the shared frame, and the address space's reference to the original is
// dropped. The instruction that faulted is retried by the trap stub once
// this returns.
func resolveCopyOnWriteFault(pageBase uintptr, pte *pageTableEntry) *kernel.Error {
	oldFrame := pte.Frame()

	if refcountFrameFn(oldFrame) <= 1 {
		pte.ClearFlags(FlagCopyOnWrite)
		pte.SetFlags(FlagPresent | FlagRW)
		flushTLBFn(pageBase)
		return nil
	}

	newFrame, err := frameAllocator()
	if err != nil {
		return err
	}

	kernel.Memcopy(uintptr(tablePtrFn(oldFrame.Address())), uintptr(tablePtrFn(newFrame.Address())), config.PageSize)

	pte.SetFrame(newFrame)
	pte.ClearFlags(FlagCopyOnWrite)
	pte.SetFlags(FlagPresent | FlagRW)
	flushTLBFn(pageBase)

	freeFrameFn(oldFrame)
	return nil
}

// handleGeneralProtectionFault reports the faulting context and halts; this
// kernel has no recovery path for a GPF.
func handleGeneralProtectionFault(frame *gate.TrapFrame) *gate.TrapFrame {
	kfmt.Printf("\ngeneral protection fault, error code %#x, EIP %#x\n", frame.ErrorCode, frame.EIP)
	panicFn(errUnrecoverableFault)
	return frame
}

func nonRecoverablePageFault(faultAddr uintptr, frame *gate.TrapFrame, err *kernel.Error) {
	kfmt.Printf("\npage fault at %#x, error code %#x, EIP %#x\n", faultAddr, frame.ErrorCode, frame.EIP)
	panicFn(err)
}
