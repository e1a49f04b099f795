package proc

import (
	"novaos/kernel/cpu"
	"novaos/kernel/kfmt"
	"novaos/kernel/sync"
)

// setESP0Fn installs the incoming thread's kernel-stack top as the TSS's
// esp0, the address the CPU loads ESP from on the next ring-3-to-ring-0
// transition. Mockable; real wiring is installed by kernel init once the
// TSS exists.
var setESP0Fn = func(esp0 uintptr) {}

// SetTSSHook registers the callback Schedule uses to keep the TSS's esp0
// current.
func SetTSSHook(fn func(esp0 uintptr)) { setESP0Fn = fn }

func init() {
	sync.SetSchedulerHooks(blockCurrent, wakeOne)
}

// blockCurrent is installed as kernel/sync's blockCurrentFn: it marks the
// running thread Blocked (keyed by the wait channel, which for the
// semaphore/mutex primitives is not a futex address, so waitKey is left
// zero) and reschedules.
func blockCurrent(waitChannel interface{}) {
	current.State = Blocked
	Schedule()
}

// wakeOne marks Ready the first Blocked thread found that is not waiting
// on a futex key (waitKey == 0). kernel/sync's
// semaphore/mutex primitives call this without a specific target thread in
// mind (any waiter may proceed), matching a counting semaphore's
// semantics.
func wakeOne(waitChannel interface{}) {
	forEach(func(p *PCB) bool {
		if p.State == Blocked && p.waitKey == 0 {
			p.State = Ready
			return false
		}
		return true
	})
}

// BlockCurrentOnKey marks the current thread Blocked, tagged with the
// given futex wait key, and reschedules. Called by kernel/ipc's
// futex_wait once it has confirmed the futex word still equals the
// caller's expected value.
func BlockCurrentOnKey(key uintptr) {
	current.waitKey = key
	current.State = Blocked
	Schedule()
}

// WakeOneWithKey marks the first Blocked PCB waiting on key Ready and
// clears its key, returning true if a thread was found. Called by
// kernel/ipc's futex_wake.
func WakeOneWithKey(key uintptr) bool {
	woken := false
	forEach(func(p *PCB) bool {
		if p.State == Blocked && p.waitKey == key {
			p.waitKey = 0
			p.State = Ready
			woken = true
			return false
		}
		return true
	})
	return woken
}

// CreateTask creates a new kernel thread sharing the caller's address
// space, Ready to run entry(arg) the first time it is scheduled. It
// returns nil if the PCB pool is exhausted.
func CreateTask(entry func(arg interface{}), arg interface{}) *PCB {
	p := allocPCB()
	if p == nil {
		return nil
	}
	p.ID = allocPID()
	p.ParentID = current.ID
	p.State = Ready
	p.AddressSpace = current.AddressSpace
	buildInitialKernelStack(p, entry, arg)
	insertAfter(idle, p)
	return p
}

// next selects the next Ready PCB in round-robin order after from,
// skipping Blocked, Terminated, and idle (PID 0) PCBs. idle is only ever
// returned as the final fallback when no other thread is Ready, per
// spec.md §4.4: "If no READY thread other than the idler exists, PID 0
// runs hlt in a loop."
func next(from *PCB) *PCB {
	p := from.next
	for p != from {
		if p != idle && p.State == Ready {
			return p
		}
		p = p.next
	}
	if from != idle && from.State == Ready {
		return from
	}
	return idle
}

// Schedule picks the next Ready thread and switches to it. It must be
// called with interrupts disabled (the timer ISR calls it after EOI; the
// blocking primitives call it from inside an IRQ-locked critical section).
// Switching stacks atomically re-enables interrupts for the incoming
// thread because every forged or saved flags register has IF=1.
func Schedule() {
	prev := current
	if prev.State == Running {
		prev.State = Ready
	}

	incoming := next(prev)
	if incoming == prev {
		if prev.State == Ready {
			prev.State = Running
		}
		return
	}

	incoming.State = Running
	current = incoming

	setESP0Fn(incoming.kernelStackTop())
	if incoming.AddressSpace != nil && (prev.AddressSpace == nil || incoming.AddressSpace.Frame() != prev.AddressSpace.Frame()) {
		incoming.AddressSpace.Activate()
	}

	switchContextFn(&prev.SavedESP, incoming.SavedESP)
}

// RunIdleLoop is PID 0's body: hlt until there is something else to run,
// draining any reparented orphan that has since exited on every wake so
// they do not pile up as permanent zombies (spec.md §9, decided in
// DESIGN.md). It never returns.
func RunIdleLoop() {
	for {
		cpu.Halt()
		Schedule()
		ReapTerminatedChildren()
	}
}

// ReapTerminatedChildren removes every Terminated child of the caller from
// the process list, releasing each one's address space (unless still
// shared with a sibling thread) exactly as Wait does. Unlike Wait it never
// blocks when no child has exited yet, since PID 0 has no parent of its
// own to report an exit code to and must stay available to run whenever
// nothing else is Ready.
func ReapTerminatedChildren() {
	for {
		var zombie *PCB
		forEach(func(p *PCB) bool {
			if p.ParentID != current.ID || p.ID == current.ID {
				return true
			}
			if p.State == Terminated {
				zombie = p
				return false
			}
			return true
		})

		if zombie == nil {
			return
		}

		if zombie.AddressSpace != nil && !addressSpaceSharedByOther(zombie) {
			zombie.AddressSpace.Destroy()
		}
		remove(zombie)
		freePCB(zombie)
	}
}

// Exit terminates the calling thread, reparents its children to PID 0, and
// wakes its parent if the parent is Blocked in wait. The PCB itself stays
// in the list as Terminated until wait reaps it.
func Exit(code int) {
	p := current
	p.ExitCode = code
	p.State = Terminated
	reparentChildren(p.ID, 0)

	if parent := findByID(p.ParentID); parent != nil && parent.State == Blocked {
		parent.State = Ready
	}

	kfmt.Printf("process %d exited with code %d\n", p.ID, code)
	Schedule()
}

// addressSpaceSharedByOther reports whether any other PCB still in the
// list (a sibling in the same sys_clone thread group) points at the same
// AddressSpace as p, in which case reaping p must not tear it down.
func addressSpaceSharedByOther(p *PCB) bool {
	shared := false
	forEach(func(other *PCB) bool {
		if other != p && other.AddressSpace == p.AddressSpace {
			shared = true
			return false
		}
		return true
	})
	return shared
}

// Wait reaps the first Terminated child of the caller, freeing its
// address space and kernel stack and removing it from the process list.
// If no child has terminated but at least one is still running, the
// caller blocks until one does. It returns the reaped child's PID and exit
// code, or (-1, 0) if the caller has no children at all. This is a single
// O(n) scan over the whole process list, accepted in DESIGN.md for this
// kernel's small process tables.
func Wait() (pid int, exitCode int) {
	for {
		var zombie *PCB
		haveChild := false
		forEach(func(p *PCB) bool {
			if p.ParentID != current.ID || p.ID == current.ID {
				return true
			}
			haveChild = true
			if p.State == Terminated {
				zombie = p
				return false
			}
			return true
		})

		if zombie != nil {
			pid, exitCode = zombie.ID, zombie.ExitCode
			if zombie.AddressSpace != nil && !addressSpaceSharedByOther(zombie) {
				zombie.AddressSpace.Destroy()
			}
			remove(zombie)
			freePCB(zombie)
			return pid, exitCode
		}

		if !haveChild {
			return -1, 0
		}

		current.State = Blocked
		Schedule()
	}
}
