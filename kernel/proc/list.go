package proc

// The process list is a doubly-linked ring rooted at the PID-0 idle
// thread, which never leaves it. current is a ring cursor pointing at the
// presently running PCB.
var (
	idle    *PCB
	current *PCB
	nextPID int
)

// Init installs PID 0 as the sole member of the process list and marks it
// Running. It must be called exactly once, before any other proc function.
func Init() {
	resetPool()
	idle = allocPCB()
	idle.ID = 0
	idle.ParentID = 0
	idle.State = Running
	idle.next, idle.prev = idle, idle
	current = idle
	nextPID = 1
}

// Current returns the PCB of the thread presently executing.
func Current() *PCB { return current }

func allocPID() int {
	id := nextPID
	nextPID++
	return id
}

// insertAfter links p into the ring immediately after anchor.
func insertAfter(anchor, p *PCB) {
	p.next = anchor.next
	p.prev = anchor
	anchor.next.prev = p
	anchor.next = p
}

// remove unlinks p from the ring. p must not be the idle thread and must
// not be current.
func remove(p *PCB) {
	p.prev.next = p.next
	p.next.prev = p.prev
	p.next, p.prev = nil, nil
}

// forEach visits every PCB in the ring, starting at and including idle,
// stopping early if visit returns false.
func forEach(visit func(*PCB) bool) {
	p := idle
	for {
		if !visit(p) {
			return
		}
		p = p.next
		if p == idle {
			return
		}
	}
}

// findByID returns the PCB with the given id, or nil.
func findByID(id int) *PCB {
	var found *PCB
	forEach(func(p *PCB) bool {
		if p.ID == id {
			found = p
			return false
		}
		return true
	})
	return found
}

// reparentChildren reassigns every PCB whose ParentID equals oldParent to
// newParent. Used by exit to hand a dying process's children to PID 0
// instead of leaving them permanent zombies (spec.md §9, decided in
// DESIGN.md). No slice is built: the reparenting is done in place during a
// single pass over the list, which this kernel's no-dynamic-heap
// discipline requires anyway.
func reparentChildren(oldParent, newParent int) {
	forEach(func(p *PCB) bool {
		if p.ParentID == oldParent && p.ID != oldParent {
			p.ParentID = newParent
		}
		return true
	})
}
