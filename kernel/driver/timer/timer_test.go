package timer

import (
	"novaos/kernel/gate"
	"testing"
)

func TestHandleIRQIncrementsTicksAndInvokesScheduleFn(t *testing.T) {
	saved := scheduleFn
	savedTicks := ticks
	called := 0
	scheduleFn = func() { called++ }
	t.Cleanup(func() {
		scheduleFn = saved
		ticks = savedTicks
	})
	ticks = 0

	handleIRQ(&gate.TrapFrame{})
	handleIRQ(&gate.TrapFrame{})

	if ticks != 2 {
		t.Fatalf("expected 2 ticks, got %d", ticks)
	}
	if called != 2 {
		t.Fatalf("expected scheduleFn called twice, got %d", called)
	}
}

func TestSetScheduleFuncInstallsHandler(t *testing.T) {
	saved := scheduleFn
	t.Cleanup(func() { scheduleFn = saved })

	var got bool
	SetScheduleFunc(func() { got = true })
	scheduleFn()

	if !got {
		t.Fatalf("expected installed schedule func to run")
	}
}
