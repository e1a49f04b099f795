// Package timer programs the 8253/8254 PIT to raise IRQ0 at a fixed
// frequency and drives the preemptive scheduler off it (spec.md §5: the
// scheduler is timer-preemptive).
package timer

import (
	"novaos/kernel/cpu"
	"novaos/kernel/gate"
	"novaos/kernel/irq"
)

const (
	channel0DataPort = 0x40
	commandPort      = 0x43

	// baseFrequency is the PIT's fixed input clock.
	baseFrequency = 1193182

	// mode3SquareWave | channel0 | lobyte/hibyte access.
	commandMode3 = 0x36
)

// scheduleFn is called once per tick, after the IRQ is acknowledged. It is
// a function variable so tests can observe ticks without a real
// scheduler; kernel init wires in proc.Schedule.
var scheduleFn = func() {}

// ticks counts IRQ0 deliveries since Init.
var ticks uint64

// SetScheduleFunc installs the function called on every tick.
func SetScheduleFunc(fn func()) { scheduleFn = fn }

// Ticks returns the number of timer interrupts delivered since Init.
func Ticks() uint64 { return ticks }

// Init programs the PIT for hz interrupts per second and installs the
// IRQ0 handler.
func Init(hz uint32) {
	divisor := uint16(baseFrequency / hz)

	cpu.Out8(commandPort, commandMode3)
	cpu.Out8(channel0DataPort, uint8(divisor&0xFF))
	cpu.Out8(channel0DataPort, uint8(divisor>>8))

	gate.HandleInterrupt(gate.IRQTimer, handleIRQ)
	irq.SetMask(0, false)
}

func handleIRQ(trap *gate.TrapFrame) *gate.TrapFrame {
	ticks++
	irq.Ack(0)
	scheduleFn()
	return trap
}
