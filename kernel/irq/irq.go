// Package irq wires the 8259 PIC to the vectors declared in kernel/gate:
// remapping the PIC so IRQ lines land outside the CPU exception range,
// and acknowledging/masking individual lines.
package irq

import (
	"novaos/kernel/cpu"
	"novaos/kernel/gate"
)

// PIC I/O ports.
const (
	masterCommandPort = 0x20
	masterDataPort    = 0x21
	slaveCommandPort  = 0xA0
	slaveDataPort     = 0xA1

	cmdInit     = 0x11
	cmdEndOfInt = 0x20

	mode8086 = 0x01
)

// Init remaps the PIC so that IRQ0-7 are delivered at gate.IRQBase and
// IRQ8-15 immediately after, then installs the IDT via gate.Init. Calling
// this before the IDT is loaded means every interrupt taken up to this
// point is a CPU exception, never a stray IRQ.
func Init() {
	// ICW1: begin initialization sequence, expect ICW4.
	cpu.Out8(masterCommandPort, cmdInit)
	cpu.Out8(slaveCommandPort, cmdInit)

	// ICW2: vector offsets for each PIC.
	cpu.Out8(masterDataPort, uint8(gate.IRQBase))
	cpu.Out8(slaveDataPort, uint8(gate.IRQBase)+8)

	// ICW3: wire the cascade identity between master and slave.
	cpu.Out8(masterDataPort, 0x04)
	cpu.Out8(slaveDataPort, 0x02)

	// ICW4: 8086 mode.
	cpu.Out8(masterDataPort, mode8086)
	cpu.Out8(slaveDataPort, mode8086)

	// Mask everything until a driver explicitly unmasks its line.
	cpu.Out8(masterDataPort, 0xFF)
	cpu.Out8(slaveDataPort, 0xFF)

	gate.Init()
}

// Ack acknowledges an IRQ so the PIC delivers further interrupts on that
// (and lower-priority) lines. Must be called by every IRQ handler before
// returning.
func Ack(line uint8) {
	if line >= 8 {
		cpu.Out8(slaveCommandPort, cmdEndOfInt)
	}
	cpu.Out8(masterCommandPort, cmdEndOfInt)
}

// SetMask enables (masked=false) or disables (masked=true) delivery of a
// single IRQ line.
func SetMask(line uint8, masked bool) {
	port := uint16(masterDataPort)
	bit := line
	if line >= 8 {
		port = slaveDataPort
		bit -= 8
	}

	cur := cpu.In8(port)
	if masked {
		cur |= 1 << bit
	} else {
		cur &^= 1 << bit
	}
	cpu.Out8(port, cur)
}
