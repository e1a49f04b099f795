// Package keyboard drives the PS/2 keyboard controller: it turns IRQ1
// scancode interrupts into a ring buffer of ASCII bytes that sys_read
// drains (spec.md §3/§4.7).
package keyboard

import (
	"novaos/kernel/config"
	"novaos/kernel/cpu"
	"novaos/kernel/gate"
	"novaos/kernel/irq"
)

const dataPort = 0x60

// Scancode set 1, unshifted, make codes only: index is the scancode,
// value is the ASCII byte it produces, or 0 if the key has no direct
// ASCII mapping (modifiers, function keys, break codes, ...).
var scancodeToASCII = [128]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: '\b',
	0x0F: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1C: '\n',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm',
	0x39: ' ',
}

// ring is the scancode-translated ASCII ring buffer. head is the next
// slot Read drains from, tail is the next slot the IRQ handler fills;
// head == tail means empty, advancing tail into head means the oldest
// unread byte is dropped (spec.md §3: bounded ring, overwrite on overflow).
var (
	ring       [config.KeyboardRingSize]byte
	head, tail uint32
)

// in8Fn reads the scancode. A function variable so tests can drive the
// IRQ handler without real hardware.
var in8Fn = cpu.In8

// Init installs the IRQ1 handler and unmasks the line.
func Init() {
	gate.HandleInterrupt(gate.IRQKeyboard, handleIRQ)
	irq.SetMask(1, false)
}

func handleIRQ(trap *gate.TrapFrame) *gate.TrapFrame {
	code := in8Fn(dataPort)
	irq.Ack(1)

	if code&0x80 != 0 {
		return trap // break code, ignored
	}
	if ch := scancodeToASCII[code&0x7F]; ch != 0 {
		push(ch)
	}
	return trap
}

func push(ch byte) {
	next := (tail + 1) % config.KeyboardRingSize
	if next == head {
		head = (head + 1) % config.KeyboardRingSize // drop oldest on overflow
	}
	ring[tail] = ch
	tail = next
}

// Read drains up to len(buf) bytes already in the ring buffer and returns
// the count; it never blocks, matching sys_read's fixed stdin-fd contract
// (blocking-until-input is left to the caller's retry loop).
func Read(buf []byte) int {
	n := 0
	for n < len(buf) && head != tail {
		buf[n] = ring[head]
		head = (head + 1) % config.KeyboardRingSize
		n++
	}
	return n
}
