package keyboard

import (
	"novaos/kernel/gate"
	"testing"
)

func resetRing(t *testing.T) {
	t.Helper()
	head, tail = 0, 0
	ring = [len(ring)]byte{}
	t.Cleanup(func() { head, tail = 0, 0 })
}

func withFakeScancode(t *testing.T, codes ...byte) {
	t.Helper()
	saved := in8Fn
	i := 0
	in8Fn = func(port uint16) uint8 {
		if i >= len(codes) {
			return 0
		}
		c := codes[i]
		i++
		return c
	}
	t.Cleanup(func() { in8Fn = saved })
}

func TestHandleIRQTranslatesMakeCodeToASCII(t *testing.T) {
	resetRing(t)
	withFakeScancode(t, 0x1E) // 'a'

	handleIRQ(&gate.TrapFrame{})

	buf := make([]byte, 1)
	if n := Read(buf); n != 1 || buf[0] != 'a' {
		t.Fatalf("expected to read 'a', got n=%d buf=%q", n, buf[:n])
	}
}

func TestHandleIRQIgnoresBreakCodes(t *testing.T) {
	resetRing(t)
	withFakeScancode(t, 0x1E|0x80)

	handleIRQ(&gate.TrapFrame{})

	buf := make([]byte, 1)
	if n := Read(buf); n != 0 {
		t.Fatalf("expected no bytes queued for a break code, got n=%d", n)
	}
}

func TestRingOverwritesOldestOnOverflow(t *testing.T) {
	resetRing(t)

	for i := 0; i < len(ring)+1; i++ {
		push('x')
	}
	push('y')

	buf := make([]byte, len(ring))
	n := Read(buf)
	if n != len(ring)-1 {
		t.Fatalf("expected ring to hold %d bytes, got %d", len(ring)-1, n)
	}
	if buf[n-1] != 'y' {
		t.Fatalf("expected the most recent byte to survive the overflow, got %q", buf[n-1])
	}
}
