package elf

import (
	"encoding/binary"
	"testing"
)

func minimalHeader(machine uint16, phnum uint16, entry uint32) []byte {
	buf := make([]byte, ehdrSize)
	buf[0], buf[1], buf[2], buf[3] = 0x7f, 'E', 'L', 'F'
	buf[4] = elfClass32
	binary.LittleEndian.PutUint16(buf[ehMachine:], machine)
	binary.LittleEndian.PutUint32(buf[ehEntry:], entry)
	binary.LittleEndian.PutUint32(buf[ehPhoff:], uint32(ehdrSize))
	binary.LittleEndian.PutUint16(buf[ehPhentsz:], phdrSize)
	binary.LittleEndian.PutUint16(buf[ehPhnum:], phnum)
	return buf
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := minimalHeader(emI386, 0, 0)
	buf[1] = 'X'

	if _, err := Load(nil, buf); err == nil {
		t.Fatalf("expected bad magic to be rejected")
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	buf := minimalHeader(0x3e, 0, 0) // EM_X86_64, not EM_386

	if _, err := Load(nil, buf); err == nil {
		t.Fatalf("expected non-i386 machine to be rejected")
	}
}

func TestLoadRejectsTruncatedImage(t *testing.T) {
	buf := minimalHeader(emI386, 0, 0)[:ehdrSize-1]

	if _, err := Load(nil, buf); err == nil {
		t.Fatalf("expected truncated image to be rejected")
	}
}

func TestLoadWithNoProgramHeadersReturnsEntry(t *testing.T) {
	buf := minimalHeader(emI386, 0, 0x00401000)

	entry, err := Load(nil, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != 0x00401000 {
		t.Fatalf("expected entry 0x401000, got %#x", entry)
	}
}
