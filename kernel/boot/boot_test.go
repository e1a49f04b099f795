package boot

import (
	"encoding/binary"
	"testing"
	"unsafe"
)

func buildTable(entries []E820Entry) []byte {
	buf := make([]byte, 4+len(entries)*24)
	binary.LittleEndian.PutUint16(buf, uint16(len(entries)))
	for i, e := range entries {
		off := 4 + i*24
		binary.LittleEndian.PutUint64(buf[off:], e.Base)
		binary.LittleEndian.PutUint64(buf[off+8:], e.Length)
		binary.LittleEndian.PutUint32(buf[off+16:], uint32(e.Type))
		binary.LittleEndian.PutUint32(buf[off+20:], e.ACPIAttrs)
	}
	return buf
}

func TestVisitE820(t *testing.T) {
	want := []E820Entry{
		{Base: 0x0, Length: 0x9FC00, Type: E820TypeUsable},
		{Base: 0x9FC00, Length: 0x400, Type: E820TypeReserved},
		{Base: 0x100000, Length: 0x1F00000, Type: E820TypeUsable},
	}
	buf := buildTable(want)

	var got []E820Entry
	VisitE820(uintptr(unsafe.Pointer(&buf[0])), func(e *E820Entry) bool {
		got = append(got, *e)
		return true
	})

	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestVisitE820StopsWhenVisitorReturnsFalse(t *testing.T) {
	buf := buildTable([]E820Entry{
		{Base: 0, Length: 1, Type: E820TypeUsable},
		{Base: 2, Length: 1, Type: E820TypeUsable},
		{Base: 3, Length: 1, Type: E820TypeUsable},
	})

	var count int
	VisitE820(uintptr(unsafe.Pointer(&buf[0])), func(e *E820Entry) bool {
		count++
		return count < 1
	})

	if count != 1 {
		t.Fatalf("expected visitor to be called exactly once, got %d", count)
	}
}
