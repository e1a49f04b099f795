package kernel

import (
	"testing"
	"unsafe"
)

func TestMemset(t *testing.T) {
	buf := make([]byte, 257)
	for i := range buf {
		buf[i] = 0xaa
	}

	Memset(uintptr(unsafe.Pointer(&buf[0])), 0x42, uintptr(len(buf)))

	for i, b := range buf {
		if b != 0x42 {
			t.Fatalf("byte %d: expected 0x42, got 0x%x", i, b)
		}
	}
}

func TestMemsetZeroSize(t *testing.T) {
	buf := []byte{0xaa}
	Memset(uintptr(unsafe.Pointer(&buf[0])), 0x42, 0)
	if buf[0] != 0xaa {
		t.Fatalf("expected buffer to be untouched by a zero-size Memset")
	}
}

func TestMemcopy(t *testing.T) {
	src := []byte("the quick brown fox")
	dst := make([]byte, len(src))

	Memcopy(uintptr(unsafe.Pointer(&src[0])), uintptr(unsafe.Pointer(&dst[0])), uintptr(len(src)))

	if string(dst) != string(src) {
		t.Fatalf("expected %q, got %q", src, dst)
	}
}
