package kernel

import (
	"reflect"
	"unsafe"
)

// Memset sets size bytes starting at addr to value. The implementation
// overlays a byte slice on top of the target address and never performs a
// Go struct assignment, which on a freestanding build would otherwise lower
// to a call into a runtime memmove helper that does not exist in this
// environment.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: addr,
	}))

	// Write the first byte and then double up the already-written prefix;
	// this takes log2(size) copies instead of size individual writes. The
	// last copy is cut short at size by copy's length rule, so sizes that
	// are not powers of two are filled completely too.
	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst. The two regions must not
// overlap; COW fault resolution and sector reads never alias their source
// and destination so this restriction is always satisfied by this kernel's
// callers.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: src,
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: dst,
	}))

	copy(dstSlice, srcSlice)
}
