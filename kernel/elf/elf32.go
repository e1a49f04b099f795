// Package elf implements the ELF32 program loader consumed by execve
// (spec.md §4.6): validate the header, eagerly map every PT_LOAD segment
// into the target address space, and zero-fill each segment's BSS tail.
package elf

import (
	"encoding/binary"
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/mm"
	"novaos/kernel/mm/vmm"
	"unsafe"
)

// ELF32 field offsets and widths, read by hand with encoding/binary
// rather than overlaid as a Go struct: an in-memory file buffer loaded
// byte-for-byte off disk has no guaranteed field alignment, and the same
// byte-wise discipline spec.md requires of on-disk inode records applies
// here.
const (
	identSize = 16
	ehMachine = identSize + 2
	ehEntry   = identSize + 8
	ehPhoff   = identSize + 12
	ehPhentsz = identSize + 26
	ehPhnum   = identSize + 28
	ehdrSize  = identSize + 36

	phType   = 0
	phOffset = 4
	phVaddr  = 8
	phFilesz = 16
	phMemsz  = 20
	phdrSize = 32
)

var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

const (
	elfClass32 = 1
	emI386     = 3
	ptLoad     = 1
)

var errBadHeader = &kernel.Error{Module: "elf", Message: "invalid ELF32 header or unsupported machine type"}
var errBadSegment = &kernel.Error{Module: "elf", Message: "PT_LOAD segment out of bounds or unmappable"}

// frameAllocatorFn and memsetFn let Load's frame-acquisition and
// page-zeroing be exercised from tests without touching real physical
// memory; kernel init wires the real pmm/kernel.Memset implementations.
var (
	frameAllocatorFn = func() (mm.Frame, *kernel.Error) { return 0, errBadSegment }
	memsetFn         = kernel.Memset
	memcopyFn        = kernel.Memcopy
)

// SetHooks installs the real frame allocator used to back newly mapped
// pages.
func SetHooks(allocFrame func() (mm.Frame, *kernel.Error)) {
	frameAllocatorFn = allocFrame
}

// Load validates image as an ELF32/EM_386 executable and maps every
// PT_LOAD segment into as, copying each segment's file-backed bytes and
// zeroing its BSS tail. It returns the entry point on success, or 0 and a
// non-nil error on any failure -- a caller that gets an error must not
// trust any partial mappings Load may have already made; execve's own
// UnmapUserRegion call before Load bounds the blast radius of a
// subsequent failed load.
func Load(as *vmm.AddressSpace, image []byte) (entry uintptr, err *kernel.Error) {
	if len(image) < ehdrSize {
		return 0, errBadHeader
	}
	if [4]byte{image[0], image[1], image[2], image[3]} != elfMagic {
		return 0, errBadHeader
	}
	if image[4] != elfClass32 {
		return 0, errBadHeader
	}
	if binary.LittleEndian.Uint16(image[ehMachine:]) != emI386 {
		return 0, errBadHeader
	}

	phoff := binary.LittleEndian.Uint32(image[ehPhoff:])
	phentsize := binary.LittleEndian.Uint16(image[ehPhentsz:])
	phnum := binary.LittleEndian.Uint16(image[ehPhnum:])
	if phentsize != phdrSize {
		return 0, errBadHeader
	}

	for i := uint16(0); i < phnum; i++ {
		base := phoff + uint32(i)*uint32(phentsize)
		if uint64(base)+phdrSize > uint64(len(image)) {
			return 0, errBadSegment
		}
		ph := image[base : base+phdrSize]

		if binary.LittleEndian.Uint32(ph[phType:]) != ptLoad {
			continue
		}

		offset := binary.LittleEndian.Uint32(ph[phOffset:])
		vaddr := uintptr(binary.LittleEndian.Uint32(ph[phVaddr:]))
		filesz := binary.LittleEndian.Uint32(ph[phFilesz:])
		memsz := binary.LittleEndian.Uint32(ph[phMemsz:])

		if filesz > memsz {
			return 0, errBadSegment
		}
		if uint64(offset)+uint64(filesz) > uint64(len(image)) {
			return 0, errBadSegment
		}

		if err := loadSegment(as, image[offset:offset+filesz], vaddr, uintptr(filesz), uintptr(memsz)); err != nil {
			return 0, err
		}
	}

	return uintptr(binary.LittleEndian.Uint32(image[ehEntry:])), nil
}

// loadSegment maps every page spanned by [vaddr, vaddr+memsz), rounded
// out to page boundaries, allocating and zeroing any page not already
// present, then copies the segment's file-backed prefix in and zeroes the
// BSS tail.
func loadSegment(as *vmm.AddressSpace, fileBytes []byte, vaddr uintptr, filesz, memsz uintptr) *kernel.Error {
	pageStart := vaddr &^ (config.PageSize - 1)
	pageEnd := (vaddr + memsz + config.PageSize - 1) &^ (config.PageSize - 1)

	for page := pageStart; page < pageEnd; page += config.PageSize {
		if _, translateErr := as.Translate(page); translateErr == nil {
			continue
		}

		frame, err := frameAllocatorFn()
		if err != nil {
			return err
		}
		if err := as.Map(page, frame, vmm.FlagRW|vmm.FlagUser); err != nil {
			return err
		}
		memsetFn(vmm.P2V(frame.Address()), 0, config.PageSize)
	}

	if err := copyIntoPages(as, vaddr, fileBytes); err != nil {
		return err
	}

	bssStart := vaddr + filesz
	bssLen := memsz - filesz
	if err := zeroPages(as, bssStart, bssLen); err != nil {
		return err
	}

	return nil
}

// copyIntoPages copies src to the mapped pages starting at vaddr,
// chunking the copy at page boundaries since the destination's physical
// frames are not necessarily contiguous across pages.
func copyIntoPages(as *vmm.AddressSpace, vaddr uintptr, src []byte) *kernel.Error {
	if len(src) == 0 {
		return nil
	}

	srcAddr := uintptr(unsafe.Pointer(&src[0]))
	remaining := uintptr(len(src))
	dst := vaddr

	for remaining > 0 {
		offsetInPage := dst & (config.PageSize - 1)
		chunk := uintptr(config.PageSize) - offsetInPage
		if chunk > remaining {
			chunk = remaining
		}

		dstPhys, err := as.Translate(dst)
		if err != nil {
			return errBadSegment
		}
		memcopyFn(srcAddr, vmm.P2V(dstPhys), chunk)

		srcAddr += chunk
		dst += chunk
		remaining -= chunk
	}

	return nil
}

// zeroPages zeroes n bytes of mapped memory starting at vaddr, chunking
// at page boundaries for the same reason as copyIntoPages.
func zeroPages(as *vmm.AddressSpace, vaddr uintptr, n uintptr) *kernel.Error {
	remaining := n
	dst := vaddr

	for remaining > 0 {
		offsetInPage := dst & (config.PageSize - 1)
		chunk := uintptr(config.PageSize) - offsetInPage
		if chunk > remaining {
			chunk = remaining
		}

		dstPhys, err := as.Translate(dst)
		if err != nil {
			return errBadSegment
		}
		memsetFn(vmm.P2V(dstPhys), 0, chunk)

		dst += chunk
		remaining -= chunk
	}

	return nil
}
