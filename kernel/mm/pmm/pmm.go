// Package pmm implements the physical frame allocator: a bitmap of
// allocated/free frames plus a per-frame reference count, as required by
// the copy-on-write fork implementation.
package pmm

import (
	"novaos/kernel"
	"novaos/kernel/boot"
	"novaos/kernel/config"
	"novaos/kernel/kfmt/early"
	"novaos/kernel/mm"
)

// maxFrames bounds the frame table to the portion of physical memory the
// direct map actually covers (config.DirectMapSize). A frame outside this
// range has no P2V translation and this kernel has no other mechanism
// (no per-frame kernel mapping cache) to reach its contents, so frames
// are never tracked past this point.
const maxFrames = config.DirectMapSize / config.PageSize

var (
	// allocBitmap has one bit per frame: 1 means allocated.
	allocBitmap [maxFrames / 8]byte

	// refcount holds one reference count per frame. A frame with
	// refcount 0 is implicitly free; refcount saturates at
	// config.RefcountSaturated (pinned, never reclaimed).
	refcount [maxFrames]uint8

	totalFrames    uint32
	reservedFrames uint32

	// ErrOutOfMemory is returned by AllocFrame when no free frame remains.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}
)

func bitSet(frame mm.Frame) bool {
	return allocBitmap[frame/8]&(1<<(frame%8)) != 0
}

func setBit(frame mm.Frame) {
	allocBitmap[frame/8] |= 1 << (frame % 8)
}

func clearBit(frame mm.Frame) {
	allocBitmap[frame/8] &^= 1 << (frame % 8)
}

// Init walks the E820 table (already reachable through the direct map at
// directMappedE820Addr) to discover usable RAM, then reserves every frame
// that overlaps [0, kernelEndPhys) so the allocator never hands out a
// frame the kernel image itself occupies.
func Init(kernelEndPhys uintptr, directMappedE820Addr uintptr) *kernel.Error {
	for i := range allocBitmap {
		allocBitmap[i] = 0xFF // start fully reserved; usable regions clear their own bits
	}

	boot.VisitE820(directMappedE820Addr, func(e *boot.E820Entry) bool {
		if e.Type != boot.E820TypeUsable {
			return true
		}
		markRangeFree(uintptr(e.Base), uintptr(e.Base+e.Length))
		return true
	})

	reserveRange(0, kernelEndPhys)

	early.Printf("[pmm] frames: %d total, %d reserved\n", totalFrames, reservedFrames)
	return nil
}

func markRangeFree(startPhys, endPhys uintptr) {
	startFrame := mm.FrameFromAddress((startPhys + config.PageSize - 1) &^ (config.PageSize - 1))
	endFrame := mm.FrameFromAddress(endPhys &^ (config.PageSize - 1))

	for f := startFrame; f < endFrame && f < maxFrames; f++ {
		if bitSet(f) {
			clearBit(f)
			totalFrames++
		}
	}
}

func reserveRange(startPhys, endPhys uintptr) {
	startFrame := mm.FrameFromAddress(startPhys)
	endFrame := mm.FrameFromAddress((endPhys + config.PageSize - 1) &^ (config.PageSize - 1))

	for f := startFrame; f < endFrame && f < maxFrames; f++ {
		if !bitSet(f) {
			setBit(f)
			reservedFrames++
		}
	}
}

// AllocFrame reserves and returns an unused physical frame with an initial
// reference count of 1, or ErrOutOfMemory if none remain. Fully allocated
// bytes (0xFF, eight reserved frames at once) are skipped outright; only a
// byte with at least one free bit is bit-scanned.
func AllocFrame() (mm.Frame, *kernel.Error) {
	for i, b := range allocBitmap {
		if b == 0xFF {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				continue
			}
			f := mm.Frame(i*8 + bit)
			if f >= maxFrames {
				break
			}
			setBit(f)
			refcount[f] = 1
			reservedFrames++
			return f, nil
		}
	}
	return mm.InvalidFrame, ErrOutOfMemory
}

// Retain increments a frame's reference count, saturating at
// config.RefcountSaturated. Used when a page becomes copy-on-write shared
// by a second address space.
func Retain(f mm.Frame) {
	if refcount[f] < config.RefcountSaturated {
		refcount[f]++
	}
}

// Refcount returns the current reference count of a frame.
func Refcount(f mm.Frame) uint8 {
	return refcount[f]
}

// FreeFrame decrements a frame's reference count and, once it reaches
// zero, marks the frame free again. Calling FreeFrame on an
// already-unallocated frame is a no-op.
func FreeFrame(f mm.Frame) {
	if !bitSet(f) {
		return
	}

	if refcount[f] == config.RefcountSaturated {
		return
	}

	if refcount[f] > 0 {
		refcount[f]--
	}

	if refcount[f] == 0 {
		clearBit(f)
		reservedFrames--
	}
}

// Stats returns the total number of usable frames and how many are
// currently reserved (allocated).
func Stats() (total, reserved uint32) {
	return totalFrames, reservedFrames
}
