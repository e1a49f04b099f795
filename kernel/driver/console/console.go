// Package console drives the VGA text-mode framebuffer that mirrors
// everything this kernel prints: kfmt's early boot log, and user
// programs writing to stdout through sys_write.
package console

import (
	"novaos/kernel/config"
	"reflect"
	"unsafe"
)

const (
	width  = 80
	height = 25

	defaultAttr = uint16(lightGrey<<8 | lightGrey<<12)
)

// Text-mode color attributes (spec.md §4.7 names the framebuffer as
// "VGA text mode"; the 16-color attribute byte is the hardware's fixed
// palette for that mode).
const (
	black attr = iota
	blue
	green
	cyan
	red
	magenta
	brown
	lightGrey
)

type attr uint16

// fb is the VGA text-mode framebuffer, viewed as 80x25 (char, attribute)
// cells. Built once in Init from the fixed physical-to-virtual mapping
// config.VGAFramebufferVirt points at, the same fake-slice-over-a-fixed-
// address technique the teacher's own console driver uses.
var fb []uint16

var cursorX, cursorY uint16

// Init maps the framebuffer and clears the screen. Must run after the
// direct map (or an explicit mapping of VGAFramebufferPhys) is installed.
func Init() {
	fb = *(*[]uint16)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  width * height,
		Cap:  width * height,
		Data: uintptr(config.VGAFramebufferVirt),
	}))
	clear()
}

func clear() {
	cell := uint16(' ') | uint16(lightGrey)<<8
	for i := range fb {
		fb[i] = cell
	}
	cursorX, cursorY = 0, 0
}

func putChar(ch byte) {
	if ch == '\n' {
		cursorX = 0
		cursorY++
	} else {
		fb[cursorY*width+cursorX] = uint16(ch) | uint16(lightGrey)<<8
		cursorX++
		if cursorX >= width {
			cursorX = 0
			cursorY++
		}
	}
	if cursorY >= height {
		scrollUp()
		cursorY = height - 1
	}
}

func scrollUp() {
	copy(fb[0:(height-1)*width], fb[width:height*width])
	blank := uint16(' ') | uint16(lightGrey)<<8
	for i := (height - 1) * width; i < height*width; i++ {
		fb[i] = blank
	}
}

// Writer implements io.Writer over the console, so kfmt.SetOutputSink can
// target it directly. It carries no state; Out is the only instance
// callers need.
type Writer struct{}

// Out is the console's io.Writer handle.
var Out Writer

func (Writer) Write(buf []byte) (int, error) {
	for _, b := range buf {
		putChar(b)
	}
	return len(buf), nil
}

// WriteHook adapts Out.Write to the (buf []byte) int signature
// syscall.SetConsoleHooks expects for sys_write.
func WriteHook(buf []byte) int {
	n, _ := Out.Write(buf)
	return n
}
