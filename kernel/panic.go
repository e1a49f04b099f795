package kernel

import (
	"novaos/kernel/cpu"
	"novaos/kernel/kfmt"
)

// cpuHaltFn is a function variable so tests can intercept the otherwise
// unrecoverable halt.
var cpuHaltFn = cpu.Halt

var errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}

// Panic prints the supplied error to the console and halts the CPU. It
// never returns. kmain calls this instead of the builtin panic for any
// unrecoverable init failure, since there is no runtime unwinder to catch
// a builtin panic in a freestanding build.
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	kfmt.Printf("\n-----------------------------------\n")
	if err != nil {
		kfmt.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	kfmt.Printf("*** kernel panic: system halted ***\n")
	kfmt.Printf("-----------------------------------\n")

	cpuHaltFn()
}
