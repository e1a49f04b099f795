package kernel

import (
	"bytes"
	"novaos/kernel/cpu"
	"novaos/kernel/kfmt"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	t.Cleanup(func() { kfmt.SetOutputSink(nil) })
	return &buf
}

func TestPanicWithError(t *testing.T) {
	defer func() { cpuHaltFn = cpu.Halt }()

	var halted bool
	cpuHaltFn = func() { halted = true }
	buf := captureOutput(t)

	Panic(&Error{Module: "test", Message: "panic test"})

	exp := "\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected:\n%q\ngot:\n%q", exp, got)
	}
	if !halted {
		t.Fatal("expected cpu.Halt to be called by Panic")
	}
}

func TestPanicWithoutError(t *testing.T) {
	defer func() { cpuHaltFn = cpu.Halt }()

	var halted bool
	cpuHaltFn = func() { halted = true }
	buf := captureOutput(t)

	Panic(nil)

	exp := "\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected:\n%q\ngot:\n%q", exp, got)
	}
	if !halted {
		t.Fatal("expected cpu.Halt to be called by Panic")
	}
}

func TestPanicWithStringCause(t *testing.T) {
	defer func() { cpuHaltFn = cpu.Halt }()
	cpuHaltFn = func() {}
	buf := captureOutput(t)

	Panic("boom")

	if got := buf.String(); !bytes.Contains(buf.Bytes(), []byte("boom")) {
		t.Fatalf("expected output to mention the panic cause, got %q", got)
	}
}
