// Package early provides a logging entry point that is safe to use before
// a console driver has been attached to kfmt's output sink. It is a thin
// wrapper so that callers in boot code do not need to care whether the
// console is ready yet: output is simply buffered by kfmt until
// kfmt.SetOutputSink is called and then replayed to the real sink.
package early

import "novaos/kernel/kfmt"

// Printf formats according to a format specifier and writes the result to
// whatever sink kfmt currently has attached, buffering it otherwise.
func Printf(format string, args ...interface{}) {
	kfmt.Printf(format, args...)
}
