package scenario

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Bridge puts the controlling terminal in raw mode and copies bytes
// between it and console until either side hits EOF, so an operator can
// drop into the running emulator/UART interactively after a scenario
// fails partway through (same raw-mode-then-copy shape as a serial
// terminal program).
func Bridge(console Console) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	done := make(chan error, 2)
	go func() {
		_, err := io.Copy(console, os.Stdin)
		done <- err
	}()
	go func() {
		_, err := io.Copy(os.Stdout, console)
		done <- err
	}()

	return <-done
}
