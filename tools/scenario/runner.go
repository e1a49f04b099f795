package scenario

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// Console is a byte-oriented connection to the thing under test: either a
// spawned emulator's stdio, or a real UART reached through go.bug.st/serial.
type Console interface {
	io.ReadWriteCloser
}

// emulatorConsole wires an exec.Cmd's stdin/stdout as a Console; the
// emulator process is killed on Close.
type emulatorConsole struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func startEmulator(ctx context.Context, cfg EmulatorConfig, image string) (*emulatorConsole, error) {
	args := make([]string, len(cfg.Args))
	for i, a := range cfg.Args {
		args[i] = strings.ReplaceAll(a, "{{image}}", image)
	}

	cmd := exec.CommandContext(ctx, cfg.Command, args...)
	// The emulator spawns helper processes of its own (e.g. a KVM
	// accelerator shim); running it in its own process group lets Close
	// reap the whole group instead of leaking orphans behind it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("wiring emulator stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("wiring emulator stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting emulator: %w", err)
	}

	return &emulatorConsole{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (e *emulatorConsole) Read(p []byte) (int, error)  { return e.stdout.Read(p) }
func (e *emulatorConsole) Write(p []byte) (int, error) { return e.stdin.Write(p) }

func (e *emulatorConsole) Close() error {
	e.stdin.Close()
	if e.cmd.Process != nil {
		if pgid, err := unix.Getpgid(e.cmd.Process.Pid); err == nil {
			unix.Kill(-pgid, syscall.SIGKILL)
		} else {
			e.cmd.Process.Kill()
		}
	}
	return e.cmd.Wait()
}

// serialConsole wraps a real UART, for the -device escape hatch that
// bridges to hardware instead of an emulator (spec.md §8 scenario 1 run
// against real hardware).
type serialConsole struct {
	port serial.Port
}

func openSerialConsole(device string, baudRate int) (*serialConsole, error) {
	mode := &serial.Mode{BaudRate: baudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial device %s: %w", device, err)
	}
	return &serialConsole{port: port}, nil
}

func (s *serialConsole) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *serialConsole) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *serialConsole) Close() error                { return s.port.Close() }

// StepResult records the outcome of one scripted step.
type StepResult struct {
	Step     Step
	Passed   bool
	Error    string
	Matched  string
	Duration time.Duration
}

// Result is the outcome of running one scenario.
type Result struct {
	Spec     *Spec
	Steps    []StepResult
	Passed   bool
	Duration time.Duration
}

// Runner executes scenario files against either a spawned emulator or a
// real serial device.
type Runner struct {
	Verbose bool

	// Device, if set, bridges to a real UART via go.bug.st/serial
	// instead of spawning Spec.Emulator.
	Device   string
	BaudRate int
}

// NewRunner returns a Runner configured to spawn an emulator per scenario.
func NewRunner() *Runner {
	return &Runner{BaudRate: 115200}
}

// Connect opens the console a scenario targets: a real UART when Device
// is set, otherwise a freshly spawned emulator running Spec.Image.
func (r *Runner) Connect(ctx context.Context, spec *Spec) (Console, error) {
	if r.Device != "" {
		return openSerialConsole(r.Device, r.BaudRate)
	}
	return startEmulator(ctx, spec.Emulator, spec.Image)
}

// Run executes one scenario file end to end.
func (r *Runner) Run(ctx context.Context, specPath string) (*Result, error) {
	spec, err := LoadSpec(specPath)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, spec.Timeout.Duration())
	defer cancel()

	console, err := r.Connect(runCtx, spec)
	if err != nil {
		return nil, err
	}
	defer console.Close()

	lines := make(chan string, 64)
	go scanLines(console, lines)

	start := time.Now()
	result := &Result{Spec: spec, Passed: true}

	for _, step := range spec.Steps {
		stepStart := time.Now()
		sr := StepResult{Step: step}

		switch {
		case step.Send != "":
			if _, err := console.Write([]byte(step.Send)); err != nil {
				sr.Error = err.Error()
			} else {
				sr.Passed = true
			}
		case step.ExpectContains != "" || step.ExpectEquals != "":
			sr.Passed, sr.Matched, sr.Error = r.waitForLine(runCtx, lines, step)
		default:
			sr.Error = "step has neither send nor expect set"
		}

		sr.Duration = time.Since(stepStart)
		if r.Verbose {
			fmt.Printf("[%s] %+v\n", spec.Name, sr)
		}
		result.Steps = append(result.Steps, sr)
		if !sr.Passed {
			result.Passed = false
			break
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) waitForLine(ctx context.Context, lines <-chan string, step Step) (passed bool, matched string, errMsg string) {
	timeout := time.NewTimer(step.Timeout.Duration())
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, "", ctx.Err().Error()
		case <-timeout.C:
			return false, "", fmt.Sprintf("timed out waiting for %q", expectationText(step))
		case line, ok := <-lines:
			if !ok {
				return false, "", "console closed before the expected line arrived"
			}
			if step.ExpectEquals != "" && line == step.ExpectEquals {
				return true, line, ""
			}
			if step.ExpectContains != "" && strings.Contains(line, step.ExpectContains) {
				return true, line, ""
			}
		}
	}
}

func expectationText(step Step) string {
	if step.ExpectEquals != "" {
		return step.ExpectEquals
	}
	return step.ExpectContains
}

func scanLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}
