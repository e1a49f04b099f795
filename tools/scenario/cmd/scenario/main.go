// Command scenario runs one or more YAML scenario files against a built
// novaos disk image, either under an emulator or a real UART.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"novaos/tools/scenario"
)

func main() {
	verbose := flag.Bool("v", false, "verbose step-by-step output")
	device := flag.String("device", "", "bridge to a real serial device instead of spawning the emulator")
	baudRate := flag.Int("baud", 115200, "baud rate when -device is set")
	interactive := flag.Bool("interactive", false, "after the scenario finishes (or fails), hand the console to the terminal")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "usage: scenario [flags] scenario.yaml [scenario.yaml ...]\n")
		os.Exit(1)
	}

	runner := scenario.NewRunner()
	runner.Verbose = *verbose
	runner.Device = *device
	runner.BaudRate = *baudRate

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	failures := 0
	for _, path := range paths {
		result, err := runner.Run(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenario: %s: %v\n", path, err)
			failures++
			continue
		}

		status := "PASS"
		if !result.Passed {
			status = "FAIL"
			failures++
		}
		fmt.Printf("%s %s (%d/%d steps, %s)\n", status, result.Spec.Name, passedSteps(result), len(result.Steps), result.Duration)
		if !result.Passed {
			for _, s := range result.Steps {
				if !s.Passed {
					fmt.Printf("  step failed: %+v error=%s\n", s.Step, s.Error)
				}
			}
		}

		if *interactive {
			if err := bridgeInteractively(ctx, runner, path); err != nil {
				fmt.Fprintf(os.Stderr, "scenario: interactive bridge: %v\n", err)
			}
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// bridgeInteractively reconnects to the scenario's target (a fresh
// emulator boot, or the same UART) and hands the raw terminal to it, so
// an operator can keep poking at a failed scenario by hand.
func bridgeInteractively(ctx context.Context, runner *scenario.Runner, specPath string) error {
	spec, err := scenario.LoadSpec(specPath)
	if err != nil {
		return err
	}
	console, err := runner.Connect(ctx, spec)
	if err != nil {
		return err
	}
	defer console.Close()

	fmt.Println("scenario: entering interactive bridge, close the terminal or kill the process to exit")
	return scenario.Bridge(console)
}

func passedSteps(r *scenario.Result) int {
	n := 0
	for _, s := range r.Steps {
		if s.Passed {
			n++
		}
	}
	return n
}
