// Package scenario drives a YAML-specified end-to-end test against a
// booted novaos image: start an emulator (or bridge to a real UART),
// feed it a scripted sequence of sends and expects over the serial
// console, and report which steps passed.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Spec is one scenario file, matching spec.md §8's six end-to-end
// scenarios (boot-to-shell, fork-with-COW, exec sequence, thread
// counter, producer-consumer, ls via syscall).
type Spec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Image       string         `yaml:"image"`
	Emulator    EmulatorConfig `yaml:"emulator"`
	Timeout     Duration       `yaml:"timeout"`
	Steps       []Step         `yaml:"steps"`
}

// EmulatorConfig names the command used to boot Image. {{image}} in Args
// is substituted with Spec.Image before the command runs.
type EmulatorConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Step is one scripted interaction. Exactly one of Send, ExpectContains
// or ExpectEquals is normally set; a step may also carry its own Timeout
// overriding the scenario default.
type Step struct {
	Send           string   `yaml:"send,omitempty"`
	ExpectContains string   `yaml:"expect_contains,omitempty"`
	ExpectEquals   string   `yaml:"expect_equals,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling as a Go duration
// string ("30s", "2m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// LoadSpec loads and defaults a scenario file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	if spec.Timeout == 0 {
		spec.Timeout = Duration(30 * time.Second)
	}
	for i := range spec.Steps {
		if spec.Steps[i].Timeout == 0 {
			spec.Steps[i].Timeout = spec.Timeout
		}
	}
	return &spec, nil
}
