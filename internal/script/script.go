// Package script runs an ordered list of commands described by a YAML
// file, stopping on the first failure. Each step is executed through
// the strict runner; per-step knobs relax the stderr and exit-code
// checks without losing the captured output.
package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a parsed script file.
type Script struct {
	Version int    `yaml:"version"`
	Steps   []Step `yaml:"steps"`
}

// Step describes one command in a script.
type Step struct {
	// Name labels the step in results. Defaults to the program name.
	Name string `yaml:"name"`
	// Command is the argv to execute. Never passed through a shell.
	Command []string `yaml:"command"`
	// Dir is the working directory, resolved against the script's
	// base directory when relative.
	Dir string `yaml:"dir"`
	// AllowStderr stops captured stderr from failing the step; only
	// the exit status is checked.
	AllowStderr bool `yaml:"allow_stderr"`
	// TolerateExit lists non-zero exit codes accepted as a pass. With
	// AllowStderr unset, a tolerated code still fails if the step
	// wrote to stderr.
	TolerateExit []int `yaml:"tolerate_exit"`
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return Parse(data)
}

// Parse validates script YAML.
func Parse(data []byte) (*Script, error) {
	s := &Script{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		if len(step.Command) == 0 {
			return nil, fmt.Errorf("step %d: empty command", i+1)
		}
		if step.Name == "" {
			step.Name = step.Command[0]
		}
	}
	return s, nil
}
