// Package config loads and validates the optional .runlet YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for tool-level execution settings.
const (
	DefaultTimeout         = 5 * time.Minute
	DefaultMaxOutput       = 1 << 20 // 1 MB
	DefaultHistoryCapacity = 16
)

// Config holds the parsed .runlet configuration. It applies to the CLI
// and MCP surfaces only; the library takes no configuration file.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int           `yaml:"version"`
	RawTimeout   string        `yaml:"timeout"`    // e.g. "5m", "30s"
	RawMaxOutput int           `yaml:"max_output"` // bytes per captured stream
	History      HistoryConfig `yaml:"history"`
}

// HistoryConfig controls run-record retention.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"` // in-memory LRU size
}

// Timeout returns the configured per-run timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured capture cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// HistoryCapacity returns the configured LRU capacity or the default.
func (c *Config) HistoryCapacity() int {
	if c.History.Capacity > 0 {
		return c.History.Capacity
	}
	return DefaultHistoryCapacity
}

// LoadResult holds the parsed config and the directory it came from.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .runlet; falls back to dir
}

// Load reads the .runlet file discovered by walking upward from dir.
// If no .runlet file exists anywhere up the tree, a default Config is
// returned with Root set to dir.
func Load(dir string) (*LoadResult, error) {
	root, err := findConfigRoot(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: dir}, nil
	}

	path := filepath.Join(root, ".runlet")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading .runlet: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .runlet: %w", err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findConfigRoot walks upward from dir looking for a directory
// containing a .runlet file.
func findConfigRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".runlet")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf(".runlet not found")
		}
		dir = parent
	}
}
