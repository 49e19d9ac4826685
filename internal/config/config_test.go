package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".runlet"), []byte("version: 1\ntimeout: 10m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q", res.Root, dir)
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if res.Config.Timeout() != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", res.Config.Timeout())
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".runlet"), []byte("version: 2\nmax_output: 2048\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if res.Config.MaxOutputBytes() != 2048 {
		t.Errorf("MaxOutputBytes() = %d, want 2048", res.Config.MaxOutputBytes())
	}
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q (fallback)", res.Root, dir)
	}
	// Defaults apply throughout.
	if res.Config.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default", res.Config.Timeout())
	}
	if res.Config.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want default", res.Config.MaxOutputBytes())
	}
	if res.Config.HistoryCapacity() != DefaultHistoryCapacity {
		t.Errorf("HistoryCapacity() = %d, want default", res.Config.HistoryCapacity())
	}
}

func TestConfig_InvalidTimeout(t *testing.T) {
	cfg := &Config{RawTimeout: "not-a-duration"}
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default for invalid value", cfg.Timeout())
	}
}
