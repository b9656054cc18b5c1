package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestFlagDefaults verifies the flags exist and default to a plain
// conversion.
func TestFlagDefaults(t *testing.T) {
	if inPath == nil || outPath == nil || configPath == nil {
		t.Fatal("path flags not defined")
	}
	if *inPath != "" || *outPath != "" || *configPath != "" {
		t.Errorf("expected empty path defaults, got in=%q out=%q config=%q", *inPath, *outPath, *configPath)
	}
	if *antialiased || *strictSH || *quiet || *showVersion {
		t.Error("expected boolean flags to default to false")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, out, want string
	}{
		{"scene.ply", "", "scene.spz"},
		{"/data/garden.ply", "", "/data/garden.spz"},
		{"noext", "", "noext.spz"},
		{"scene.ply", "custom/out.spz", "custom/out.spz"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.in, tt.out); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", false, false)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.GetAntialiased() || cfg.GetStrictSH() {
		t.Error("expected defaults without overrides")
	}

	cfg, err = loadConfig("", true, true)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if !cfg.GetAntialiased() || !cfg.GetStrictSH() {
		t.Error("expected flag overrides to apply")
	}

	path := filepath.Join(t.TempDir(), "convert.json")
	if err := os.WriteFile(path, []byte(`{"fractional_bits": 10}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	cfg, err = loadConfig(path, true, false)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.GetFractionalBits() != 10 {
		t.Errorf("GetFractionalBits() = %d, want 10", cfg.GetFractionalBits())
	}
	if !cfg.GetAntialiased() {
		t.Error("expected -antialiased to override the file")
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.json"), false, false); err == nil {
		t.Error("expected error for missing config file")
	}
}
