package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPowerNets(t *testing.T) {
	cfg := Default()

	cases := []struct {
		name  string
		power bool
	}{
		{"GND", true},
		{"gnd", true},
		{"VCC", true},
		{"VCC_3V3", true},
		{"VCCA", false},
		{"N1", false},
		{"GROUND", false},
	}
	for _, tc := range cases {
		if got := cfg.IsPowerNet(tc.name); got != tc.power {
			t.Errorf("IsPowerNet(%q) = %v, want %v", tc.name, got, tc.power)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schsync.yaml")
	content := `
power_nets:
  - VIN
placement:
  grid_mm: 1.27
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !cfg.IsPowerNet("VIN") {
		t.Error("configured power net not recognized")
	}
	if cfg.IsPowerNet("VCC") {
		t.Error("power_nets should replace the default list")
	}
	if cfg.Placement.GridMM != 1.27 {
		t.Errorf("grid not loaded: %v", cfg.Placement.GridMM)
	}
	// Unset fields fall back to defaults
	if cfg.Placement.OriginX != 25.4 {
		t.Errorf("origin default not applied: %v", cfg.Placement.OriginX)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
