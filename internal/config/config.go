// Package config loads project configuration for the synchronizer:
// power-net naming conventions and placement grid settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placement controls the default grid placer.
type Placement struct {
	// GridMM is the placement grid pitch in millimeters.
	GridMM float64 `yaml:"grid_mm"`

	// OriginX/OriginY is where newly added entities start being placed.
	OriginX float64 `yaml:"origin_x"`
	OriginY float64 `yaml:"origin_y"`
}

// Config is the project configuration file (schsync.yaml).
type Config struct {
	// PowerNets lists net names rendered as global power markers instead
	// of scoped labels. Matching is case-insensitive and prefix-aware:
	// "VCC" also covers "VCC_3V3".
	PowerNets []string `yaml:"power_nets"`

	Placement Placement `yaml:"placement"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		PowerNets: []string{"VCC", "VDD", "VBUS", "VEE", "VSS", "GND", "AGND", "DGND"},
		Placement: Placement{
			GridMM:  2.54,
			OriginX: 25.4,
			OriginY: 25.4,
		},
	}
}

// Load reads a YAML config file, filling unset fields from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	def := Default()
	if len(cfg.PowerNets) == 0 {
		cfg.PowerNets = def.PowerNets
	}
	if cfg.Placement.GridMM <= 0 {
		cfg.Placement.GridMM = def.Placement.GridMM
	}
	if cfg.Placement.OriginX == 0 {
		cfg.Placement.OriginX = def.Placement.OriginX
	}
	if cfg.Placement.OriginY == 0 {
		cfg.Placement.OriginY = def.Placement.OriginY
	}

	return cfg, nil
}

// IsPowerNet reports whether a net name matches the configured power-net
// conventions.
func (c *Config) IsPowerNet(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range c.PowerNets {
		pu := strings.ToUpper(p)
		if upper == pu || strings.HasPrefix(upper, pu+"_") {
			return true
		}
	}
	return false
}
