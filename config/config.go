// Package config loads the YAML document describing which dimmers a
// dimmerd process should instantiate: pins, backend kind, and the
// per-dimmer tuning parameters core.Dimmer exposes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level document.
type Config struct {
	SemiPeriodUS uint16         `yaml:"semi_period_us"`
	Dimmers      []DimmerConfig `yaml:"dimmers"`
}

// DimmerConfig describes one dimmer to construct. Which fields apply
// depends on Backend.
type DimmerConfig struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"` // "phase_control", "pwm", "dac_i2c", "burst", "virtual"

	Pin uint32 `yaml:"pin"`

	DutyCycleLimit float64 `yaml:"duty_cycle_limit"`
	DutyCycleMin   float64 `yaml:"duty_cycle_min"`
	DutyCycleMax   float64 `yaml:"duty_cycle_max"`
	PowerLUT       bool    `yaml:"power_lut"`

	// PWM backend.
	PWMFrequencyHz    uint32 `yaml:"pwm_frequency_hz"`
	PWMResolutionBits uint8  `yaml:"pwm_resolution_bits"`

	// DAC backend.
	I2CAddress uint8  `yaml:"i2c_address"`
	DACSKU     string `yaml:"dac_sku"` // "gp8211s", "gp8413", "gp8403", "mcp4725"
	DACChannel uint8  `yaml:"dac_channel"`
	DACRange   string `yaml:"dac_range"` // "0-5v", "0-10v"

	// Burst backend.
	BurstWindow int `yaml:"burst_window"`
}

// Load reads and parses a dimmerd config file. Unlike the teacher's
// LoadConfig, it never aborts the process: callers decide what a bad
// config means for them.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	for i, dim := range cfg.Dimmers {
		if dim.Name == "" {
			return nil, fmt.Errorf("config: dimmers[%d]: name is required", i)
		}
		if dim.Backend == "" {
			return nil, fmt.Errorf("config: dimmer %q: backend is required", dim.Name)
		}
	}

	return &cfg, nil
}
