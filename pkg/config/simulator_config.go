package config

import (
	"fmt"
	"time"
)

// SimulatorConfig configures the machine simulator binary.
type SimulatorConfig struct {
	// Machine identity, must match a machine registered on the backend.
	MachineID string `yaml:"machine_id"`

	// Local command listener.
	Listen struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"listen"`

	// Backend connection.
	Backend struct {
		Address string `yaml:"address"`
	} `yaml:"backend"`

	Runtime struct {
		Debug bool `yaml:"debug"`
		// MowingDuration is how long one field takes to mow.
		MowingDuration time.Duration `yaml:"mowing_duration"`
		// TelemetryInterval is how often telemetry is pushed to the backend.
		TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	} `yaml:"runtime"`
}

// Validate implements the Config interface.
func (c *SimulatorConfig) Validate() error {
	if c.MachineID == "" {
		return fmt.Errorf("machine_id is required")
	}
	if c.Listen.Port <= 0 {
		return fmt.Errorf("invalid listen.port: %d", c.Listen.Port)
	}
	if c.Backend.Address == "" {
		return fmt.Errorf("backend.address is required")
	}
	return nil
}

// LoadSimulatorConfig loads the simulator configuration from path.
func LoadSimulatorConfig(path string) (*SimulatorConfig, error) {
	cfg := DefaultSimulatorConfig()
	if err := LoadConfig(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSimulatorConfig returns the default simulator configuration.
func DefaultSimulatorConfig() *SimulatorConfig {
	cfg := &SimulatorConfig{}

	cfg.Listen.Host = "0.0.0.0"
	cfg.Listen.Port = 5001

	cfg.Backend.Address = "http://127.0.0.1:8000"

	cfg.Runtime.Debug = false
	cfg.Runtime.MowingDuration = 30 * time.Second
	cfg.Runtime.TelemetryInterval = 2 * time.Second

	return cfg
}
