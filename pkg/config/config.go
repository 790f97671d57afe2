package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is implemented by every loadable configuration struct.
type Config interface {
	Validate() error
}

// LoadConfig reads, parses and validates a yaml config file.
func LoadConfig(path string, cfg Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	return nil
}
