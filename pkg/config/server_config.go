package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ServerConfig holds the backend configuration.
type ServerConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Debug bool   `yaml:"debug"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Storage struct {
		Type   string `yaml:"type"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// Dispatcher points at the machine-control endpoint. Commands are
	// best-effort: failures are logged and dropped.
	Dispatcher struct {
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"dispatcher"`

	Auth struct {
		Enabled  bool          `yaml:"enabled"`
		Secret   string        `yaml:"secret"`
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
}

// LoadServerConfig loads the backend configuration from path.
func LoadServerConfig(path string, workspaceRoot string) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := LoadConfig(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.resolveRelativePaths(workspaceRoot); err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}

	return cfg, nil
}

// Validate implements the Config interface.
func (c *ServerConfig) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Storage.Type == "" {
		return fmt.Errorf("storage.type is required")
	}
	if c.Dispatcher.Endpoint == "" {
		return fmt.Errorf("dispatcher.endpoint is required")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required when auth is enabled")
	}
	return nil
}

func (c *ServerConfig) resolveRelativePaths(baseDir string) error {
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(baseDir, c.Log.File)
	}

	if c.Storage.Type == "sqlite" && !filepath.IsAbs(c.Storage.SQLite.Path) {
		c.Storage.SQLite.Path = filepath.Join(baseDir, c.Storage.SQLite.Path)
		if err := os.MkdirAll(filepath.Dir(c.Storage.SQLite.Path), 0755); err != nil {
			return fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	return nil
}

// DefaultServerConfig returns the default backend configuration.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8000

	cfg.Log.Debug = false
	cfg.Log.File = "data/mower-server.log"

	cfg.Storage.Type = "sqlite"
	cfg.Storage.SQLite.Path = "data/mower.db"

	cfg.Dispatcher.Endpoint = "http://machine-simulator:5001/command"
	cfg.Dispatcher.Timeout = 5 * time.Second

	cfg.Auth.Enabled = false
	cfg.Auth.TokenTTL = 24 * time.Hour

	return cfg
}
