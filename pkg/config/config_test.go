package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadServerConfig(t *testing.T) {
	t.Run("Resolves Relative Paths", func(t *testing.T) {
		path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
log:
  file: logs/server.log
storage:
  type: sqlite
  sqlite:
    path: data/test.db
dispatcher:
  endpoint: http://localhost:5001/command
  timeout: 3s
`)
		root := t.TempDir()
		cfg, err := LoadServerConfig(path, root)
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, filepath.Join(root, "logs/server.log"), cfg.Log.File)
		assert.Equal(t, filepath.Join(root, "data/test.db"), cfg.Storage.SQLite.Path)
		assert.Equal(t, 3*time.Second, cfg.Dispatcher.Timeout)
	})

	t.Run("Rejects Missing Dispatcher Endpoint", func(t *testing.T) {
		path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
storage:
  type: sqlite
`)
		_, err := LoadServerConfig(path, t.TempDir())
		assert.Error(t, err)
	})

	t.Run("Rejects Auth Without Secret", func(t *testing.T) {
		cfg := DefaultServerConfig()
		cfg.Auth.Enabled = true
		assert.Error(t, cfg.Validate())

		cfg.Auth.Secret = "something"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadSimulatorConfig(t *testing.T) {
	t.Run("Overrides Defaults", func(t *testing.T) {
		path := writeConfig(t, `
machine_id: 11111111-1111-1111-1111-111111111111
runtime:
  mowing_duration: 5s
`)
		cfg, err := LoadSimulatorConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "11111111-1111-1111-1111-111111111111", cfg.MachineID)
		assert.Equal(t, 5*time.Second, cfg.Runtime.MowingDuration)
		assert.Equal(t, 5001, cfg.Listen.Port)
	})

	t.Run("Requires Machine Id", func(t *testing.T) {
		path := writeConfig(t, `
listen:
  port: 5001
`)
		_, err := LoadSimulatorConfig(path)
		assert.Error(t, err)
	})
}
