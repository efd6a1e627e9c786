package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8888", cfg.TCPAddr())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, 30, cfg.OfflineAfterSeconds)
	assert.Equal(t, 64*1024, cfg.MaxLineBytes)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tcp_port: 9000
http_port: 9001
offline_after_seconds: 45
cors_origins:
  - http://dash.lab.local
log:
  level: debug
`), 0o600))

	t.Setenv("MONITOR_HTTP_PORT", "9101")
	t.Setenv("MONITOR_OFFLINE_AFTER", "60")

	cfg, err := LoadConfig([]string{"--config", path, "--offline-after", "90", "--tcp-host", "127.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.TCPPort, "from file")
	assert.Equal(t, 9101, cfg.HTTPPort, "env beats file")
	assert.Equal(t, 90, cfg.OfflineAfterSeconds, "flag beats env")
	assert.Equal(t, "127.0.0.1:9000", cfg.TCPAddr())
	assert.Equal(t, []string{"http://dash.lab.local"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tcp_port: 7000\n"), 0o600))
	t.Setenv("MONITOR_CONFIG", path)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.TCPPort)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"--tcp-port", "70000"})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"--cors-origin", "lab.local"})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"--help"})
	assert.True(t, errors.Is(err, pflag.ErrHelp))

	t.Setenv("MONITOR_TCP_PORT", "eighty")
	_, err = LoadConfig(nil)
	assert.Error(t, err)
}
