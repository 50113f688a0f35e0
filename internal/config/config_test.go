package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerConfig(t *testing.T) {
	cfg, err := Parse([]byte(`{"port":9000,"logFile":"server.log","maxClients":10}`))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "server.log", cfg.LogFile)
	assert.Equal(t, 10, cfg.MaxClients)
	assert.Equal(t, ":9000", cfg.TCPAddr())
	assert.Empty(t, cfg.WSAddr)
}

func TestParseServerConfigOptionalKeys(t *testing.T) {
	cfg, err := Parse([]byte(`{"port":9000,"logFile":"s.log","maxClients":2,
		"wsAddr":":9001","metricsAddr":":9100","maxFrameSize":4096,"logLevel":"debug","unknown":true}`))
	require.NoError(t, err)
	assert.Equal(t, ":9001", cfg.WSAddr)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, 4096, cfg.MaxFrameSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseServerConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad json", `{"port":`},
		{"port low", `{"port":1024,"logFile":"a","maxClients":1}`},
		{"port high", `{"port":65536,"logFile":"a","maxClients":1}`},
		{"missing log file", `{"port":9000,"maxClients":1}`},
		{"blank log file", `{"port":9000,"logFile":"  ","maxClients":1}`},
		{"zero clients", `{"port":9000,"logFile":"a","maxClients":0}`},
		{"negative frame", `{"port":9000,"logFile":"a","maxClients":1,"maxFrameSize":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAT_TCP_PORT", "9500")
	t.Setenv("CHAT_MAX_CLIENTS", "3")
	t.Setenv("CHAT_LOG_FILE", "env.log")
	t.Setenv("CHAT_WS_ADDR", ":9501")
	cfg, err := Parse([]byte(`{"port":1,"logFile":"","maxClients":0}`))
	require.NoError(t, err)
	assert.Equal(t, 9500, cfg.Port)
	assert.Equal(t, 3, cfg.MaxClients)
	assert.Equal(t, "env.log", cfg.LogFile)
	assert.Equal(t, ":9501", cfg.WSAddr)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("CHAT_TCP_PORT", "not-a-port")
	cfg, err := Parse([]byte(`{"port":9000,"logFile":"a","maxClients":1}`))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":9000,"logFile":"a.log","maxClients":5}`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxClients)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
