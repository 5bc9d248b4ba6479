package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG", "")
	opts, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Addr)
	assert.Equal(t, StoreMemory, opts.Store)
	assert.Equal(t, 2*time.Second, opts.AuthDelay.Std())
	assert.Equal(t, 1500*time.Millisecond, opts.DisplayDelay.Std())
	assert.Equal(t, 30*time.Second, opts.StatusInterval.Std())
	assert.Equal(t, 0.75, opts.MatchRate)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"addr": ":9000",
		"store": "redis",
		"redis_addr": "cache:6379",
		"auth_delay": "500ms",
		"status_interval": 1000000000
	}`)

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", opts.Addr)
	assert.Equal(t, StoreRedis, opts.Store)
	assert.Equal(t, "cache:6379", opts.RedisAddr)
	assert.Equal(t, 500*time.Millisecond, opts.AuthDelay.Std())
	assert.Equal(t, time.Second, opts.StatusInterval.Std())
	assert.Equal(t, "info", opts.LogLevel, "unset keys keep defaults")
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
addr: ":7000"
store: postgres
database_dsn: postgres://localhost/guardian
display_delay: 2s
match_rate: 0.5
`)

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", opts.Addr)
	assert.Equal(t, StorePostgres, opts.Store)
	assert.Equal(t, 2*time.Second, opts.DisplayDelay.Std())
	assert.Equal(t, 0.5, opts.MatchRate)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.json", `{"addr": ":9000", "log_level": "debug"}`)
	t.Setenv("SERVER_ADDRESS", ":1234")
	t.Setenv("MATCH_RATE", "0.9")

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":1234", opts.Addr)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, 0.9, opts.MatchRate)
}

func TestLoad_BadMatchRateEnv(t *testing.T) {
	t.Setenv("MATCH_RATE", "most")

	_, err := Load(writeFile(t, "config.json", `{}`))
	assert.ErrorContains(t, err, "invalid MATCH_RATE")
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	path := writeFile(t, "env.json", `{"addr": ":5555"}`)
	t.Setenv("CONFIG", path)

	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5555", opts.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "c.json", `{`},
		{"bad duration", "c.json", `{"auth_delay": "soon"}`},
		{"unknown store", "c.json", `{"store": "etcd"}`},
		{"postgres without dsn", "c.yml", "store: postgres\n"},
		{"rate out of range", "c.json", `{"match_rate": 1.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}
