package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 60*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 5*time.Minute, cfg.UploadTimeout)
	assert.Equal(t, "127.0.0.1:8090", cfg.BridgeAddr)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MEDICAI_BACKEND_URL", "https://medicai.example.com")
	t.Setenv("MEDICAI_QUERY_TIMEOUT", "15s")
	t.Setenv("MEDICAI_ENV", "production")
	t.Setenv("MEDICAI_TRANSCRIPT_DB", "/tmp/t.db")

	cfg, err := Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "https://medicai.example.com", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.QueryTimeout)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/tmp/t.db", cfg.TranscriptDB)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEDICAI_WATCH_DIR=/srv/inbox\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MEDICAI_WATCH_DIR") })

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/inbox", cfg.WatchDir)
}

func TestLoad_ExplicitValueWins(t *testing.T) {
	t.Setenv("MEDICAI_BACKEND_URL", "http://from-env:8000")
	v := viper.New()
	v.Set(KeyBackendURL, "http://from-flag:9000")

	cfg, err := Load(v, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:9000", cfg.BackendURL)
}

func TestValidate(t *testing.T) {
	valid := Config{BackendURL: "http://localhost:8000", QueryTimeout: time.Second, UploadTimeout: time.Second}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing scheme", func(c *Config) { c.BackendURL = "localhost:8000" }},
		{"ftp scheme", func(c *Config) { c.BackendURL = "ftp://host" }},
		{"empty url", func(c *Config) { c.BackendURL = "" }},
		{"zero query timeout", func(c *Config) { c.QueryTimeout = 0 }},
		{"negative upload timeout", func(c *Config) { c.UploadTimeout = -time.Second }},
	}

	require.NoError(t, valid.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
