// Package config loads client settings from .env, MEDICAI_* variables and flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "MEDICAI"

// Keys shared by viper, flags and env.
const (
	KeyBackendURL    = "backend_url"
	KeyQueryTimeout  = "query_timeout"
	KeyUploadTimeout = "upload_timeout"
	KeyLogFile       = "log_file"
	KeyEnv           = "env"
	KeyVerbose       = "verbose"
	KeyTranscriptDB  = "transcript_db"
	KeyBridgeAddr    = "bridge_addr"
	KeyWatchDir      = "watch_dir"
)

// Config is the resolved client configuration.
type Config struct {
	BackendURL    string
	QueryTimeout  time.Duration
	UploadTimeout time.Duration
	LogFile       string
	Env           string
	Verbose       bool
	TranscriptDB  string
	BridgeAddr    string
	WatchDir      string
}

// IsProduction reports whether logs should be machine-readable.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackendURL, "http://localhost:8000")
	v.SetDefault(KeyQueryTimeout, 60*time.Second)
	v.SetDefault(KeyUploadTimeout, 5*time.Minute)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyTranscriptDB, "")
	v.SetDefault(KeyBridgeAddr, "127.0.0.1:8090")
	v.SetDefault(KeyWatchDir, "")
}

// Load reads envFiles (".env" when none are given; missing files are
// ignored), then resolves every key through v.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	cfg := &Config{
		BackendURL:    v.GetString(KeyBackendURL),
		QueryTimeout:  v.GetDuration(KeyQueryTimeout),
		UploadTimeout: v.GetDuration(KeyUploadTimeout),
		LogFile:       v.GetString(KeyLogFile),
		Env:           v.GetString(KeyEnv),
		Verbose:       v.GetBool(KeyVerbose),
		TranscriptDB:  v.GetString(KeyTranscriptDB),
		BridgeAddr:    v.GetString(KeyBridgeAddr),
		WatchDir:      v.GetString(KeyWatchDir),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", c.BackendURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend url %q: want http(s)://host[:port]", c.BackendURL)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %s", c.QueryTimeout)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("upload timeout must be positive, got %s", c.UploadTimeout)
	}
	return nil
}
