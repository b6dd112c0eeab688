package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "portal", cfg.Database.Snapshot)
	assert.True(t, cfg.Database.IsEmbedded())
	assert.Equal(t, time.Hour, cfg.Storage.URLExpiration)
	assert.False(t, cfg.Lifecycle.Strict)
	assert.Equal(t, "memory", cfg.Events.Driver)
	assert.Equal(t, time.Duration(0), cfg.Store.RefreshInterval)
	assert.False(t, cfg.Storage.S3.Enabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: postgres
  host: db.internal
lifecycle:
  strict: true
storage:
  s3:
    bucket: manuscripts
`)
	t.Setenv("JMRH_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "environment wins over file")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
	assert.True(t, cfg.Lifecycle.Strict)
	assert.True(t, cfg.Storage.S3.Enabled())
	assert.Equal(t, "0.0.0.0:9100", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, "{}\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			errMsg: "server.port",
		},
		{
			name:   "unknown driver",
			mutate: func(c *Config) { c.Database.Driver = "mysql" },
			errMsg: "database.driver",
		},
		{
			name:   "short session secret",
			mutate: func(c *Config) { c.Auth.SessionSecret = "short" },
			errMsg: "auth.session_secret",
		},
		{
			name:   "admin email without password",
			mutate: func(c *Config) { c.Auth.Admin.Email = "chief@jmrh.org" },
			errMsg: "auth.admin",
		},
		{
			name:   "unknown events driver",
			mutate: func(c *Config) { c.Events.Driver = "nats" },
			errMsg: "events.driver",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			errMsg: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
