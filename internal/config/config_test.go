package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "formflow_session", cfg.Server.CookieName)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxMemory)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.False(t, cfg.Outbox.Enabled)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
storage:
  driver: sqlite
  dsn: /tmp/wizard.db
outbox:
  enabled: true
  backoff: 250ms
log:
  format: json
`), 0o600))

	t.Setenv("FORMFLOW_SERVER_COOKIE_NAME", "wiz")
	t.Setenv("FORMFLOW_OUTBOX_WORKERS", "3")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "wiz", cfg.Server.CookieName)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/wizard.db", cfg.Storage.DSN)
	assert.True(t, cfg.Outbox.Enabled)
	assert.Equal(t, 3, cfg.Outbox.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.Backoff)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestNewViper_MissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("FORMFLOW_STORAGE_DRIVER", "cassandra")
	t.Setenv("FORMFLOW_LOG_LEVEL", "loud")

	v, err := NewViper("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "storage.driver", verrs[0].Field)
	assert.Equal(t, "log.level", verrs[1].Field)
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"relative base path", func(c *Config) { c.Server.BasePath = "wizard" }, "server.base_path"},
		{"zero max memory", func(c *Config) { c.Server.MaxMemory = 0 }, "server.max_memory"},
		{"sqlite without dsn", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.dsn"},
		{"mongo without database", func(c *Config) {
			c.Storage.Driver = "mongo"
			c.Storage.DSN = "mongodb://localhost"
			c.Storage.Database = ""
		}, "storage.database"},
		{"negative files size", func(c *Config) { c.Files.MaxSize = -1 }, "files.max_size"},
		{"outbox redis without dsn", func(c *Config) {
			c.Outbox.Enabled = true
			c.Outbox.Driver = "redis"
		}, "outbox.dsn"},
		{"outbox zero workers", func(c *Config) {
			c.Outbox.Enabled = true
			c.Outbox.Workers = 0
		}, "outbox.workers"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_DisabledOutboxIsNotChecked(t *testing.T) {
	cfg := Default()
	cfg.Outbox.Driver = "kafka"
	assert.Empty(t, cfg.Validate())
}

func TestValidationErrors_Single(t *testing.T) {
	errs := ValidationErrors{{Field: "log.level", Value: "x", Message: "bad"}}
	assert.Equal(t, "log.level: bad (got: x)", errs.Error())
	assert.Equal(t, "", ValidationErrors(nil).Error())
}
