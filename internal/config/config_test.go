package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settings-lite/internal/tree"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfig, "")
	chdir(t, t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want.Driver, cfg.Driver)
	assert.Equal(t, want.Path, cfg.Path)
	assert.Equal(t, want.Database, cfg.Database)
	assert.Equal(t, want.Cache, cfg.Cache)
	assert.Equal(t, 0, cfg.Defaults.Len())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
driver: database
database:
  table: app_settings
  timestamp-format: epoch
  extra-columns:
    tenant: acme
cache:
  enabled: true
  ttl: 1m
defaults:
  zeta: last
  Theme:
    color: red
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, DriverDatabase, cfg.Driver)
	assert.Equal(t, "app_settings", cfg.Database.Table)
	assert.Equal(t, "key", cfg.Database.KeyColumn, "unset keys keep defaults")
	assert.Equal(t, TimestampEpoch, cfg.Database.TimestampFormat)
	assert.Equal(t, map[string]any{"tenant": "acme"}, cfg.Database.ExtraColumns)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)

	// defaults keep their case and order
	assert.Equal(t, []string{"zeta", "Theme"}, cfg.Defaults.Keys())
	assert.Equal(t, "red", tree.Get(cfg.Defaults, "Theme.color", tree.Null()).String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "driver: yaml\npath: from-file.yaml\n")
	t.Setenv("SETTINGS_PATH", "from-env.yaml")
	t.Setenv("SETTINGS_CACHE_TTL", "2s")
	t.Setenv("SETTINGS_DATABASE_KEY_COLUMN", "name")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, DriverYAML, cfg.Driver)
	assert.Equal(t, "from-env.yaml", cfg.Path)
	assert.Equal(t, 2*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "name", cfg.Database.KeyColumn)
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	path := writeConfig(t, "driver: memory\n")
	t.Setenv(EnvConfig, path)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Driver)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(EnvConfig, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SETTINGS_DRIVER=memory\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SETTINGS_DRIVER") })

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	cfg := Default()
	cfg.Driver = DriverYAML
	cfg.Path = "data/settings.yaml"
	cfg.Defaults = tree.MustFromMap(map[string]any{"site": map[string]any{"name": "demo"}})
	require.NoError(t, Write(path, cfg))

	got, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, DriverYAML, got.Driver)
	assert.Equal(t, "data/settings.yaml", got.Path)
	assert.Equal(t, cfg.Cache.TTL, got.Cache.TTL)
	assert.True(t, cfg.Defaults.Equal(got.Defaults))
}

func TestDefaultValues(t *testing.T) {
	defaults := DefaultValues()
	assert.Equal(t, "json", defaults["driver"])
	assert.Equal(t, "settings", defaults["database.table"])
	assert.Equal(t, "datetime", defaults["database.timestamp-format"])
	assert.Equal(t, "setting:cache", defaults["cache.key"])
	assert.Equal(t, 15*time.Second, defaults["cache.ttl"])
	assert.Equal(t, true, defaults["cache.forget-on-write"])
}
