package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settings-lite/internal/settings/relstore/pgdriver"
)

func TestDatabaseURL_FromConfig(t *testing.T) {
	cfg := Default()
	cfg.Database.URL = "postgresql://cfg@db/app"
	t.Setenv("SETTINGS_DB_URL", "postgresql://env@db/app")

	got, err := cfg.DatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgresql://cfg@db/app", got)
}

func TestDatabaseURL_FromEnv(t *testing.T) {
	t.Setenv("SETTINGS_DB_URL", "")
	t.Setenv("SETTINGS_DB_HOST", "db")
	t.Setenv("SETTINGS_DB_PORT", "6543")
	t.Setenv("SETTINGS_DB_DBNAME", "app")

	got, err := Default().DatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgresql://db:6543/app", got)
}

func TestDatabaseURL_NotConfigured(t *testing.T) {
	t.Setenv("SETTINGS_DB_URL", "")
	t.Setenv("SETTINGS_DB_HOST", "")
	t.Setenv("SETTINGS_DB_DBNAME", "")

	_, err := Default().DatabaseURL()
	assert.ErrorIs(t, err, pgdriver.ErrDatabaseNotConfigured)
}

func TestNewViper_EnvKeys(t *testing.T) {
	t.Setenv("SETTINGS_LOG_FILE", "/tmp/settings.log")
	v := NewViper()
	assert.Equal(t, "/tmp/settings.log", v.GetString("log-file"))
}
