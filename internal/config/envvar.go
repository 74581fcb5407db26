package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"settings-lite/internal/settings/relstore/pgdriver"
)

// Environment variable names for settings-lite configuration. Any config
// key can also be set as SETTINGS_<KEY>, with dots and dashes replaced by
// underscores (SETTINGS_CACHE_TTL, SETTINGS_DATABASE_KEY_COLUMN).
const (
	EnvPrefix         = "SETTINGS"
	EnvConfig         = "SETTINGS_CONFIG" // Path to the YAML config file
	EnvDebug          = "SETTINGS_DEBUG"  // Enable debug logging ("1" or "true")
	EnvDatabasePrefix = "SETTINGS_DB"     // SETTINGS_DB_URL or SETTINGS_DB_HOST, _PORT, _USER, _PASSWORD, _DBNAME, _SSLMODE
)

// LoadDotEnv loads .env and .env.local from the working directory when
// present. Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// NewViper returns a viper instance reading SETTINGS_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// DatabaseURL returns database.url when set, and otherwise builds one from
// the SETTINGS_DB_* variables.
func (c Config) DatabaseURL() (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	return pgdriver.DatabaseURLFromEnv(EnvDatabasePrefix)
}
