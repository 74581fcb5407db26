package config

import (
	"github.com/spf13/viper"
)

// DefaultValues returns the default config as flat viper keys.
func DefaultValues() map[string]any {
	return flatten(Default())
}

func flatten(cfg Config) map[string]any {
	return map[string]any{
		"driver":                    cfg.Driver,
		"path":                      cfg.Path,
		"indent":                    cfg.Indent,
		"debug":                     cfg.Debug,
		"log-file":                  cfg.LogFile,
		"database.url":              cfg.Database.URL,
		"database.table":            cfg.Database.Table,
		"database.key-column":       cfg.Database.KeyColumn,
		"database.value-column":     cfg.Database.ValueColumn,
		"database.created-column":   cfg.Database.CreatedColumn,
		"database.updated-column":   cfg.Database.UpdatedColumn,
		"database.timestamp-format": cfg.Database.TimestampFormat,
		"database.migrate":          cfg.Database.Migrate,
		"cache.enabled":             cfg.Cache.Enabled,
		"cache.key":                 cfg.Cache.Key,
		"cache.ttl":                 cfg.Cache.TTL,
		"cache.forget-on-write":     cfg.Cache.ForgetOnWrite,
	}
}

// setDefaults registers every key of cfg with v. Registering a default is
// also what lets AutomaticEnv find a key during Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	for k, val := range flatten(cfg) {
		v.SetDefault(k, val)
	}
}
