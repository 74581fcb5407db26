package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	validDrivers          = []string{DriverJSON, DriverYAML, DriverDatabase, DriverMemory}
	validTimestampFormats = []string{TimestampDateTime, TimestampEpoch}
)

// Validate checks cfg and returns an error describing every problem found,
// or nil if the configuration is usable.
func Validate(cfg Config) error {
	var result *multierror.Error

	if !contains(validDrivers, cfg.Driver) {
		result = multierror.Append(result, fmt.Errorf(
			"driver: invalid value %q (allowed: %s)", cfg.Driver, strings.Join(validDrivers, ", ")))
	}

	switch cfg.Driver {
	case DriverJSON, DriverYAML:
		if cfg.Path == "" {
			result = multierror.Append(result, fmt.Errorf("path: required for the %s driver", cfg.Driver))
		}
	case DriverDatabase:
		db := cfg.Database
		required := []struct{ name, val string }{
			{"database.table", db.Table},
			{"database.key-column", db.KeyColumn},
			{"database.value-column", db.ValueColumn},
		}
		for _, r := range required {
			if r.val == "" {
				result = multierror.Append(result, fmt.Errorf("%s: must not be empty", r.name))
			}
		}
		if db.KeyColumn != "" && db.KeyColumn == db.ValueColumn {
			result = multierror.Append(result, fmt.Errorf(
				"database.value-column: must differ from database.key-column, both are %q", db.KeyColumn))
		}
		if !contains(validTimestampFormats, db.TimestampFormat) {
			result = multierror.Append(result, fmt.Errorf(
				"database.timestamp-format: invalid value %q (allowed: %s)",
				db.TimestampFormat, strings.Join(validTimestampFormats, ", ")))
		}
		for col := range db.ExtraColumns {
			if col == db.KeyColumn || col == db.ValueColumn {
				result = multierror.Append(result, fmt.Errorf(
					"database.extra-columns: %q collides with the key or value column", col))
			}
		}
	}

	if cfg.Cache.TTL < 0 {
		result = multierror.Append(result, fmt.Errorf("cache.ttl: must not be negative, got %s", cfg.Cache.TTL))
	}
	if cfg.Cache.Enabled && cfg.Cache.Key == "" {
		result = multierror.Append(result, fmt.Errorf("cache.key: must not be empty when the cache is enabled"))
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = formatErrors
	return result
}

func formatErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return "config validation failed:\n  " + strings.Join(msgs, "\n  ")
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
