// Package config handles settings-lite configuration loading and defaults.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML config file, SETTINGS_* environment variables (including .env and
// .env.local) and command-line flags bound by the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"settings-lite/internal/tree"
)

// Backend drivers.
const (
	DriverJSON     = "json"
	DriverYAML     = "yaml"
	DriverDatabase = "database"
	DriverMemory   = "memory"
)

// Timestamp formats for the database driver's created and updated columns.
const (
	TimestampDateTime = "datetime"
	TimestampEpoch    = "epoch"
)

// Config is the resolved configuration.
type Config struct {
	Driver   string         `mapstructure:"driver" yaml:"driver" json:"driver"`
	Path     string         `mapstructure:"path" yaml:"path" json:"path"`
	Indent   string         `mapstructure:"indent" yaml:"indent" json:"indent"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database" json:"database"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache" json:"cache"`
	Debug    bool           `mapstructure:"debug" yaml:"debug" json:"debug"`
	LogFile  string         `mapstructure:"log-file" yaml:"log-file" json:"log_file"`

	// Defaults is read straight from the config file so key case and order
	// survive; viper folds keys to lower case.
	Defaults *tree.Tree `mapstructure:"-" yaml:"-" json:"-"`
}

// DatabaseConfig selects the table layout used by the database driver.
// TimestampFormat is TimestampDateTime for DATETIME and TIMESTAMP columns or
// TimestampEpoch for integer seconds.
type DatabaseConfig struct {
	URL             string         `mapstructure:"url" yaml:"url" json:"url"`
	Table           string         `mapstructure:"table" yaml:"table" json:"table"`
	KeyColumn       string         `mapstructure:"key-column" yaml:"key-column" json:"key_column"`
	ValueColumn     string         `mapstructure:"value-column" yaml:"value-column" json:"value_column"`
	CreatedColumn   string         `mapstructure:"created-column" yaml:"created-column" json:"created_column"`
	UpdatedColumn   string         `mapstructure:"updated-column" yaml:"updated-column" json:"updated_column"`
	TimestampFormat string         `mapstructure:"timestamp-format" yaml:"timestamp-format" json:"timestamp_format"`
	ExtraColumns    map[string]any `mapstructure:"extra-columns" yaml:"extra-columns" json:"extra_columns"`
	Migrate         bool           `mapstructure:"migrate" yaml:"migrate" json:"migrate"`
}

// CacheConfig controls the read cache in front of the backend.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Key           string        `mapstructure:"key" yaml:"key" json:"key"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	ForgetOnWrite bool          `mapstructure:"forget-on-write" yaml:"forget-on-write" json:"forget_on_write"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Driver: DriverJSON,
		Path:   "settings.json",
		Database: DatabaseConfig{
			Table:           "settings",
			KeyColumn:       "key",
			ValueColumn:     "value",
			CreatedColumn:   "created_at",
			UpdatedColumn:   "updated_at",
			TimestampFormat: TimestampDateTime,
		},
		Cache: CacheConfig{
			Key:           "setting:cache",
			TTL:           15 * time.Second,
			ForgetOnWrite: true,
		},
		Defaults: tree.New(),
	}
}

// Load resolves the configuration with v. configFile may be empty, in which
// case SETTINGS_CONFIG is consulted and no file is read when it is unset.
// Flags should be bound to v before calling Load.
func Load(v *viper.Viper, configFile string) (Config, error) {
	LoadDotEnv()
	setDefaults(v, Default())

	if configFile == "" {
		configFile = os.Getenv(EnvConfig)
	}
	defaults := tree.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", configFile, err)
		}
		d, err := readDefaults(configFile)
		if err != nil {
			return Config{}, err
		}
		defaults = d
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Defaults = defaults
	return cfg, nil
}

// readDefaults reads the "defaults" section of the config file.
func readDefaults(path string) (*tree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var doc struct {
		Defaults *tree.Tree `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing defaults in %s: %w", path, err)
	}
	if doc.Defaults == nil {
		return tree.New(), nil
	}
	return doc.Defaults, nil
}

// Write writes cfg as YAML to path, the format Load reads.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if cfg.Defaults.Len() > 0 {
		section, err := yaml.Marshal(map[string]*tree.Tree{"defaults": cfg.Defaults})
		if err != nil {
			return fmt.Errorf("encoding defaults: %w", err)
		}
		data = append(data, section...)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
