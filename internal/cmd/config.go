package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"settings-lite/internal/config"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the settings configuration",
		Long: `Inspect the configuration that selects and tunes the settings backend.

The configuration is resolved from --config (or SETTINGS_CONFIG),
SETTINGS_* environment variables, .env and .env.local, and flags.
Neither subcommand opens the backend.

Subcommands:
  show      Print the effective configuration
  validate  Validate the effective configuration`,
	}

	cmd.AddCommand(newConfigShowCmd(provider))
	cmd.AddCommand(newConfigValidateCmd(provider))

	return cmd
}

// loadConfig resolves the configuration without opening a backend.
func (p *AppProvider) loadConfig() (config.Config, error) {
	v := p.Viper
	if v == nil {
		v = config.NewViper()
	}
	return config.Load(v, p.ConfigFile)
}

func (p *AppProvider) stdout() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

// newConfigShowCmd creates the "config show" subcommand.
func newConfigShowCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML, or JSON with --json.

A password in database.url is masked.

Examples:
  settings config show
  settings --driver database config show --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := provider.loadConfig()
			if err != nil {
				return err
			}
			cfg.Database.URL = redactURL(cfg.Database.URL)
			out := provider.stdout()

			if provider.JSONOutput {
				return writeJSON(out, map[string]any{
					"config":   cfg,
					"defaults": cfg.Defaults,
				})
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
			if cfg.Defaults.Len() > 0 {
				data, err := yaml.Marshal(map[string]any{"defaults": cfg.Defaults})
				if err != nil {
					return fmt.Errorf("encoding defaults: %w", err)
				}
				_, err = out.Write(data)
				return err
			}
			return nil
		},
	}

	return cmd
}

// newConfigValidateCmd creates the "config validate" subcommand.
func newConfigValidateCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate the effective configuration.

Checks the driver name, the fields the selected driver needs and the cache
settings. Every problem is reported, not only the first.

Examples:
  settings config validate
  settings config validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := provider.loadConfig()
			if err != nil {
				return err
			}
			out := provider.stdout()

			issues := make([]string, 0)
			if verr := config.Validate(cfg); verr != nil {
				var merr *multierror.Error
				if errors.As(verr, &merr) {
					for _, e := range merr.Errors {
						issues = append(issues, e.Error())
					}
				} else {
					issues = append(issues, verr.Error())
				}
			}

			if provider.JSONOutput {
				if err := writeJSON(out, map[string]any{
					"valid":  len(issues) == 0,
					"issues": issues,
				}); err != nil {
					return err
				}
				if len(issues) > 0 {
					return fmt.Errorf("configuration has %d error(s)", len(issues))
				}
				return nil
			}

			if len(issues) == 0 {
				fmt.Fprintln(out, "Configuration is valid.")
				return nil
			}

			fmt.Fprintln(out, "Configuration errors:")
			for _, e := range issues {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return fmt.Errorf("configuration has %d error(s)", len(issues))
		},
	}

	return cmd
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
