package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"settings-lite/internal/config"
	"settings-lite/internal/settings"
)

// AppProvider lazily initializes the App on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	ConfigFile string
	JSONOutput bool
	Viper      *viper.Viper
	Out        io.Writer
	Err        io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init(context.Background())
		}
	})
	return p.app, p.err
}

// Close saves and releases the App if it was initialized.
func (p *AppProvider) Close(ctx context.Context) error {
	if p.app == nil {
		return nil
	}
	return p.app.Close(ctx)
}

// NewTestProvider creates a provider pre-initialized with the given App.
// Used for testing commands with a mock/test App.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{
		app:        app,
		JSONOutput: app.JSON,
		Out:        app.Out,
		Err:        app.Err,
	}
}

func (p *AppProvider) init(ctx context.Context) (*App, error) {
	v := p.Viper
	if v == nil {
		v = config.NewViper()
	}
	cfg, err := config.Load(v, p.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	logger, closeLog, err := newLogger(errOut, cfg.Debug, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	app := &App{
		Config: cfg,
		Logger: logger,
		Out:    out,
		Err:    errOut,
		JSON:   p.JSONOutput,
	}
	app.onClose(closeLog)

	backend, err := openBackend(ctx, app, cfg)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.Backend = backend
	app.Store = settings.New(backend,
		settings.WithDefaults(cfg.Defaults),
		settings.WithLogger(logger))

	logger.Debug("settings backend ready",
		slog.String("driver", cfg.Driver),
		slog.Bool("cache", cfg.Cache.Enabled))
	return app, nil
}

// Execute runs the CLI.
func Execute() error {
	provider := &AppProvider{
		Out: os.Stdout,
		Err: os.Stderr,
	}

	rootCmd := newRootCmd(provider)
	err := rootCmd.Execute()
	if cerr := provider.Close(context.Background()); err == nil {
		err = cerr
	}
	return err
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write persistent hierarchical settings",
		Long: `Settings stores nested key/value settings addressed by dotted paths
(for example "mail.smtp.host") in a JSON or YAML file, a database table
or memory.

Configuration is read from --config (or SETTINGS_CONFIG), SETTINGS_*
environment variables, .env and .env.local, and the flags below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if provider.Viper == nil {
		provider.Viper = config.NewViper()
	}
	v := provider.Viper

	// Global flags - these populate the provider config
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&provider.JSONOutput, "json", false, "Output in JSON format")
	flags.StringVar(&provider.ConfigFile, "config", "", "Path to a YAML config file")
	flags.String("driver", config.DriverJSON, "Storage driver: json, yaml, database or memory")
	flags.String("path", "settings.json", "Settings file for the json and yaml drivers")
	flags.String("table", "settings", "Table for the database driver")
	flags.Bool("cache", false, "Serve reads through the in-process cache")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-file", "", "Also write JSON logs to this file")

	for key, flag := range map[string]string{
		"driver":         "driver",
		"path":           "path",
		"database.table": "table",
		"cache.enabled":  "cache",
		"debug":          "debug",
		"log-file":       "log-file",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	// Register all commands
	rootCmd.AddCommand(newGetCmd(provider))
	rootCmd.AddCommand(newSetCmd(provider))
	rootCmd.AddCommand(newForgetCmd(provider))
	rootCmd.AddCommand(newListCmd(provider))
	rootCmd.AddCommand(newMigrateCmd(provider))
	rootCmd.AddCommand(newStatsCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))
	rootCmd.AddCommand(newVersionCmd(provider))

	return rootCmd
}
