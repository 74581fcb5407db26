package cmd

import (
	"context"
	"fmt"

	"settings-lite/internal/config"
	"settings-lite/internal/settings"
	"settings-lite/internal/settings/cached"
	"settings-lite/internal/settings/filestore"
	"settings-lite/internal/settings/memstore"
	"settings-lite/internal/settings/relstore"
	"settings-lite/internal/settings/relstore/migrations"
	"settings-lite/internal/settings/relstore/pgdriver"
)

// memoryDataset names the shared in-memory dataset used by --driver memory.
const memoryDataset = "cli"

// openBackend builds the backend selected by cfg and attaches it to app:
// the storage driver, instrumented, optionally behind the read cache.
func openBackend(ctx context.Context, app *App, cfg config.Config) (settings.Backend, error) {
	var b settings.Backend
	switch cfg.Driver {
	case config.DriverJSON, config.DriverYAML:
		codec := filestore.JSON
		if cfg.Driver == config.DriverYAML {
			codec = filestore.YAML
		}
		opts := []filestore.Option{filestore.WithCodec(codec)}
		if cfg.Indent != "" {
			opts = append(opts, filestore.WithIndent(cfg.Indent))
		}
		fs, err := filestore.New(cfg.Path, opts...)
		if err != nil {
			return nil, err
		}
		b = fs

	case config.DriverMemory:
		b = memstore.Shared(memoryDataset)

	case config.DriverDatabase:
		url, err := cfg.DatabaseURL()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", settings.ErrConfiguration, err)
		}
		pool, err := pgdriver.NewConnectionPool(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%w: connecting to database: %w", settings.ErrConfiguration, err)
		}
		app.Pool = pool
		app.onClose(pool.Close)

		if cfg.Database.Migrate {
			if err := migrations.RunMigrationsUp(ctx, pool); err != nil {
				return nil, err
			}
		}

		db := cfg.Database
		format, err := relstore.ParseTimestampFormat(db.TimestampFormat)
		if err != nil {
			return nil, err
		}
		rs, err := relstore.New(pgdriver.New(pool),
			relstore.WithTable(db.Table),
			relstore.WithKeyColumn(db.KeyColumn),
			relstore.WithValueColumn(db.ValueColumn),
			relstore.WithTimestamps(db.CreatedColumn, db.UpdatedColumn),
			relstore.WithTimestampFormat(format),
			relstore.WithExtraColumns(db.ExtraColumns),
		)
		if err != nil {
			return nil, err
		}
		b = rs

	default:
		return nil, fmt.Errorf("%w: unknown driver %q", settings.ErrConfiguration, cfg.Driver)
	}

	b = settings.Instrument(cfg.Driver, b)

	if cfg.Cache.Enabled {
		cache := cached.NewTTLCache()
		app.onClose(cache.Stop)
		b = cached.New(b, cache,
			cached.WithKey(cfg.Cache.Key),
			cached.WithTTL(cfg.Cache.TTL),
			cached.WithForgetOnWrite(cfg.Cache.ForgetOnWrite),
		)
	}
	return b, nil
}
