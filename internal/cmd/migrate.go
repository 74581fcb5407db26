package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"settings-lite/internal/settings/relstore/migrations"
)

// newMigrateCmd creates the migrate command.
func newMigrateCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the settings table",
		Long: `Apply the embedded schema migrations to the database used by the
database driver. The migrations create the default "settings" table with a
unique key column, a text value column and created_at/updated_at.

Running migrate on an up-to-date database does nothing. Tables with a
custom layout (--table, extra columns) are not managed here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			pool, err := app.requirePool()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := migrations.RunMigrationsUp(ctx, pool); err != nil {
				return err
			}
			version, dirty, err := migrations.CurrentVersion(ctx, pool)
			if err != nil {
				return fmt.Errorf("reading migration version: %w", err)
			}

			if app.JSON {
				return writeJSON(app.Out, map[string]any{
					"status":  "ok",
					"version": version,
					"dirty":   dirty,
				})
			}

			fmt.Fprintf(app.Out, "%s schema at version %d\n", app.SuccessColor("migrate:"), version)
			return nil
		},
	}

	return cmd
}
