package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// newForgetCmd creates the "forget" command.
func newForgetCmd(provider *AppProvider) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "forget <key> | --all",
		Short: "Remove settings",
		Long: `Remove the setting at a dotted key, or every setting with --all, and save.

Forgetting a key that is not set is not an error.

Examples:
  settings forget mail.smtp.password
  settings forget --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all does not take a key")
			}
			if !all && len(args) != 1 {
				return errors.New("forget takes exactly one key, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			target := "all settings"
			if all {
				err = app.Store.ForgetAll(ctx)
			} else {
				target = args[0]
				err = app.Store.Forget(ctx, target)
			}
			if err != nil {
				return fmt.Errorf("forgetting %s: %w", target, err)
			}
			if err := app.Store.Save(ctx); err != nil {
				return err
			}

			if app.JSON {
				result := map[string]any{"forgotten": target}
				if all {
					result = map[string]any{"forgotten_all": true}
				}
				return writeJSON(app.Out, result)
			}

			fmt.Fprintf(app.Out, "%s %s\n", app.WarnColor("Forgot"), target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every setting")

	return cmd
}
