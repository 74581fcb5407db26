package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"settings-lite/internal/tree"
)

// newGetCmd creates the "get" command.
func newGetCmd(provider *AppProvider) *cobra.Command {
	var def string

	cmd := &cobra.Command{
		Use:   "get <key> [key...]",
		Short: "Get setting values",
		Long: `Get the value stored at one or more dotted keys.

Scalars print bare; lists and nested settings print as JSON. A missing key
falls back to --default, then to the configured defaults, and otherwise
prints "key (not set)".

Examples:
  settings get mail.smtp.host
  settings get mail --json
  settings get site.name site.url --default unknown`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			hasDef := cmd.Flags().Changed("default")

			if len(args) > 1 {
				var defs map[string]tree.Value
				if hasDef {
					defs = make(map[string]tree.Value, len(args))
					for _, k := range args {
						defs[k] = parseValue(def, false)
					}
				}
				got, err := app.Store.GetMany(ctx, args, defs)
				if err != nil {
					return err
				}
				if app.JSON {
					return writeJSON(app.Out, got)
				}
				for _, k := range args {
					fmt.Fprintf(app.Out, "%s = %s\n", k, tree.Get(got, k, tree.Null()).String())
				}
				return nil
			}

			key := args[0]
			found, err := app.Store.Has(ctx, key)
			if err != nil {
				return err
			}
			var value tree.Value
			if hasDef {
				value, err = app.Store.GetDefault(ctx, key, parseValue(def, false))
			} else {
				value, err = app.Store.Get(ctx, key)
			}
			if err != nil {
				return err
			}
			set := found || hasDef || tree.Has(app.Store.Defaults(), key)

			if app.JSON {
				result := map[string]any{
					"key":   key,
					"value": value,
					"found": found,
				}
				return writeJSON(app.Out, result)
			}

			if set {
				fmt.Fprintln(app.Out, value.String())
			} else {
				fmt.Fprintf(app.Out, "%s (not set)\n", key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&def, "default", "", "Value to print when a key is missing (parsed like set)")

	return cmd
}
