package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSetCmd creates the "set" command.
func newSetCmd(provider *AppProvider) *cobra.Command {
	var asString bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a setting value",
		Long: `Set the value at a dotted key and save.

The value is parsed as JSON when it is valid JSON, so numbers, booleans,
null, arrays and objects keep their type. Anything else is stored as a
string; use --string to force a string.

Examples:
  settings set site.name "My Site"
  settings set mail.port 587
  settings set features '{"beta":true,"limit":10}'
  settings set zip 01234 --string`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			key := args[0]
			value := parseValue(args[1], asString)

			if err := app.Store.Set(ctx, key, value); err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
			if err := app.Store.Save(ctx); err != nil {
				return err
			}

			if app.JSON {
				return writeJSON(app.Out, map[string]any{
					"key":   key,
					"value": value,
				})
			}

			fmt.Fprintf(app.Out, "%s %s = %s\n", app.SuccessColor("Set"), key, value.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asString, "string", false, "Store the value as a string without JSON parsing")

	return cmd
}
