package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"settings-lite/internal/tree"
)

// List output formats.
const (
	formatFlat = "flat"
	formatJSON = "json"
	formatYAML = "yaml"
)

// newListCmd creates the list command.
func newListCmd(provider *AppProvider) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List settings",
		Long: `List every stored setting, or only those under a dotted prefix.

The flat format prints one "path = value" line per leaf; json and yaml
print the nested tree. Defaults are not included.

Examples:
  settings list
  settings list mail
  settings list --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			all, err := app.Store.All(ctx)
			if err != nil {
				return fmt.Errorf("listing settings: %w", err)
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
				sub := tree.Get(all, prefix, tree.Null())
				switch {
				case !tree.Has(all, prefix):
					all = tree.New()
				case sub.Kind() == tree.KindMap:
					all = sub.Tree()
				default:
					// a leaf lists as a single entry
					leaf := tree.New()
					_ = tree.Set(leaf, prefix, sub)
					all, prefix = leaf, ""
				}
			}

			if format == "" {
				format = formatFlat
				if app.JSON {
					format = formatJSON
				}
			}

			switch format {
			case formatJSON:
				return writeJSON(app.Out, all)
			case formatYAML:
				data, err := yaml.Marshal(all)
				if err != nil {
					return fmt.Errorf("encoding settings: %w", err)
				}
				_, err = app.Out.Write(data)
				return err
			case formatFlat:
				entries := tree.Flatten(all)
				if len(entries) == 0 {
					fmt.Fprintln(app.Out, "No settings stored")
					return nil
				}
				for _, e := range entries {
					path := e.Path
					if prefix != "" {
						path = tree.Join(prefix, path)
					}
					fmt.Fprintf(app.Out, "%s = %s\n", path, e.Value.String())
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (allowed: flat, json, yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Output format: flat, json or yaml (default flat, or json with --json)")

	return cmd
}
