package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of settings-lite. It can be overridden at build
// time via -ldflags "-X settings-lite/internal/cmd.Version=1.2.3".
var Version = "0.3.0"

func newVersionCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := provider.stdout()
			if provider.JSONOutput {
				return writeJSON(out, map[string]string{
					"version": Version,
				})
			}
			fmt.Fprintf(out, "settings version %s\n", Version)
			return nil
		},
	}
	return cmd
}
