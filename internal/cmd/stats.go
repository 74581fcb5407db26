package cmd

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"

	"settings-lite/internal/tree"
)

// StatsSummary describes the stored settings.
type StatsSummary struct {
	Driver       string `json:"driver"`
	Cached       bool   `json:"cached"`
	TopLevelKeys int    `json:"top_level_keys"`
	Leaves       int    `json:"leaves"`
	MaxDepth     int    `json:"max_depth"`
	Defaults     int    `json:"defaults"`
}

// newStatsCmd creates the stats command.
func newStatsCmd(provider *AppProvider) *cobra.Command {
	var prometheus bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics",
		Long: `Display statistics about the stored settings.

With --prometheus the backend counters and latency histograms collected
during this run are printed in Prometheus text format instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			all, err := app.Store.All(ctx)
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}

			if prometheus {
				metrics.WritePrometheus(app.Out, false)
				return nil
			}

			summary := summarize(all)
			summary.Driver = app.Config.Driver
			summary.Cached = app.Config.Cache.Enabled
			summary.Defaults = len(tree.Flatten(app.Store.Defaults()))

			if app.JSON {
				return writeJSON(app.Out, summary)
			}

			fmt.Fprintf(app.Out, "Driver:         %s\n", summary.Driver)
			fmt.Fprintf(app.Out, "Cached:         %t\n", summary.Cached)
			fmt.Fprintf(app.Out, "Top-level keys: %d\n", summary.TopLevelKeys)
			fmt.Fprintf(app.Out, "Leaves:         %d\n", summary.Leaves)
			fmt.Fprintf(app.Out, "Max depth:      %d\n", summary.MaxDepth)
			fmt.Fprintf(app.Out, "Defaults:       %d\n", summary.Defaults)
			return nil
		},
	}

	cmd.Flags().BoolVar(&prometheus, "prometheus", false, "Print backend metrics in Prometheus format")

	return cmd
}

func summarize(t *tree.Tree) StatsSummary {
	entries := tree.Flatten(t)
	s := StatsSummary{
		TopLevelKeys: t.Len(),
		Leaves:       len(entries),
	}
	for _, e := range entries {
		if d := len(tree.Split(e.Path)); d > s.MaxDepth {
			s.MaxDepth = d
		}
	}
	return s
}
