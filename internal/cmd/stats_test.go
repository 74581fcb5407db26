package cmd

import (
	"strings"
	"testing"

	"settings-lite/internal/settings"
	"settings-lite/internal/tree"
)

func runStats(t *testing.T, app *App, args ...string) error {
	t.Helper()
	cmd := newStatsCmd(NewTestProvider(app))
	cmd.SetArgs(args)
	cmd.SetErr(&discard{})
	return cmd.Execute()
}

func TestStatsCmd_Text(t *testing.T) {
	app, _, out := testApp(t, listFixture, false)
	app.Store.SetDefaults(tree.MustFromMap(map[string]any{"a": 1, "b": map[string]any{"c": 2}}))

	if err := runStats(t, app); err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	want := strings.Join([]string{
		"Driver:         memory",
		"Cached:         false",
		"Top-level keys: 2",
		"Leaves:         3",
		"Max depth:      3",
		"Defaults:       2",
	}, "\n") + "\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestStatsCmd_JSON(t *testing.T) {
	app, _, out := testApp(t, listFixture, true)
	if err := runStats(t, app); err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	result := decodeJSON(t, out)
	if result["driver"] != "memory" {
		t.Errorf("driver = %v", result["driver"])
	}
	if result["top_level_keys"] != 2.0 || result["leaves"] != 3.0 || result["max_depth"] != 3.0 {
		t.Errorf("unexpected counts %v", result)
	}
}

func TestStatsCmd_Empty(t *testing.T) {
	app, _, _ := testApp(t, nil, false)
	s := summarize(tree.New())
	if s.TopLevelKeys != 0 || s.Leaves != 0 || s.MaxDepth != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if err := runStats(t, app); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
}

func TestStatsCmd_Prometheus(t *testing.T) {
	app, backend, out := testApp(t, listFixture, false)
	app.Store = settings.New(settings.Instrument("stats_test", backend))

	if err := runStats(t, app, "--prometheus"); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out.String(), `settings_backend_reads_total{backend="stats_test"} 1`) {
		t.Errorf("expected the read counter in output, got:\n%s", out.String())
	}
}
