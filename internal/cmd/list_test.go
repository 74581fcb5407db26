package cmd

import (
	"testing"
)

var listFixture = map[string]any{
	"mail": map[string]any{
		"smtp": map[string]any{"host": "localhost", "port": 25},
	},
	"site": "Example",
}

func runList(t *testing.T, app *App, args ...string) error {
	t.Helper()
	cmd := newListCmd(NewTestProvider(app))
	cmd.SetArgs(args)
	cmd.SetErr(&discard{})
	return cmd.Execute()
}

func TestListCmd(t *testing.T) {
	tests := []struct {
		name    string
		fixture map[string]any
		args    []string
		want    string
	}{
		{
			name:    "flat",
			fixture: listFixture,
			want:    "mail.smtp.host = localhost\nmail.smtp.port = 25\nsite = Example\n",
		},
		{
			name:    "prefix",
			fixture: listFixture,
			args:    []string{"mail.smtp"},
			want:    "mail.smtp.host = localhost\nmail.smtp.port = 25\n",
		},
		{
			name:    "leaf prefix",
			fixture: listFixture,
			args:    []string{"mail.smtp.port"},
			want:    "mail.smtp.port = 25\n",
		},
		{
			name:    "missing prefix",
			fixture: listFixture,
			args:    []string{"nope"},
			want:    "No settings stored\n",
		},
		{
			name: "empty",
			want: "No settings stored\n",
		},
		{
			name:    "json",
			fixture: listFixture,
			args:    []string{"--format", "json"},
			want:    "{\"mail\":{\"smtp\":{\"host\":\"localhost\",\"port\":25}},\"site\":\"Example\"}\n",
		},
		{
			name:    "yaml prefix",
			fixture: listFixture,
			args:    []string{"mail", "--format", "yaml"},
			want:    "smtp:\n    host: localhost\n    port: 25\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, out := testApp(t, tt.fixture, false)
			if err := runList(t, app, tt.args...); err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestListCmd_JSONFlagSelectsJSON(t *testing.T) {
	app, _, out := testApp(t, listFixture, true)
	if err := runList(t, app); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	result := decodeJSON(t, out)
	if result["site"] != "Example" {
		t.Errorf("unexpected result %v", result)
	}
}

func TestListCmd_UnknownFormat(t *testing.T) {
	app, _, _ := testApp(t, listFixture, false)
	if err := runList(t, app, "--format", "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestListCmd_IncludesUnsavedChanges(t *testing.T) {
	app, _, out := testApp(t, nil, false)
	if err := app.Store.Set(testContext(t), "a", parseValue("1", false)); err != nil {
		t.Fatal(err)
	}
	if err := runList(t, app); err != nil {
		t.Fatal(err)
	}
	if out.String() != "a = 1\n" {
		t.Errorf("output %q", out.String())
	}
}
