// Package cmd implements the settings command-line interface.
package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"

	"settings-lite/internal/config"
	"settings-lite/internal/settings"
)

// App holds application state shared across commands.
type App struct {
	Store   *settings.Store
	Backend settings.Backend
	Config  config.Config
	Pool    *pgxpool.Pool // nil unless the database driver is in use
	Logger  *slog.Logger
	Out     io.Writer
	Err     io.Writer
	JSON    bool // output in JSON format

	closers []func()
}

// Close saves pending changes and releases the backend's resources.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.Store != nil {
		err = a.Store.Close(ctx)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	return err
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// requirePool returns the database pool, or an error naming the driver in use.
func (a *App) requirePool() (*pgxpool.Pool, error) {
	if a.Pool == nil {
		return nil, errors.New("this command needs the database driver (--driver database)")
	}
	return a.Pool, nil
}

// SuccessColor returns the string wrapped in green ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) SuccessColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

// WarnColor returns the string wrapped in orange ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) WarnColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[38;5;214m" + s + "\033[0m"
	}
	return s
}
