package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"settings-lite/internal/config"
)

// newLogger builds the CLI logger: text on errOut, plus JSON lines appended
// to logFile when one is given. The returned func closes the log file.
func newLogger(errOut io.Writer, debug bool, logFile string) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if debug || debugFromEnv() {
		opts.Level = slog.LevelDebug
	}

	text := slog.NewTextHandler(errOut, opts)
	if logFile == "" {
		return slog.New(text), func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slogmulti.Fanout(
		text,
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	return logger, func() { _ = f.Close() }, nil
}

func debugFromEnv() bool {
	switch strings.ToLower(os.Getenv(config.EnvDebug)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
