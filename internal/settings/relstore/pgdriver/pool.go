package pgdriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
)

// ErrDatabaseNotConfigured is returned when no connection settings are found
// in the environment.
var ErrDatabaseNotConfigured = errors.New("database connection configuration is unavailable")

// NewConnectionPool creates a pgx connection pool for the PostgreSQL URL.
// Statements are traced to slog at debug level.
func NewConnectionPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(logQuery),
		LogLevel: tracelog.LogLevelDebug,
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

// logQuery forwards pgx trace events to slog. Bound arguments hold setting
// values and are replaced by their count.
func logQuery(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	attrs := make([]slog.Attr, 0, len(data))
	for k, v := range data {
		if k == "args" {
			if args, ok := v.([]any); ok {
				attrs = append(attrs, slog.Int("arg_count", len(args)))
			}
			continue
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	lvl := slog.LevelDebug
	if level <= tracelog.LogLevelError && level != tracelog.LogLevelNone {
		lvl = slog.LevelError
	}
	slog.LogAttrs(ctx, lvl, "pgx: "+msg, attrs...)
}

// DatabaseURLFromEnv builds a PostgreSQL URL from PREFIX_URL, or from
// PREFIX_HOST, PREFIX_PORT, PREFIX_USER, PREFIX_PASSWORD, PREFIX_DBNAME and
// PREFIX_SSLMODE. A trailing "_" is added to prefix when missing.
//
// HOST and DBNAME are required; PORT defaults to 5432. When nothing at all
// is set the error wraps ErrDatabaseNotConfigured.
func DatabaseURLFromEnv(prefix string) (string, error) {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	if urlStr := os.Getenv(prefix + "URL"); urlStr != "" {
		return urlStr, nil
	}

	host := os.Getenv(prefix + "HOST")
	dbname := os.Getenv(prefix + "DBNAME")
	if host == "" && dbname == "" {
		return "", fmt.Errorf("%w: set %sURL or %sHOST and %sDBNAME", ErrDatabaseNotConfigured, prefix, prefix, prefix)
	}

	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	port := os.Getenv(prefix + "PORT")
	if port == "" {
		port = "5432"
	}

	return BuildURL(host, port, os.Getenv(prefix+"USER"), os.Getenv(prefix+"PASSWORD"), dbname, os.Getenv(prefix+"SSLMODE")), nil
}

// BuildURL assembles a postgresql:// URL. Empty user, password and sslmode
// are left out.
func BuildURL(host, port, user, password, dbname, sslmode string) string {
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   dbname,
	}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	q := u.Query()
	if sslmode != "" {
		q.Set("sslmode", sslmode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
