package migrations

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
)

// LatestVersion returns the highest version among the embedded migrations.
func LatestVersion() (uint, error) {
	return latestVersion(migrationFiles)
}

// latestVersion extracts the highest version from files named like
// "1717000000_create_settings.up.sql".
func latestVersion(files embed.FS) (uint, error) {
	entries, err := files.ReadDir(".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var maxVersion uint
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		if uint(version) > maxVersion {
			maxVersion = uint(version)
		}
	}

	if maxVersion == 0 {
		return 0, fmt.Errorf("no valid migration files found")
	}
	return maxVersion, nil
}
