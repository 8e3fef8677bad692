package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultStateDir = "~/.tgjpg"

// ExpandHomePath expands a leading ~ to the current user's home
// directory. Paths it cannot expand are returned unchanged.
func ExpandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolveStateDir returns the effective state directory for the given
// configured value, falling back to the default when blank.
func ResolveStateDir(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = defaultStateDir
	}
	return filepath.Clean(ExpandHomePath(raw))
}
