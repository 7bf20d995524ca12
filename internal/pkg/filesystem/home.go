package filesystem

import (
	"os"
	"path/filepath"
)

// StateDirName is the per-user directory holding config, contexts and history.
const StateDirName = ".skip"

// UserHomeDir returns the home directory, or "." when it cannot be found.
func UserHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// StatePath joins elem under ~/.skip.
func StatePath(elem ...string) string {
	return filepath.Join(append([]string{UserHomeDir(), StateDirName}, elem...)...)
}
