package xfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ExpandTilde replaces a leading tilde (~) with the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// Touch creates path, and its parent directories, holding the current pid.
func Touch(path string) error {
	path = ExpandTilde(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("xfs: failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("xfs: failed to write %s: %w", path, err)
	}

	return nil
}

// Remove deletes path, ignoring a missing file.
func Remove(path string) error {
	if err := os.Remove(ExpandTilde(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("xfs: failed to remove %s: %w", path, err)
	}
	return nil
}
