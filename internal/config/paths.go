package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveLedgerPath returns the ledger location. Relative paths are tried
// against the working directory first, then the executable directory.
func (c *Config) ResolveLedgerPath() string {
	path := c.Ledger.Path
	if filepath.IsAbs(path) || FileExists(path) {
		return path
	}

	exeDir, err := ExecutableDir()
	if err != nil {
		return path
	}
	if candidate := filepath.Join(exeDir, path); FileExists(candidate) {
		return candidate
	}
	return path
}

// ExecutableDir returns the directory containing the running binary with
// symlinks resolved
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
