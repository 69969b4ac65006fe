package config

import (
	"os"
	"path/filepath"
)

// appDir is the directory name used below the base config directory.
const appDir = "sptfydl"

// Dir returns the sptfydl configuration directory without creating it.
//
// The base directory is resolved in order:
//  1. $XDG_CONFIG_HOME
//  2. <home>/.config
//  3. The current directory
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		base = "."
	}
	return filepath.Join(base, appDir)
}

// EnsureDir returns the configuration directory, creating it if needed.
func EnsureDir() (string, error) {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
