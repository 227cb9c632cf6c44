package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const homeDirName = ".mailscan"

// GetHome returns the mailscan home directory
// Priority order:
//  1. MAILSCAN_HOME environment variable (if set)
//  2. .mailscan in the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	if home := os.Getenv("MAILSCAN_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create mailscan home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, homeDirName)
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create mailscan home directory: %w", err)
	}

	return home, nil
}

// HistoryDBPath returns the configured history database path, or
// $MAILSCAN_HOME/history.db when none is set.
func (c *Config) HistoryDBPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}

	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
