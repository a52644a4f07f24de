package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBusyTimeoutMS is the SQLite busy_timeout used when nothing overrides it.
const DefaultBusyTimeoutMS = 5000

// GetDBPath resolves the database path.
// Order of precedence:
// 1) CLI override (e.g. --db-path)
// 2) Environment variable: SCRUM_DB_PATH
// 3) config.yaml: db_path
// 4) Default: ~/.config/scrum/scrum.db
// Ensures the parent directory exists.
func GetDBPath() (string, error) {
	path, _, err := ResolveDBPathDetailed()
	return path, err
}

// ResolveDBPathDetailed returns the resolved DB path along with the source of that decision.
func ResolveDBPathDetailed() (path string, source string, err error) {
	if override := getDBPathOverride(); override != "" {
		resolvedPath, ensureErr := EnsureDBDir(expandHome(override))
		return resolvedPath, "cli(--db-path)", ensureErr
	}

	if envPath := os.Getenv("SCRUM_DB_PATH"); envPath != "" {
		resolvedPath, ensureErr := EnsureDBDir(expandHome(envPath))
		return resolvedPath, "env(SCRUM_DB_PATH)", ensureErr
	}

	cfg, err := LoadSettings()
	if err != nil {
		return "", "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBPath != "" {
		resolvedPath, ensureErr := EnsureDBDir(expandHome(cfg.DBPath))
		return resolvedPath, "config(db_path)", ensureErr
	}

	configDir, err := ConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	resolved, err := EnsureDBDir(filepath.Join(configDir, "scrum.db"))
	return resolved, "default(~/.config/scrum/scrum.db)", err
}

// BusyTimeoutMS resolves the SQLite busy timeout: SCRUM_BUSY_TIMEOUT_MS,
// then config.yaml, then DefaultBusyTimeoutMS. Non-positive values are ignored.
func BusyTimeoutMS() int {
	if v := os.Getenv("SCRUM_BUSY_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	if s, err := LoadSettings(); err == nil && s.BusyTimeoutMS > 0 {
		return s.BusyTimeoutMS
	}
	return DefaultBusyTimeoutMS
}

// EnsureDBDir creates the directory holding dbPath. In-memory and file: URI
// paths are returned untouched.
func EnsureDBDir(dbPath string) (string, error) {
	if dbPath == "" {
		return "", errors.New("database path is empty")
	}
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return dbPath, nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
