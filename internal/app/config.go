package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/scrum/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "scrum"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# scrum configuration
# Run: scrum --help

# Optional: override the SQLite database location.
# Can also be set via SCRUM_DB_PATH or --db-path.
# db_path: ~/.config/scrum/scrum.db

# Optional: milliseconds a statement waits on a locked database (default 5000).
# Can also be set via SCRUM_BUSY_TIMEOUT_MS.
# busy_timeout_ms: 5000

# Optional: priority for new tasks when --priority is omitted (low|medium|high).
# default_priority: medium

# Optional: directory for relative export paths.
# report_dir: ~/reports
`
