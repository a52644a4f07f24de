package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureConfigDir_WritesDefaultsOnce(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "scrum"), dir)

	require.NoError(t, EnsureConfigDir())
	configFile := filepath.Join(dir, "config.yaml")
	written, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), "# db_path:")
	assert.Contains(t, string(written), "# report_dir:")

	edited := []byte("default_priority: low\n")
	require.NoError(t, os.WriteFile(configFile, edited, 0o600))
	require.NoError(t, EnsureConfigDir())

	kept, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, edited, kept)
}

func TestDefaultConfig_EveryKeyCommentedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfig), 0o600))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{}, s)
}
