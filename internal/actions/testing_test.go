package actions

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dotcommander/scrum/internal/clock"
	"github.com/dotcommander/scrum/internal/store"
)

var testNow = time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC)

// setupTestRepos opens an isolated database with automatic cleanup.
func setupTestRepos(t *testing.T) *Repos {
	t.Helper()

	gw, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })

	return NewRepos(gw, clock.Fixed{At: testNow})
}
