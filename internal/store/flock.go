package store

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// migrationLock is an exclusive advisory flock on <db>.migrate.lock.
type migrationLock struct {
	f *os.File
}

// acquireMigrationLock blocks until the lock beside dbPath is held.
func acquireMigrationLock(dbPath string) (*migrationLock, error) {
	lockPath := dbPath + ".migrate.lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // G304: lockPath derived from trusted dbPath
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	return &migrationLock{f: f}, nil
}

// release drops the lock and closes the file. Nil-safe.
func (l *migrationLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}
