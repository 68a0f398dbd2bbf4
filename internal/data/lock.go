package data

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"homologador/internal/core"
	"homologador/internal/logger"
)

// FileLock is the mutual-exclusion primitive guarding the database file.
// It holds an OS-level exclusive, non-blocking lock on a sentinel file
// next to the database (<db_path>.lock). SQLite's own locking is not
// enough for the shared-network-drive scenario this application targets,
// so every guarded connection goes through this lock first. The lock is
// not reentrant: while held, any further Acquire fails with
// ErrDatabaseBusy, whether the contender is another process or another
// goroutine of this one.
type FileLock struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewFileLock builds the coordinator for the given database path.
func NewFileLock(dbPath string) *FileLock {
	return &FileLock{path: dbPath + ".lock"}
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// Held reports whether this coordinator currently holds the lock.
func (l *FileLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f != nil
}

// Acquire takes the exclusive lock. It fails with a LockError when the
// containing directory is not writable or when the lock is already held,
// by this coordinator included. A stale lock file left by a crashed
// holder is removed best-effort first; the OS lock call remains the
// final arbiter, so the removal race is harmless.
func (l *FileLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f != nil {
		return &core.LockError{Path: l.path, Err: core.ErrDatabaseBusy}
	}

	dir := filepath.Dir(l.path)
	if err := checkDirWritable(dir); err != nil {
		return &core.LockError{Path: l.path, Err: err}
	}

	// A leftover lock file from a crashed holder is removed first. The
	// non-blocking probe distinguishes stale from live: a live holder's
	// OS lock makes the probe fail and we report busy without touching
	// the file.
	if _, err := os.Stat(l.path); err == nil {
		probe, err := os.OpenFile(l.path, os.O_RDWR, 0644)
		if err == nil {
			if lockErr := lockExclusive(probe); lockErr != nil {
				_ = probe.Close()
				return &core.LockError{Path: l.path, Err: lockErr}
			}
			if err := os.Remove(l.path); err != nil {
				logger.Warn.Printf("Cannot remove stale lock file %s: %v", l.path, err)
			} else {
				logger.Info.Printf("Removed stale lock file %s", l.path)
			}
			_ = unlockFile(probe)
			_ = probe.Close()
		} else if !os.IsNotExist(err) {
			logger.Warn.Printf("Cannot probe stale lock file %s: %v", l.path, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return &core.LockError{Path: l.path, Err: err}
	}

	if err := lockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, core.ErrDatabaseBusy) {
			return &core.LockError{Path: l.path, Err: core.ErrDatabaseBusy}
		}
		return &core.LockError{Path: l.path, Err: err}
	}

	l.f = f
	return nil
}

// Release drops the OS lock, closes and deletes the lock file. Safe to
// call when the lock is not held.
func (l *FileLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return
	}
	if err := unlockFile(l.f); err != nil {
		logger.Warn.Printf("Error releasing lock %s: %v", l.path, err)
	}
	_ = l.f.Close()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logger.Warn.Printf("Cannot remove lock file %s: %v", l.path, err)
	}
	l.f = nil
}
