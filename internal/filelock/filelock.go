// Package filelock guards a data directory against concurrent use by two
// server processes. The lock is released by the OS when the process exits or crashes.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LockFilename is the lock file created inside a guarded directory.
const LockFilename = "orange.lock"

var (
	// ErrLockTimeout indicates the lock acquisition timed out
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrLocked indicates another process owns the data directory
	ErrLocked = errors.New("data directory is in use by another process")
)

// FileLock provides an exclusive advisory lock on a file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a new file lock at the given path.
// The lock file and its parent directories will be created if they don't exist.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		path: path,
	}
}

// AcquireDir locks dir for this process, waiting up to timeout for another
// holder to go away. Returns an error wrapping ErrLocked if it does not.
// The holder's pid is recorded in the lock file for diagnostics.
func AcquireDir(ctx context.Context, dir string, timeout time.Duration) (*FileLock, error) {
	lock := NewFileLock(filepath.Join(dir, LockFilename))
	if err := lock.LockWithContext(ctx, timeout); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			if pid := lock.holder(); pid != "" {
				return nil, fmt.Errorf("%w: %s (pid %s)", ErrLocked, dir, pid)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, err
	}

	if err := lock.writePID(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return lock, nil
}

// TryLock attempts to acquire the exclusive lock without blocking.
// Returns true if the lock was acquired, false if it would block.
// An error is returned only for unexpected failures (not for lock contention).
func (l *FileLock) TryLock() (bool, error) {
	if err := l.ensureFileExists(); err != nil {
		return false, err
	}

	acquired, err := tryLockFile(l.file)
	if err != nil || !acquired {
		_ = l.file.Close()
		l.file = nil
	}
	return acquired, err
}

// Lock acquires the exclusive lock, blocking until it's available or timeout expires.
// Returns ErrLockTimeout if the timeout expires before the lock is acquired.
func (l *FileLock) Lock(timeout time.Duration) error {
	return l.LockWithContext(context.Background(), timeout)
}

// LockWithContext acquires the exclusive lock, blocking until it's available,
// timeout expires, or the context is canceled.
func (l *FileLock) LockWithContext(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	// Poll interval - start small and increase
	pollInterval := 10 * time.Millisecond
	maxPollInterval := 500 * time.Millisecond

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		acquired, err := l.TryLock()
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
			// Exponential backoff with cap
			pollInterval = min(pollInterval*2, maxPollInterval)
		}
	}
}

// Unlock releases the lock.
// It is safe to call Unlock on an unlocked FileLock (no-op).
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}

	return nil
}

// IsLocked returns true if the lock is currently held by this instance.
func (l *FileLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// ensureFileExists creates the lock file and its parent directories if needed.
func (l *FileLock) ensureFileExists() error {
	if l.file != nil {
		return nil // Already open
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	l.file = file
	return nil
}

func (l *FileLock) writePID() error {
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if _, err := l.file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// holder returns the pid recorded by the current lock owner, if readable.
func (l *FileLock) holder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
