//go:build !windows

package filelock

import (
	"os/exec"
	"path/filepath"
	"testing"
)

func runFlock(t *testing.T, lockPath string) string {
	t.Helper()
	if _, err := exec.LookPath("flock"); err != nil {
		t.Skip("Skipping cross-process test: flock command not available")
	}

	cmd := exec.Command("sh", "-c", `
		flock -n "$1" -c "echo acquired" 2>/dev/null || echo "blocked"
	`, "_", lockPath)
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("Child process failed: %v", err)
	}
	return string(output)
}

func TestFileLock_CrossProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping cross-process test in short mode")
	}

	lockPath := filepath.Join(t.TempDir(), "crossprocess.lock")

	lock := NewFileLock(lockPath)
	if acquired, err := lock.TryLock(); err != nil || !acquired {
		t.Fatalf("Failed to acquire lock in parent: %v", err)
	}
	defer unlockLock(t, lock)

	if result := runFlock(t, lockPath); result != "blocked\n" {
		t.Errorf("Expected child to be blocked, got: %q", result)
	}
}

func TestFileLock_ReleaseOnUnlock_AllowsNewProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping cross-process test in short mode")
	}

	lockPath := filepath.Join(t.TempDir(), "release.lock")

	lock := NewFileLock(lockPath)
	if acquired, err := lock.TryLock(); err != nil || !acquired {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}

	if result := runFlock(t, lockPath); result != "acquired\n" {
		t.Errorf("Expected child to acquire lock, got: %q", result)
	}
}
