//go:build unix

package dhb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// LockFilename is the advisory lock file created in the backup root.
const LockFilename = ".dhb.lock"

// RunLock serializes runs against one backup root. Two simultaneous runs race
// on the catalog and on eviction, so a run holds an exclusive flock for its
// whole duration and releases it on every exit path. flock locks die with the
// process, so a crashed run never leaves the root locked.
type RunLock struct {
	f *os.File
}

// AcquireRunLock takes the exclusive lock for backupRoot without blocking.
// It creates the backup root if needed.
func AcquireRunLock(backupRoot string) (*RunLock, error) {
	if err := os.MkdirAll(backupRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating backup root %s: %w", backupRoot, err)
	}

	path := filepath.Join(backupRoot, LockFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("backup root %s is in use by another run", backupRoot)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	// Owner token is diagnostic only; the flock is what enforces exclusion.
	f.Truncate(0)
	fmt.Fprintf(f, "%d %s\n", os.Getpid(), uuid.New().String())

	return &RunLock{f: f}, nil
}

// Release drops the lock. Safe to call on all exit paths.
func (l *RunLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
