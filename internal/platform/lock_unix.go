//go:build unix

package platform

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// Lock holds a blocking exclusive flock on a lock file. The zero-byte lock
// file is harmless if orphaned: the kernel releases the flock when the fd is
// closed, including on crash.
type Lock struct {
	file *os.File
}

// AcquireLock opens (or creates) the lock file at path and blocks until it
// holds an exclusive flock on it.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. It is safe to call multiple times.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		log.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		log.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
