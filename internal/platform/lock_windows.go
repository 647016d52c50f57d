//go:build windows

package platform

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

// Lock holds an exclusive LockFileEx byte-range lock on a lock file. Windows
// releases the lock when the handle is closed, including on crash.
type Lock struct {
	file *os.File
}

// AcquireLock opens (or creates) the lock file at path and blocks until it
// holds an exclusive lock on its first byte.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol); err != nil {
		f.Close()
		return nil, fmt.Errorf("LockFileEx %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. It is safe to call multiple times.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	ol := new(windows.Overlapped)
	if err := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, ol); err != nil {
		log.Debug("UnlockFileEx failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		log.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
