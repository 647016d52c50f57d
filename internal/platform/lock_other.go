//go:build !unix && !windows

package platform

// Lock is the stub used where no advisory file lock exists.
type Lock struct{}

// AcquireLock always returns ErrLockUnavailable on this platform.
func AcquireLock(path string) (*Lock, error) {
	return nil, ErrLockUnavailable
}

// Release is a no-op.
func (l *Lock) Release() {}
