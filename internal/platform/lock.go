package platform

import "errors"

// ErrLockUnavailable is returned by AcquireLock on platforms without an
// advisory file lock. Callers proceed unlocked.
var ErrLockUnavailable = errors.New("file locking not available on this platform")
