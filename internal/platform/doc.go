// Package platform provides the cross-platform filesystem operations the
// launcher needs while materializing a runtime: permission bits (a no-op on
// Windows), symlink creation with a copy fallback on Windows, the Windows
// executable suffix, and an exclusive advisory lock file (flock on Unix,
// LockFileEx on Windows) that serializes launchers sharing a runtime directory.
package platform
