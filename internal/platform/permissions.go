package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// Chmod sets the permissions of name inside root. On Windows this is a no-op
// because Windows does not support Unix-style permission bits.
func Chmod(root *os.Root, name string, mode os.FileMode) error {
	if !SupportsPermissions() {
		return nil
	}
	return root.Chmod(name, mode)
}

// SupportsPermissions reports whether Chmod applies POSIX permission bits on
// this platform.
func SupportsPermissions() bool {
	return runtime.GOOS != "windows"
}

// ExecutableName returns path with ".exe" appended on Windows when path has no
// extension. Other platforms get path unchanged.
func ExecutableName(path string) string {
	if runtime.GOOS == "windows" && filepath.Ext(path) == "" {
		return path + ".exe"
	}
	return path
}
