package platform

import (
	"io/fs"
	"os"
	"path/filepath"
)

// RemoveAll removes path and everything below it. A missing path is not an
// error. When read-only directories block the removal, owner write
// permission is added throughout the tree and the removal is retried.
func RemoveAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		want := info.Mode().Perm() | 0o200
		if d.IsDir() {
			want |= 0o700
		}
		if want != info.Mode().Perm() {
			_ = os.Chmod(p, want)
		}
		return nil
	})
	return os.RemoveAll(path)
}
