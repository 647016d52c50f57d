package platform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// CreateSymlink creates a symbolic link named link inside root pointing to
// target. On Unix systems, this uses root.Symlink directly.
// On Windows, it attempts root.Symlink first (requires developer mode),
// then falls back to copying the target file into place.
func CreateSymlink(root *os.Root, target, link string) error {
	if runtime.GOOS != "windows" {
		return root.Symlink(target, link)
	}

	// Try native symlink first (works if developer mode is enabled).
	err := root.Symlink(target, link)
	if err == nil {
		return nil
	}

	if copyErr := copyFileForSymlink(root, target, link); copyErr != nil {
		return fmt.Errorf("symlink fallback (copy) failed: %w (symlink error: %v)", copyErr, err)
	}
	return nil
}

// copyFileForSymlink copies src to dst, both inside root. src resolves
// against the directory containing dst, the way the OS resolves a relative
// link target. The source must already exist, so links to later archive
// entries cannot use the fallback.
func copyFileForSymlink(root *os.Root, src, dst string) error {
	in, err := root.Open(filepath.Join(filepath.Dir(dst), src))
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	out, err := root.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
