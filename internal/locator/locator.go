package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feet-runtime/feet/internal/failure"
)

var (
	// Test seam for os.Executable().
	osExecutable = os.Executable

	// Test seam for filepath.EvalSymlinks().
	evalSymlinks = filepath.EvalSymlinks
)

// Image describes the launcher executable on disk.
type Image struct {
	Path    string    // absolute, symlink-resolved path
	Dir     string    // directory containing Path
	Name    string    // file name, e.g. "feet.exe"
	Stem    string    // file name without extension, e.g. "feet"
	ModTime time.Time // modification time of Path
}

// Locate resolves the currently running executable.
func Locate() (Image, error) {
	exe, err := osExecutable()
	if err != nil {
		return Image{}, failure.Wrap(failure.KindLocator, "resolve executable path", "", err)
	}
	return FromPath(exe)
}

// FromPath builds an Image for the executable at path. Symlinks are resolved
// so that a link on $PATH pairs with the runtime directory beside the real
// binary.
func FromPath(path string) (Image, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Image{}, failure.Wrap(failure.KindLocator, "resolve absolute path", path, err)
	}
	if resolved, err := evalSymlinks(abs); err == nil {
		abs = resolved
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Image{}, failure.Wrap(failure.KindLocator, "stat executable", abs, err)
	}
	if info.IsDir() {
		return Image{}, failure.Wrap(failure.KindLocator, "stat executable", abs, fmt.Errorf("is a directory"))
	}

	name := filepath.Base(abs)
	return Image{
		Path:    abs,
		Dir:     filepath.Dir(abs),
		Name:    name,
		Stem:    Stem(name),
		ModTime: info.ModTime(),
	}, nil
}

// Stem strips the final extension from a file name. A name that is only an
// extension (".feet") is returned unchanged.
func Stem(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
