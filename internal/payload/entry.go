package payload

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafeName is wrapped by errors for entry names that are absolute or
// would escape the extraction root.
var ErrUnsafeName = errors.New("unsafe entry name")

// Host system identifiers stored in the upper byte of a zip entry's creator
// version. Only these hosts record POSIX permission bits.
const (
	creatorUnix   = 3
	creatorMacOSX = 19
)

// modeBits are the permission-related bits applied from a stored mode.
const modeBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// Entry describes one archive member.
type Entry struct {
	Index     int         // position in the archive, 0-based
	Name      string      // name as stored
	IsDir     bool        // directory entry
	IsSymlink bool        // symlink entry (stored POSIX mode)
	Mode      fs.FileMode // permission bits, valid when HasMode
	HasMode   bool        // entry carries POSIX permission metadata
	Size      uint64      // uncompressed size
}

func describe(index int, f *zip.File) Entry {
	mode, hasMode := storedMode(f)
	return Entry{
		Index:     index,
		Name:      f.Name,
		IsDir:     strings.HasSuffix(f.Name, "/") || f.Mode().IsDir(),
		IsSymlink: hasMode && f.Mode()&fs.ModeSymlink != 0,
		Mode:      mode,
		HasMode:   hasMode,
		Size:      f.UncompressedSize64,
	}
}

// storedMode returns the POSIX permission bits recorded for f, if the archive
// was written on a host that records them.
func storedMode(f *zip.File) (fs.FileMode, bool) {
	switch f.CreatorVersion >> 8 {
	case creatorUnix, creatorMacOSX:
		if f.ExternalAttrs>>16 == 0 {
			return 0, false
		}
		return f.Mode() & modeBits, true
	}
	return 0, false
}

// SafeName normalizes an archive entry name to a clean, slash-separated path
// relative to the extraction root. Backslashes are treated as separators.
// Names that are empty, absolute, carry a drive letter, or climb out of the
// root through ".." are rejected, never followed.
func SafeName(name string) (string, error) {
	n := strings.ReplaceAll(name, `\`, "/")
	if n == "" || path.IsAbs(n) || (len(n) >= 2 && n[1] == ':') {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	clean := path.Clean(n)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return clean, nil
}

// topLevel returns the first element of a clean slash path.
func topLevel(clean string) string {
	if i := strings.IndexByte(clean, '/'); i >= 0 {
		return clean[:i]
	}
	return clean
}

// within reports whether the clean slash path p is root or below it.
func within(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}
