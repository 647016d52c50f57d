package payload

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/platform"
)

const (
	// DefaultMaxEntryBytes bounds a single extracted file (4 GiB).
	DefaultMaxEntryBytes int64 = 4 << 30

	// maxLinkTargetBytes bounds the stored target of a symlink entry.
	maxLinkTargetBytes = 4096

	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o666
)

// StagingPattern returns the glob matching temporary staging directories
// created for the runtime directory called name.
func StagingPattern(name string) string {
	return stagingPrefix(name) + "*"
}

func stagingPrefix(name string) string {
	return "." + name + ".staging-"
}

// Extractor materializes a payload into a runtime directory.
type Extractor struct {
	// StagingName is the top-level directory every entry lives under. When
	// empty it is detected from the archive, which must then have exactly one
	// top-level directory.
	StagingName string

	// MaxEntryBytes bounds each extracted file. Zero means DefaultMaxEntryBytes.
	MaxEntryBytes int64

	// Observer receives progress. Nil means Discard.
	Observer Observer
}

// Result reports what Extract did.
type Result struct {
	// Path is the runtime directory.
	Path string
	// Entries is the number of archive entries processed.
	Entries int
	// Reused is true when another extractor renamed its copy into place first
	// and ours was discarded.
	Reused bool
}

// dirMode is a directory permission applied once extraction is complete.
type dirMode struct {
	path string
	mode fs.FileMode
}

// Extract unpacks the payload at payloadPath into parent/name.
//
// Entries are written below a fresh temporary directory in parent, and the
// staging root is renamed to parent/name only after every entry succeeded. On
// failure the temporary directory is removed on a best-effort basis; whatever
// remains never carries the canonical name.
func (x *Extractor) Extract(payloadPath, parent, name string) (*Result, error) {
	archive, err := Open(payloadPath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	staging, err := x.stagingRoot(archive)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp(parent, stagingPrefix(name))
	if err != nil {
		return nil, failure.Wrap(failure.KindFilesystem, "create staging directory in", parent, err)
	}
	defer platform.RemoveAll(tmp)

	obs := x.observer()
	total := archive.Len()
	obs.Begin(total)
	if err := x.extractAll(archive, tmp, staging, obs); err != nil {
		return nil, err
	}

	src := filepath.Join(tmp, filepath.FromSlash(staging))
	dst := filepath.Join(parent, name)
	result := &Result{Path: dst, Entries: total}
	if err := os.Rename(src, dst); err != nil {
		// Lost a race with a concurrent extractor: its copy is complete.
		if info, statErr := os.Stat(dst); statErr == nil && info.IsDir() {
			result.Reused = true
			obs.End()
			return result, nil
		}
		return nil, failure.Wrap(failure.KindFilesystem, "rename staging directory to", dst, err)
	}

	obs.End()
	return result, nil
}

// extractAll writes every entry below tmp. All writes go through an os.Root
// opened on tmp, so no entry can reach outside it even through a symlink.
func (x *Extractor) extractAll(archive *Archive, tmp, staging string, obs Observer) error {
	root, err := os.OpenRoot(tmp)
	if err != nil {
		return failure.Wrap(failure.KindFilesystem, "open staging directory", tmp, err)
	}
	defer root.Close()

	links := newLinkSet(staging)
	total := archive.Len()
	var dirModes []dirMode
	for _, entry := range archive.Entries() {
		dm, err := x.extractEntry(root, archive.zr.File[entry.Index], entry, links)
		if err != nil {
			return err
		}
		if dm != nil {
			dirModes = append(dirModes, *dm)
		}
		obs.Extracted(entry, total)
	}

	// Children first, so a read-only parent never blocks a later chmod.
	for i := len(dirModes) - 1; i >= 0; i-- {
		if err := platform.Chmod(root, dirModes[i].path, dirModes[i].mode); err != nil {
			return failure.Wrap(failure.KindFilesystem, "set permissions on", filepath.Join(tmp, dirModes[i].path), err)
		}
	}

	if _, err := root.Stat(filepath.FromSlash(staging)); err != nil {
		// An archive with only files below the root still implies the root.
		if err := root.MkdirAll(filepath.FromSlash(staging), dirPerm); err != nil {
			return failure.Wrap(failure.KindFilesystem, "create directory", filepath.Join(tmp, staging), err)
		}
	}
	return nil
}

func (x *Extractor) observer() Observer {
	if x.Observer == nil {
		return Discard
	}
	return x.Observer
}

func (x *Extractor) maxEntryBytes() int64 {
	if x.MaxEntryBytes <= 0 {
		return DefaultMaxEntryBytes
	}
	return x.MaxEntryBytes
}

// stagingRoot returns the configured staging name, or detects it. Every entry
// name is validated here, before anything touches the disk.
func (x *Extractor) stagingRoot(a *Archive) (string, error) {
	staging := x.StagingName
	for _, f := range a.zr.File {
		clean, err := SafeName(f.Name)
		if err != nil {
			return "", failure.Wrap(failure.KindArchive, "validate payload entry in", a.Path, err)
		}
		top := topLevel(clean)
		if staging == "" {
			staging = top
		}
		if top != staging {
			return "", failure.Wrap(failure.KindArchive, "validate payload entry in", a.Path,
				fmt.Errorf("entry %q is outside the %q staging directory", f.Name, staging))
		}
	}
	if staging == "" {
		return "", failure.Wrap(failure.KindArchive, "read payload", a.Path, errors.New("archive is empty"))
	}
	return staging, nil
}

// extractEntry writes one entry below root. Directory modes are returned for
// deferred application.
func (x *Extractor) extractEntry(root *os.Root, f *zip.File, e Entry, links *linkSet) (*dirMode, error) {
	clean, err := SafeName(f.Name)
	if err != nil {
		return nil, failure.Wrap(failure.KindArchive, "validate payload entry", f.Name, err)
	}
	if e.IsSymlink {
		return nil, x.writeSymlink(root, f, clean, links)
	}
	if err := links.checkName(clean); err != nil {
		return nil, failure.Wrap(failure.KindArchive, "validate payload entry", f.Name, err)
	}
	out := filepath.FromSlash(clean)

	if e.IsDir {
		if err := root.MkdirAll(out, dirPerm); err != nil {
			return nil, failure.Wrap(failure.KindFilesystem, "create directory", f.Name, err)
		}
		if e.HasMode {
			return &dirMode{path: out, mode: e.Mode}, nil
		}
		return nil, nil
	}

	if err := root.MkdirAll(filepath.Dir(out), dirPerm); err != nil {
		return nil, failure.Wrap(failure.KindFilesystem, "create directory", path.Dir(clean), err)
	}
	if err := x.writeFile(root, f, out); err != nil {
		return nil, err
	}
	if e.HasMode {
		if err := platform.Chmod(root, out, e.Mode); err != nil {
			return nil, failure.Wrap(failure.KindFilesystem, "set permissions on", f.Name, err)
		}
	}
	return nil, nil
}

// writeFile copies the entry's bytes verbatim to out.
func (x *Extractor) writeFile(root *os.Root, f *zip.File, out string) error {
	rc, err := f.Open()
	if err != nil {
		return failure.Wrap(failure.KindArchive, "open payload entry", f.Name, err)
	}
	defer rc.Close()

	w, err := root.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return failure.Wrap(failure.KindFilesystem, "create file", f.Name, err)
	}

	limit := x.maxEntryBytes()
	src := &recordingReader{r: io.LimitReader(rc, limit+1)}
	n, err := io.Copy(w, src)
	if err != nil {
		w.Close()
		if src.err != nil {
			return failure.Wrap(failure.KindArchive, "read payload entry", f.Name, src.err)
		}
		return failure.Wrap(failure.KindFilesystem, "write file", f.Name, err)
	}
	if n > limit {
		w.Close()
		return failure.Wrap(failure.KindArchive, "read payload entry", f.Name, errTooLarge{limit: limit})
	}
	if err := w.Close(); err != nil {
		return failure.Wrap(failure.KindFilesystem, "write file", f.Name, err)
	}
	return nil
}

// writeSymlink creates a symlink entry. Its target must resolve inside the
// staging root.
func (x *Extractor) writeSymlink(root *os.Root, f *zip.File, clean string, links *linkSet) error {
	rc, err := f.Open()
	if err != nil {
		return failure.Wrap(failure.KindArchive, "open payload entry", f.Name, err)
	}
	raw, err := io.ReadAll(io.LimitReader(rc, maxLinkTargetBytes+1))
	rc.Close()
	if err != nil {
		return failure.Wrap(failure.KindArchive, "read payload entry", f.Name, err)
	}
	if len(raw) == 0 || len(raw) > maxLinkTargetBytes {
		return failure.Wrap(failure.KindArchive, "read payload entry", f.Name,
			fmt.Errorf("%w: symlink target length %d", ErrUnsafeName, len(raw)))
	}

	target := string(raw)
	if filepath.IsAbs(target) || filepath.VolumeName(target) != "" {
		return failure.Wrap(failure.KindArchive, "validate payload entry", f.Name,
			fmt.Errorf("%w: symlink target %q is absolute", ErrUnsafeName, target))
	}
	slashTarget := filepath.ToSlash(target)
	if err := links.add(clean, slashTarget); err != nil {
		return failure.Wrap(failure.KindArchive, "validate payload entry", f.Name, err)
	}

	out := filepath.FromSlash(clean)
	if err := root.MkdirAll(filepath.Dir(out), dirPerm); err != nil {
		return failure.Wrap(failure.KindFilesystem, "create directory", path.Dir(clean), err)
	}
	if err := platform.CreateSymlink(root, filepath.FromSlash(slashTarget), out); err != nil {
		return failure.Wrap(failure.KindFilesystem, "create symlink", f.Name, err)
	}
	return nil
}
