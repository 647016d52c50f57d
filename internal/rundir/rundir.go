package rundir

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/payload"
	"github.com/feet-runtime/feet/internal/platform"
)

// LockSuffix is appended to the directory name to form the lock file name.
const LockSuffix = ".lock"

// Directory is a runtime directory, which may or may not exist yet.
type Directory struct {
	Path   string // Parent joined with Name
	Name   string // e.g. "feet_data"
	Parent string // directory holding the launcher binary
}

// Status is a snapshot of the directory on disk.
type Status struct {
	Exists  bool
	IsDir   bool
	ModTime time.Time
}

// New returns the runtime directory for a binary with the given stem living
// in parent. Callers pass the binary's own directory, not the working
// directory, so the runtime is found the same way from any current directory.
func New(parent, stem, suffix string) Directory {
	name := stem + suffix
	return Directory{
		Path:   filepath.Join(parent, name),
		Name:   name,
		Parent: parent,
	}
}

// LockPath returns the lock file guarding this directory.
func (d Directory) LockPath() string {
	return filepath.Join(d.Parent, d.Name+LockSuffix)
}

// Stat reports whether the directory exists and when it was last modified.
func (d Directory) Stat() (Status, error) {
	info, err := os.Lstat(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{}, nil
		}
		return Status{}, failure.Wrap(failure.KindFilesystem, "stat runtime directory", d.Path, err)
	}
	return Status{Exists: true, IsDir: info.IsDir(), ModTime: info.ModTime()}, nil
}

// Exists reports whether the directory is present.
func (d Directory) Exists() bool {
	st, err := d.Stat()
	return err == nil && st.Exists && st.IsDir
}

// Guard removes the directory when the binary at imageModTime is newer than
// it, or when something other than a directory occupies its path. It reports
// whether anything was removed. Afterwards the directory is either absent or
// at least as new as the binary.
func (d Directory) Guard(imageModTime time.Time) (bool, error) {
	st, err := d.Stat()
	if err != nil {
		return false, err
	}
	if !st.Exists {
		return false, nil
	}
	if st.IsDir && !imageModTime.After(st.ModTime) {
		return false, nil
	}

	log.Debug("runtime directory is stale", "path", d.Path, "dir_mtime", st.ModTime, "exe_mtime", imageModTime)
	if err := d.Remove(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the directory and everything below it, including read-only
// subdirectories. A missing directory is not an error.
func (d Directory) Remove() error {
	if err := platform.RemoveAll(d.Path); err != nil {
		return failure.Wrap(failure.KindFilesystem, "remove runtime directory", d.Path, err)
	}
	return nil
}

// SweepStaging removes staging directories left behind by extractions that
// were interrupted. It must only run while the lock is held, since a live
// extractor owns its staging directory until it renames it. Removal is
// best-effort; the paths that were removed are returned.
func (d Directory) SweepStaging() []string {
	matches, err := filepath.Glob(filepath.Join(d.Parent, payload.StagingPattern(d.Name)))
	if err != nil {
		return nil
	}

	var removed []string
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := platform.RemoveAll(m); err != nil {
			log.Debug("could not remove orphaned staging directory", "path", m, "err", err)
			continue
		}
		removed = append(removed, m)
	}
	return removed
}
