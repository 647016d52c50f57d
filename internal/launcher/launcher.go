package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/branding"
	"github.com/feet-runtime/feet/internal/config"
	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/layout"
	"github.com/feet-runtime/feet/internal/locator"
	"github.com/feet-runtime/feet/internal/payload"
	"github.com/feet-runtime/feet/internal/platform"
	"github.com/feet-runtime/feet/internal/provision"
	"github.com/feet-runtime/feet/internal/rundir"
	"github.com/feet-runtime/feet/internal/runtime"
)

// ExitFailure is the exit code for any fatal launcher error.
const ExitFailure runtime.ExitCode = 1

// Launcher runs the bundled runtime for one invocation.
type Launcher struct {
	Image    locator.Image
	Settings *config.Settings
	Version  string

	// Router handles local commands. Nil means DefaultRouter.
	Router Router

	// Standard streams, defaulting to the process's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// WorkDir is where the build marker and the requirements file are looked
	// up, and the runtime's working directory. Empty means the current one.
	WorkDir string
}

// Run executes one invocation with the arguments that followed the program
// name. It returns the code the process should exit with; when err is
// non-nil the code is derived from it by ExitCodeOf.
func (l *Launcher) Run(ctx context.Context, args []string) (runtime.ExitCode, error) {
	if err := l.refuseInSourceTree(); err != nil {
		return ExitCodeOf(err), err
	}

	dir := rundir.New(l.Image.Dir, l.Image.Stem, l.Settings.RuntimeSuffix)
	if h, ok := l.router().Route(args); ok {
		log.Debug("handling local command", "command", args[0])
		if err := h(ctx, l, dir); err != nil {
			return ExitCodeOf(err), err
		}
		return runtime.ExitSuccess, nil
	}

	lay, err := l.prepare(ctx, dir)
	if err != nil {
		return ExitCodeOf(err), err
	}

	res, err := l.delegate().Run(ctx, lay.Command(args...))
	if err != nil {
		return ExitCodeOf(err), err
	}
	if res.Signaled {
		fmt.Fprintln(l.stderr(), res.Message())
	}
	log.Debug("runtime exited", "code", res.Code, "signaled", res.Signaled)
	return res.Code, nil
}

// ExitCodeOf maps a launcher error to a process exit code. A failed
// requirements install exits with the installer's code; everything else is
// ExitFailure.
func ExitCodeOf(err error) runtime.ExitCode {
	if err == nil {
		return runtime.ExitSuccess
	}
	var installErr *provision.InstallError
	if errors.As(err, &installErr) {
		return installErr.Result.Code
	}
	return ExitFailure
}

// refuseInSourceTree fails when the working directory is the launcher's own
// build tree.
func (l *Launcher) refuseInSourceTree() error {
	marker := l.Settings.BuildMarker
	if marker == "" {
		return nil
	}
	if !filepath.IsAbs(marker) {
		marker = filepath.Join(l.workDir(), marker)
	}
	if _, err := os.Stat(marker); err != nil {
		return nil
	}
	return failure.New(failure.KindRefused,
		fmt.Sprintf("Do not run %q in its own source directory", l.Image.Name), "")
}

// prepare leaves a fresh, extracted and provisioned runtime directory behind
// and returns its layout. The lock, when available, is held throughout.
func (l *Launcher) prepare(ctx context.Context, dir rundir.Directory) (*layout.Layout, error) {
	lock := l.acquireLock(dir)
	defer lock.Release()

	if lock != nil {
		if removed := dir.SweepStaging(); len(removed) > 0 {
			log.Debug("removed orphaned staging directories", "paths", removed)
		}
	}

	stale, err := dir.Guard(l.Image.ModTime)
	if err != nil {
		return nil, err
	}
	if stale {
		log.Info("runtime directory is older than the launcher, re-extracting", "path", dir.Path)
	}

	if !dir.Exists() {
		if err := l.extract(dir); err != nil {
			return nil, err
		}
	}

	lay, err := layout.Resolve(dir.Path, l.Version, l.Settings.Overrides())
	if err != nil {
		return nil, err
	}

	p := &provision.Provisioner{
		Runner:  l.delegate(),
		Stderr:  l.stderr(),
		WorkDir: l.WorkDir,
	}
	if ran, err := p.Ensure(ctx, lay); err != nil {
		return nil, err
	} else if ran {
		log.Debug("requirements installed", "marker", lay.Marker)
	}
	return lay, nil
}

// extract materializes the payload into dir.
func (l *Launcher) extract(dir rundir.Directory) error {
	src, err := payload.Select(l.Image.Path, l.Image.Stem, l.Settings.Payload)
	if err != nil {
		return err
	}

	obs := payload.Discard
	if l.Settings.Progress {
		obs = payload.NewProgress(l.stderr(), fmt.Sprintf("Extracting the %s runtime...", branding.DisplayName()))
	}
	x := &payload.Extractor{
		StagingName:   l.Settings.StagingName,
		MaxEntryBytes: l.Settings.MaxEntryBytes,
		Observer:      obs,
	}

	log.Debug("extracting runtime", "payload", src, "dest", dir.Path)
	res, err := x.Extract(src, dir.Parent, dir.Name)
	if err != nil {
		return err
	}
	if res.Reused {
		log.Debug("another launcher extracted the runtime first", "path", res.Path)
	}
	return nil
}

// acquireLock takes the directory's advisory lock. It returns nil, and the
// caller proceeds unlocked, when locking is disabled or unavailable.
func (l *Launcher) acquireLock(dir rundir.Directory) *platform.Lock {
	if !l.Settings.Lock {
		return nil
	}
	lock, err := platform.AcquireLock(dir.LockPath())
	if err != nil {
		if errors.Is(err, platform.ErrLockUnavailable) || errors.Is(err, fs.ErrPermission) {
			log.Debug("continuing without lock", "path", dir.LockPath(), "err", err)
		} else {
			log.Warn("continuing without lock", "path", dir.LockPath(), "err", err)
		}
		return nil
	}
	return lock
}

func (l *Launcher) delegate() *runtime.Delegate {
	return &runtime.Delegate{
		Stdin:  l.Stdin,
		Stdout: l.Stdout,
		Stderr: l.Stderr,
		Dir:    l.WorkDir,
	}
}

func (l *Launcher) router() Router {
	if l.Router == nil {
		return DefaultRouter()
	}
	return l.Router
}

func (l *Launcher) stderr() io.Writer {
	if l.Stderr == nil {
		return os.Stderr
	}
	return l.Stderr
}

func (l *Launcher) workDir() string {
	if l.WorkDir != "" {
		return l.WorkDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
