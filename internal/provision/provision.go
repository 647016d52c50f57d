package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/layout"
	"github.com/feet-runtime/feet/internal/runtime"
)

// Runner starts a command and waits for it.
type Runner interface {
	Run(ctx context.Context, argv []string) (*runtime.Result, error)
}

// InstallError reports an install command that ran but did not succeed.
type InstallError struct {
	Result *runtime.Result
}

func (e *InstallError) Error() string {
	if e.Result.Signaled {
		return "requirements install failed: " + e.Result.Message()
	}
	return fmt.Sprintf("requirements install exited with code %s", e.Result.Code)
}

// Provisioner installs requirements into a runtime exactly once.
type Provisioner struct {
	// Runner runs the install command. Nil means a runtime.Delegate with the
	// launcher's standard streams.
	Runner Runner
	// Stderr receives the announcement. Nil means os.Stderr.
	Stderr io.Writer
	// WorkDir is where a relative requirements file is looked up; empty means
	// the current directory.
	WorkDir string
	// Now stamps the marker. Nil means time.Now.
	Now func() time.Time
}

// Needed reports whether the requirements file exists and the marker does not.
func (p *Provisioner) Needed(l *layout.Layout) (bool, error) {
	req := p.requirementsPath(l)
	if _, err := os.Stat(req); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, failure.Wrap(failure.KindFilesystem, "stat", req, err)
	}
	if _, err := os.Lstat(l.Marker); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, failure.Wrap(failure.KindFilesystem, "stat", l.Marker, err)
	}
	return true, nil
}

// Ensure runs the install when Needed and records success with the marker.
// It reports whether an install ran. An install that exits non-zero or is
// killed yields a failure.KindProvision error wrapping *InstallError, and no
// marker is written.
func (p *Provisioner) Ensure(ctx context.Context, l *layout.Layout) (bool, error) {
	needed, err := p.Needed(l)
	if err != nil || !needed {
		return false, err
	}

	fmt.Fprintln(p.stderr(), "Installing requirements...")
	argv := l.BootstrapCommand()
	log.Debug("provisioning runtime", "argv", argv, "marker", l.Marker)

	res, err := p.runner().Run(ctx, argv)
	if err != nil {
		return true, err
	}
	if !res.Code.IsSuccess() || res.Signaled {
		return true, failure.Wrap(failure.KindProvision, "install requirements with", l.Interpreter, &InstallError{Result: res})
	}

	if err := p.writeMarker(l.Marker); err != nil {
		return true, err
	}
	return true, nil
}

// writeMarker creates the marker exclusively. A marker that appeared in the
// meantime means another launcher finished the same install.
func (p *Provisioner) writeMarker(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return failure.Wrap(failure.KindFilesystem, "create marker", path, err)
	}
	stamp := strconv.FormatInt(p.now().Unix(), 10) + "\n"
	if _, err := f.WriteString(stamp); err != nil {
		f.Close()
		return failure.Wrap(failure.KindFilesystem, "write marker", path, err)
	}
	if err := f.Close(); err != nil {
		return failure.Wrap(failure.KindFilesystem, "write marker", path, err)
	}
	return nil
}

func (p *Provisioner) requirementsPath(l *layout.Layout) string {
	if filepath.IsAbs(l.Requirements) || p.WorkDir == "" {
		return l.Requirements
	}
	return filepath.Join(p.WorkDir, l.Requirements)
}

func (p *Provisioner) runner() Runner {
	if p.Runner == nil {
		return &runtime.Delegate{}
	}
	return p.Runner
}

func (p *Provisioner) stderr() io.Writer {
	if p.Stderr == nil {
		return os.Stderr
	}
	return p.Stderr
}

func (p *Provisioner) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
