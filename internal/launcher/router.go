package launcher

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/rundir"
)

// Handler implements a command the launcher handles itself instead of
// forwarding it to the runtime.
type Handler func(ctx context.Context, l *Launcher, dir rundir.Directory) error

// Router maps a first argument to a local command.
type Router map[string]Handler

// DefaultRouter returns the built-in local commands.
func DefaultRouter() Router {
	return Router{
		"clean": Clean,
	}
}

// Route returns the handler for args, if the first argument names one.
func (r Router) Route(args []string) (Handler, bool) {
	if len(args) == 0 {
		return nil, false
	}
	h, ok := r[args[0]]
	return h, ok
}

// Clean removes the runtime directory and any orphaned staging directories.
// The runtime cannot delete itself while running, so this is done by the
// launcher. A missing directory is not an error.
func Clean(_ context.Context, l *Launcher, dir rundir.Directory) error {
	lock := l.acquireLock(dir)
	defer lock.Release()

	if lock != nil {
		dir.SweepStaging()
	}
	if err := dir.Remove(); err != nil {
		return err
	}
	log.Debug("runtime directory removed", "path", dir.Path)
	return nil
}
