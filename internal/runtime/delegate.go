package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/failure"
)

// Result is the outcome of a child process that ran to completion.
type Result struct {
	Code     ExitCode
	Signaled bool   // terminated by a signal rather than exiting
	Signal   string // signal name when Signaled
}

// Message describes an abnormal termination, or returns "" for a normal exit.
func (r *Result) Message() string {
	if !r.Signaled {
		return ""
	}
	return fmt.Sprintf("process terminated by signal %s", r.Signal)
}

// Delegate runs a command with the launcher's standard streams.
type Delegate struct {
	// Stdin, Stdout and Stderr default to the launcher's own. When they are
	// *os.File the child inherits the descriptors directly.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Dir is the child's working directory; empty means the launcher's.
	Dir string
	// Env is the child's environment; nil means the launcher's.
	Env []string
}

// Run starts argv[0] with the remaining arguments verbatim and waits for it.
// While the child runs the launcher ignores interrupts: the terminal delivers
// them to the child as well, and the launcher must survive to report the
// child's status. A child that cannot be started is a failure.KindSpawn error;
// any exit status, including a signal, is a Result.
func (d *Delegate) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, failure.Wrap(failure.KindSpawn, "start", "", errors.New("empty command"))
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = d.Dir
	cmd.Env = d.Env
	cmd.Stdin = d.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = d.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = d.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	log.Debug("starting child process", "argv", argv)
	if err := cmd.Start(); err != nil {
		return nil, failure.Wrap(failure.KindSpawn, "start", argv[0], err)
	}

	err := cmd.Wait()
	if err == nil {
		return &Result{Code: ExitSuccess}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, failure.Wrap(failure.KindSpawn, "wait for", argv[0], err)
	}
	if sig, ok := terminatingSignal(exitErr.ProcessState); ok {
		return &Result{Code: ExitAbnormal, Signaled: true, Signal: sig}, nil
	}
	return &Result{Code: ExitCode(exitErr.ExitCode())}, nil
}
