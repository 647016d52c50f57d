package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/feet-runtime/feet/internal/branding"
	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/launcher"
	"github.com/feet-runtime/feet/internal/runtime"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers. Err is nil when the code is the runtime's own exit status, which
// is not reported as an error.
type ExitError struct {
	Code runtime.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode reports err on w and returns the code to exit with.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	code := launcher.ExitCodeOf(err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		if exitErr.Err == nil {
			return int(code)
		}
		err = exitErr.Err
	}

	w = stderrOr(w)
	if failure.Is(err, failure.KindRefused) {
		fmt.Fprintln(w, err)
	} else {
		fmt.Fprintf(w, "%s: %v\n", branding.CLIName(), err)
	}
	return int(code)
}
