package runtime

import "strconv"

// ExitCode represents a process exit status code.
// Exit codes are in the range 0-255 on POSIX systems.
// The zero value (0) means success.
type ExitCode int

const (
	// ExitSuccess is reported by a child that completed normally.
	ExitSuccess ExitCode = 0
	// ExitAbnormal is reported when the child was terminated without an exit
	// code of its own, e.g. by a signal.
	ExitAbnormal ExitCode = 255
)

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
