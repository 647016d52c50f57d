//go:build !unix

package runtime

import "os"

// terminatingSignal reports abnormal termination where the platform has no
// signal status: a process that ended without an exit code.
func terminatingSignal(ps *os.ProcessState) (string, bool) {
	if ps.ExitCode() >= 0 {
		return "", false
	}
	return "unknown", true
}
