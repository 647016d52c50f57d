package cli

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/branding"
)

// defaultLevel applies when the configured level is empty or unknown.
const defaultLevel = log.WarnLevel

// configureLogging installs the process-wide logger on w at the named level.
func configureLogging(w io.Writer, level string) {
	lvl := defaultLevel
	var parseErr error
	if level != "" {
		if parsed, err := log.ParseLevel(level); err == nil {
			lvl = parsed
		} else {
			parseErr = err
		}
	}

	log.SetDefault(log.NewWithOptions(stderrOr(w), log.Options{
		Prefix: branding.CLIName(),
		Level:  lvl,
	}))
	if parseErr != nil {
		log.Warn("ignoring log level", "value", level, "err", parseErr)
	}
}
