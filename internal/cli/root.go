package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/feet-runtime/feet/internal/branding"
	"github.com/feet-runtime/feet/internal/config"
	"github.com/feet-runtime/feet/internal/launcher"
	"github.com/feet-runtime/feet/internal/locator"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// runFunc handles the arguments that followed the program name.
type runFunc func(cmd *cobra.Command, args []string) error

// newRootCmd builds the root command. Flag parsing is disabled so options
// such as --help reach the runtime untouched.
func newRootCmd(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   branding.CLIName() + " [command] [args...]",
		Short: branding.Description(),
		Long: branding.DisplayName() + ` unpacks its bundled runtime beside the executable on first use,
installs requirements once, and passes every argument to the runtime.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE:               run,
	}
}

// Execute runs the launcher with build info injected via ldflags and returns
// the process exit code.
func Execute(version, commit, date string) int {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	configureLogging(os.Stderr, "")
	cmd := newRootCmd(runLauncher)
	err := cmd.ExecuteContext(context.Background())
	return exitCode(cmd.ErrOrStderr(), err)
}

// runLauncher locates the executable, loads its settings and runs one
// launcher invocation.
func runLauncher(cmd *cobra.Command, args []string) error {
	img, err := locator.Locate()
	if err != nil {
		return err
	}
	settings, err := config.Load(img.Dir, img.Stem)
	if err != nil {
		return err
	}
	configureLogging(cmd.ErrOrStderr(), settings.LogLevel)
	if settings.File != "" {
		log.Debug("loaded config", "file", settings.File)
	}
	log.Debug("starting", "version", buildVersion, "commit", buildCommit, "built", buildDate, "exe", img.Path)

	l := &launcher.Launcher{
		Image:    img,
		Settings: settings,
		Version:  buildVersion,
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
		Stderr:   cmd.ErrOrStderr(),
	}
	code, err := l.Run(cmd.Context(), args)
	if err != nil || !code.IsSuccess() {
		return &ExitError{Code: code, Err: err}
	}
	return nil
}

// stderrOr returns w, or os.Stderr when w is nil.
func stderrOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}
