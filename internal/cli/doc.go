// Package cli is the launcher's command-line entry point. The root command
// accepts no flags or subcommands of its own: every argument is handed to the
// launcher verbatim, which either handles it locally (clean) or forwards it to
// the bundled runtime. Execute turns the outcome into a process exit code.
package cli
