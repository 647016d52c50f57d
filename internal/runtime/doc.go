// Package runtime runs the bundled interpreter as a child process. The child
// inherits the launcher's standard streams; its exit status is reported as a
// Result so the launcher can exit with the same code.
package runtime
