// Package failure classifies the launcher's fatal errors. Each component wraps
// its underlying cause in an *Error carrying a Kind (locator, archive,
// filesystem, spawn, provision, layout, refused) so the single top-level
// handler can print one diagnostic and pick the exit code without string
// matching.
package failure
