// Package rundir manages the runtime directory that sits beside the launcher
// binary: its location, freshness against the binary, removal, the advisory
// lock path, and cleanup of staging directories abandoned by interrupted
// extractions.
package rundir
