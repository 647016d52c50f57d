// Package provision performs the one-time dependency install for a runtime
// directory. The install runs when a requirements file is present in the
// working directory and the runtime has no marker yet; the marker is written
// only after the install succeeded, so a failed install is retried on the
// next launch.
package provision
