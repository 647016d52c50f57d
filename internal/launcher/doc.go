// Package launcher drives one invocation of the launcher binary: refuse to run
// inside the source tree, handle local commands, make sure the runtime
// directory beside the binary is extracted, fresh and provisioned, and finally
// hand the command line to the bundled interpreter and report its exit status.
package launcher
