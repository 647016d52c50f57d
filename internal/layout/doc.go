// Package layout resolves where things live inside an extracted runtime
// directory: the interpreter, the entry script, the provisioning marker and
// the bootstrap arguments. A payload may ship an optional launcher.yaml at
// its root to override the built-in layout; the descriptor is validated
// against an embedded JSON Schema and may require a minimum launcher release.
package layout
