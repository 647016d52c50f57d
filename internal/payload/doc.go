// Package payload reads the launcher's bundled zip archive and materializes
// it as a runtime directory.
//
// The archive may be appended to the launcher executable or sit beside it.
// Entries are extracted in stored order into a uniquely named temporary
// directory; only after every entry has been written is the staging root
// renamed into place, so the canonical runtime directory never holds a
// partial extraction. Entry names that would escape the extraction root are
// rejected. Progress is reported through an Observer so callers can render it
// or discard it.
package payload
