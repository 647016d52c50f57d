package failure

import (
	"errors"
	"strings"
)

// Kind identifies which stage of the launcher failed.
type Kind int

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = iota
	// KindLocator means the running executable could not be located.
	KindLocator
	// KindArchive means the payload could not be opened or read, or it
	// contained an entry that is unsafe to extract.
	KindArchive
	// KindFilesystem means a directory, file, link, permission or rename
	// operation failed while materializing or removing the runtime.
	KindFilesystem
	// KindSpawn means the runtime interpreter could not be started.
	KindSpawn
	// KindProvision means the one-time dependency install ran but failed.
	KindProvision
	// KindLayout means the payload's layout descriptor is invalid or
	// requires a newer launcher.
	KindLayout
	// KindRefused means the launcher declined to run in the current directory.
	KindRefused
)

// String returns a short, lower-case name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLocator:
		return "locator"
	case KindArchive:
		return "archive"
	case KindFilesystem:
		return "filesystem"
	case KindSpawn:
		return "spawn"
	case KindProvision:
		return "provision"
	case KindLayout:
		return "layout"
	case KindRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// Error is a classified launcher failure.
type Error struct {
	Kind Kind
	// Op describes what was being attempted (e.g., "open payload").
	Op string
	// Path is the file or directory involved, if any.
	Path string
	// Err is the underlying cause, if any.
	Err error
}

// New returns a classified error with no underlying cause.
func New(kind Kind, op, path string) *Error {
	return &Error{Kind: kind, Op: op, Path: path}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg strings.Builder
	msg.WriteString(e.Op)
	if e.Path != "" {
		msg.WriteString(" ")
		msg.WriteString(e.Path)
	}
	if e.Err != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Err.Error())
	}
	return msg.String()
}

// Unwrap returns the underlying cause for use with errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the outermost classified error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err's chain contains a classified error of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var fe *Error
		if !errors.As(err, &fe) {
			return false
		}
		if fe.Kind == kind {
			return true
		}
		err = fe.Err
	}
	return false
}
