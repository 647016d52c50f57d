package layout

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/platform"
)

// Defaults returns the built-in descriptor.
func Defaults() Descriptor {
	return Descriptor{
		Interpreter:   DefaultInterpreter,
		EntryScript:   DefaultEntryScript,
		BootstrapArgs: slices.Clone(DefaultBootstrapArgs),
		Marker:        DefaultMarker,
		Requirements:  DefaultRequirements,
	}
}

// Resolve computes the layout of the runtime directory at root. Precedence,
// lowest first: built-in defaults, root/launcher.yaml when present, ov. The
// launcher version is checked against the descriptor's minimum. All errors
// are failure.KindLayout.
func Resolve(root, launcherVersion string, ov Overrides) (*Layout, error) {
	d := Defaults()

	descPath := filepath.Join(root, DescriptorFile)
	desc, err := load(descPath)
	if err != nil {
		return nil, err
	}
	if desc != nil {
		log.Debug("applying layout descriptor", "path", descPath)
		if err := CheckLauncherVersion(launcherVersion, desc.MinLauncherVersion); err != nil {
			return nil, failure.Wrap(failure.KindLayout, "check layout descriptor", descPath, err)
		}
		merge(&d, *desc)
	}
	merge(&d, Descriptor{
		Interpreter:   ov.Interpreter,
		EntryScript:   ov.EntryScript,
		BootstrapArgs: ov.BootstrapArgs,
		Marker:        ov.Marker,
		Requirements:  ov.Requirements,
	})

	return &Layout{
		Root:          root,
		Interpreter:   platform.ExecutableName(join(root, d.Interpreter)),
		EntryScript:   join(root, d.EntryScript),
		BootstrapArgs: d.BootstrapArgs,
		Marker:        join(root, d.Marker),
		Requirements:  filepath.FromSlash(d.Requirements),
	}, nil
}

// load validates and parses the descriptor at path. A missing descriptor
// yields nil.
func load(path string) (*Descriptor, error) {
	data, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, failure.Wrap(failure.KindLayout, "read layout descriptor", path, errors.Unwrap(err))
	}

	result, err := Validate(data)
	if err != nil {
		return nil, failure.Wrap(failure.KindLayout, "validate layout descriptor", path, err)
	}
	if !result.Valid {
		return nil, failure.Wrap(failure.KindLayout, "validate layout descriptor", path, &InvalidError{Issues: result.Issues})
	}

	d, err := Parse(data)
	if err != nil {
		return nil, failure.Wrap(failure.KindLayout, "parse layout descriptor", path, err)
	}
	return d, nil
}

// merge copies every set field of src onto dst.
func merge(dst *Descriptor, src Descriptor) {
	if src.Interpreter != "" {
		dst.Interpreter = src.Interpreter
	}
	if src.EntryScript != "" {
		dst.EntryScript = src.EntryScript
	}
	if len(src.BootstrapArgs) > 0 {
		dst.BootstrapArgs = slices.Clone(src.BootstrapArgs)
	}
	if src.Marker != "" {
		dst.Marker = src.Marker
	}
	if src.Requirements != "" {
		dst.Requirements = src.Requirements
	}
	if src.MinLauncherVersion != "" {
		dst.MinLauncherVersion = src.MinLauncherVersion
	}
}

// join resolves a slash-separated path against root unless it is absolute.
func join(root, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
