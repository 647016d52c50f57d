package payload

import (
	"fmt"
	"path"
	"strings"
)

// linkSet records the symlink entries of one extraction so that names and
// link targets can be checked without consulting the disk. No entry may live
// at or below a symlink, and no link target may walk through another link as
// a directory, so a purely lexical resolution of every path is exact.
type linkSet struct {
	staging   string
	names     map[string]bool // clean names of symlink entries
	traversed map[string]bool // paths some link target walks through
}

func newLinkSet(staging string) *linkSet {
	return &linkSet{
		staging:   staging,
		names:     make(map[string]bool),
		traversed: make(map[string]bool),
	}
}

// checkName rejects an entry that is or would be written through a symlink
// extracted earlier.
func (s *linkSet) checkName(clean string) error {
	for p := clean; p != "." && p != "/"; p = path.Dir(p) {
		if s.names[p] {
			return fmt.Errorf("%w: %q is inside symlink %q", ErrUnsafeName, clean, p)
		}
	}
	return nil
}

// add validates a symlink entry at clean pointing to the slash-separated
// target and records it. The target must stay inside the staging root at
// every step of its resolution.
func (s *linkSet) add(clean, target string) error {
	if err := s.checkName(clean); err != nil {
		return err
	}
	if s.traversed[clean] {
		return fmt.Errorf("%w: symlink %q replaces a directory another link resolves through", ErrUnsafeName, clean)
	}
	if path.IsAbs(target) {
		return fmt.Errorf("%w: symlink target %q is absolute", ErrUnsafeName, target)
	}

	cur := path.Dir(clean)
	var walked []string
	for _, part := range strings.Split(target, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			walked = append(walked, cur)
			cur = path.Dir(cur)
		default:
			walked = append(walked, cur)
			cur = path.Join(cur, part)
		}
		if !within(cur, s.staging) {
			return fmt.Errorf("%w: symlink target %q leaves the runtime directory", ErrUnsafeName, target)
		}
	}

	for _, p := range walked {
		if s.names[p] {
			return fmt.Errorf("%w: symlink target %q resolves through symlink %q", ErrUnsafeName, target, p)
		}
	}
	for _, p := range walked {
		s.traversed[p] = true
	}
	s.names[clean] = true
	return nil
}
