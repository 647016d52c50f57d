package layout

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
)

// DevVersion is the version string of a build without release ldflags.
const DevVersion = "dev"

// CompareVersions compares two version strings using semver.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
// Handles "v" prefix tolerance (strips leading "v" before parsing).
func CompareVersions(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	bv, err := parseSemver(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return av.Compare(bv), nil
}

// CheckLauncherVersion fails when minimum is set and the running launcher is
// an older release. Development builds and unparsable launcher versions are
// never rejected.
func CheckLauncherVersion(current, minimum string) error {
	if minimum == "" {
		return nil
	}
	if _, err := parseSemver(minimum); err != nil {
		return fmt.Errorf("invalid min_launcher_version %q: %w", minimum, err)
	}
	if current == "" || current == DevVersion {
		return nil
	}
	cmp, err := CompareVersions(current, minimum)
	if err != nil {
		log.Debug("skipping launcher version check", "version", current, "err", err)
		return nil
	}
	if cmp < 0 {
		return fmt.Errorf("payload requires launcher %s or newer, this is %s", minimum, current)
	}
	return nil
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(version, "v")
	return semver.NewVersion(version)
}
