// Package branding provides compile-time identity values for the launcher.
//
// Forks that ship their own runtime edit branding.yaml before building; Go's
// //go:embed bakes it into the binary so a renamed executable keeps its
// identity and environment prefix.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName       string `yaml:"cli_name"`
	DisplayName   string `yaml:"display_name"`
	Description   string `yaml:"description"`
	EnvPrefix     string `yaml:"env_prefix"`
	RuntimeSuffix string `yaml:"runtime_suffix"`
	StagingName   string `yaml:"staging_name"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:       "feet",
			DisplayName:   "Feet",
			Description:   "Self-extracting launcher for a bundled runtime",
			EnvPrefix:     "FEET",
			RuntimeSuffix: "_data",
			StagingName:   "feet",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the launcher's canonical name (e.g., "feet").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "Feet").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// EnvPrefix returns the environment variable prefix (e.g., "FEET").
func EnvPrefix() string { load(); return defaults.EnvPrefix }


// RuntimeSuffix returns the suffix appended to the executable stem to name the
// runtime directory (e.g., "_data" → "feet_data").
func RuntimeSuffix() string { load(); return defaults.RuntimeSuffix }

// StagingName returns the top-level directory name payloads are built under.
func StagingName() string { load(); return defaults.StagingName }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("PAYLOAD") → "FEET_PAYLOAD".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
