package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/feet-runtime/feet/internal/branding"
	"github.com/feet-runtime/feet/internal/layout"
	"github.com/feet-runtime/feet/internal/payload"
)

const fileType = "yaml"

// Configuration keys.
const (
	KeyLogLevel      = "log_level"
	KeyProgress      = "progress"
	KeyLock          = "lock"
	KeyPayload       = "payload"
	KeyStagingName   = "staging_name"
	KeyRuntimeSuffix = "runtime_suffix"
	KeyBuildMarker   = "build_marker"
	KeyMaxEntryBytes = "max_entry_bytes"

	// Layout overrides. These have no defaults here so that an unset key
	// leaves the payload's own descriptor in charge.
	KeyInterpreter   = "interpreter"
	KeyEntryScript   = "entry_script"
	KeyBootstrapArgs = "bootstrap_args"
	KeyMarker        = "marker"
	KeyRequirements  = "requirements"
)

// DefaultBuildMarker is the file whose presence in the working directory
// means the launcher is being run inside its own source tree.
const DefaultBuildMarker = "feetmaker.py"

// Settings is the resolved launcher configuration.
type Settings struct {
	LogLevel      string
	Progress      bool
	Lock          bool
	Payload       string
	StagingName   string
	RuntimeSuffix string
	BuildMarker   string
	MaxEntryBytes int64

	Interpreter   string
	EntryScript   string
	BootstrapArgs []string
	Marker        string
	Requirements  string

	// File is the config file that was read, or "" if there was none.
	File string
}

// FilePath returns the config file for a launcher with the given stem in dir.
func FilePath(dir, stem string) string {
	return filepath.Join(dir, stem+"."+fileType)
}

// Load resolves settings for the launcher with the given stem living in dir.
// A missing config file is not an error; a malformed one is.
func Load(dir, stem string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.AutomaticEnv()

	path := FilePath(dir, stem)
	file := ""
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)
		v.SetConfigType(fileType)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		file = path
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	s := &Settings{
		LogLevel:      v.GetString(KeyLogLevel),
		Progress:      v.GetBool(KeyProgress),
		Lock:          v.GetBool(KeyLock),
		Payload:       v.GetString(KeyPayload),
		StagingName:   v.GetString(KeyStagingName),
		RuntimeSuffix: v.GetString(KeyRuntimeSuffix),
		BuildMarker:   v.GetString(KeyBuildMarker),
		MaxEntryBytes: v.GetInt64(KeyMaxEntryBytes),
		Interpreter:   v.GetString(KeyInterpreter),
		EntryScript:   v.GetString(KeyEntryScript),
		BootstrapArgs: v.GetStringSlice(KeyBootstrapArgs),
		Marker:        v.GetString(KeyMarker),
		Requirements:  v.GetString(KeyRequirements),
		File:          file,
	}
	if s.Payload != "" && !filepath.IsAbs(s.Payload) {
		s.Payload = filepath.Join(dir, s.Payload)
	}
	if s.RuntimeSuffix == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyRuntimeSuffix)
	}
	return s, nil
}

// Overrides returns the layout settings that take precedence over the
// payload's descriptor.
func (s *Settings) Overrides() layout.Overrides {
	return layout.Overrides{
		Interpreter:   s.Interpreter,
		EntryScript:   s.EntryScript,
		BootstrapArgs: s.BootstrapArgs,
		Marker:        s.Marker,
		Requirements:  s.Requirements,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyProgress, true)
	v.SetDefault(KeyLock, true)
	v.SetDefault(KeyPayload, "")
	v.SetDefault(KeyStagingName, branding.StagingName())
	v.SetDefault(KeyRuntimeSuffix, branding.RuntimeSuffix())
	v.SetDefault(KeyBuildMarker, DefaultBuildMarker)
	v.SetDefault(KeyMaxEntryBytes, payload.DefaultMaxEntryBytes)
}
