package layout

// DescriptorFile is the name of the optional layout descriptor at the root of
// the runtime directory.
const DescriptorFile = "launcher.yaml"

// Built-in layout, used for anything the descriptor and overrides leave unset.
const (
	DefaultInterpreter  = "cpython/python"
	DefaultEntryScript  = "feet.py"
	DefaultMarker       = "requirements_installed.txt"
	DefaultRequirements = "requirements.txt"
)

// DefaultBootstrapArgs are passed after the entry script to install
// requirements.
var DefaultBootstrapArgs = []string{"library", "--update"}

// Descriptor is the content of launcher.yaml. Paths are slash-separated;
// Requirements is relative to the working directory, the rest to the runtime
// directory. Empty fields are unset.
type Descriptor struct {
	Interpreter        string   `yaml:"interpreter,omitempty" json:"interpreter,omitempty"`
	EntryScript        string   `yaml:"entry_script,omitempty" json:"entry_script,omitempty"`
	BootstrapArgs      []string `yaml:"bootstrap_args,omitempty" json:"bootstrap_args,omitempty"`
	Marker             string   `yaml:"marker,omitempty" json:"marker,omitempty"`
	Requirements       string   `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	MinLauncherVersion string   `yaml:"min_launcher_version,omitempty" json:"min_launcher_version,omitempty"`
}

// Overrides come from the launcher's own configuration and win over the
// descriptor. Unlike descriptor paths, an absolute Interpreter or EntryScript
// is used as is.
type Overrides struct {
	Interpreter   string
	EntryScript   string
	BootstrapArgs []string
	Marker        string
	Requirements  string
}

// Layout is a fully resolved runtime layout.
type Layout struct {
	Root          string   // runtime directory
	Interpreter   string   // absolute path of the interpreter executable
	EntryScript   string   // absolute path of the entry script
	BootstrapArgs []string // arguments after EntryScript for provisioning
	Marker        string   // absolute path of the provisioning marker
	Requirements  string   // requirements file, relative to the working directory unless absolute
}

// Command returns the interpreter argv for running the entry script with args.
func (l *Layout) Command(args ...string) []string {
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, l.Interpreter, l.EntryScript)
	return append(argv, args...)
}

// BootstrapCommand returns the interpreter argv that installs requirements.
func (l *Layout) BootstrapCommand() []string {
	return l.Command(l.BootstrapArgs...)
}
