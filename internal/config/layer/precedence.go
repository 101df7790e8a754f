package layer

// Merge priorities. Higher values override lower values.
const (
	PriorityBuiltin = 0
	PriorityUser    = 100
	// PriorityFile is the base priority for extra files; the n-th extra file
	// gets PriorityFile+n so that files given later win.
	PriorityFile    = 200
	PriorityEnv     = 500
	PrioritySession = 1000
)

// Source indicates where a configuration layer came from.
type Source uint8

const (
	// SourceBuiltin is the built-in default manifest.
	SourceBuiltin Source = iota
	// SourceUser is the user's file ($XDG_CONFIG_HOME/dtsh/dtsh.ini).
	SourceUser
	// SourceFile is an extra override file given on the command line.
	SourceFile
	// SourceEnv is the DTSH_* environment variables.
	SourceEnv
	// SourceSession is in-memory overrides.
	SourceSession
	// SourceMerged marks a layer produced by Merge.
	SourceMerged
)

var sourceInfo = [...]struct {
	str      string
	layer    string
	priority int
}{
	SourceBuiltin: {"builtin", "defaults", PriorityBuiltin},
	SourceUser:    {"user", "user", PriorityUser},
	SourceFile:    {"file", "file", PriorityFile},
	SourceEnv:     {"environment", "environment", PriorityEnv},
	SourceSession: {"session", "session", PrioritySession},
	SourceMerged:  {"merged", "merged", PriorityBuiltin},
}

func (s Source) known() bool { return int(s) < len(sourceInfo) }

func (s Source) String() string {
	if !s.known() {
		return "unknown"
	}
	return sourceInfo[s].str
}

// LayerName is the name a layer from s goes by. Extra files append their
// position ("file1").
func (s Source) LayerName() string {
	if !s.known() {
		return "unknown"
	}
	return sourceInfo[s].layer
}

// Priority is the merge priority of layers from s.
func (s Source) Priority() int {
	if !s.known() {
		return PriorityBuiltin
	}
	return sourceInfo[s].priority
}
