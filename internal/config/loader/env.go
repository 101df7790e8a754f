package loader

import (
	"os"
	"strings"

	"github.com/dshills/dtshconf/internal/config/layer"
	"github.com/dshills/dtshconf/internal/config/schema"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "DTSH_"

// EnvLoader loads overrides from environment variables.
//
// Each declared setting maps to one variable: the prefix followed by the
// setting name with dots replaced by underscores, upper-cased
// (dtsh.pref.list.headers -> DTSH_PREF_LIST_HEADERS). Values are taken as
// raw text and go through the same resolution as file values.
type EnvLoader struct {
	prefix  string
	mapping map[string]string // Env var -> full key
	environ func() []string
}

// NewEnvLoader creates a loader whose mapping is derived from reg.
func NewEnvLoader(prefix string, reg *schema.Registry) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		environ: os.Environ,
	}
	for _, s := range reg.Ordered() {
		l.mapping[l.EnvName(s.Name())] = s.Key
	}
	return l
}

// WithEnviron replaces the environment source, mainly for tests.
func (l *EnvLoader) WithEnviron(environ func() []string) *EnvLoader {
	if environ != nil {
		l.environ = environ
	}
	return l
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, key string) {
	l.mapping[envVar] = key
}

// EnvName returns the variable name for a setting name.
func (l *EnvLoader) EnvName(name string) string {
	name = strings.NewReplacer(".", "_", "-", "_").Replace(name)
	return l.prefix + strings.ToUpper(name)
}

// Mapping returns a copy of the variable -> key mapping.
func (l *EnvLoader) Mapping() map[string]string {
	out := make(map[string]string, len(l.mapping))
	for k, v := range l.mapping {
		out[k] = v
	}
	return out
}

// Load reads the mapped variables. Empty values are valid values, not unset.
// Unmapped variables with the prefix are ignored. Returns a nil layer when
// no mapped variable is set.
func (l *EnvLoader) Load() (*layer.Layer, []error, error) {
	name := layer.SourceEnv.LayerName()
	out := layer.NewLayer(name, layer.SourceEnv, layer.SourceEnv.Priority())

	for _, kv := range l.environ() {
		env, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(env, l.prefix) {
			continue
		}
		key, mapped := l.mapping[env]
		if !mapped {
			continue
		}
		out.Entries[key] = layer.RawEntry{Key: key, Value: val, Layer: name, Path: "$" + env}
	}

	if out.Len() == 0 {
		return nil, nil, nil
	}
	return out, nil, nil
}
