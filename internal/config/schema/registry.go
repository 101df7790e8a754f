package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSettingAlreadyRegistered is returned when a key is registered twice.
var ErrSettingAlreadyRegistered = errors.New("setting already registered")

// Registry is the schema table: key -> declared type -> default.
// A Registry is built once and then only read; it is not synchronized.
type Registry struct {
	settings map[string]*Setting
	order    []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{settings: make(map[string]*Setting)}
}

// Register adds a setting definition.
func (r *Registry) Register(setting Setting) error {
	if _, exists := r.settings[setting.Key]; exists {
		return fmt.Errorf("%w: %s", ErrSettingAlreadyRegistered, setting.Key)
	}
	if err := setting.validate(); err != nil {
		return err
	}

	s := setting
	r.settings[s.Key] = &s
	r.order = append(r.order, s.Key)
	return nil
}

// MustRegister registers a setting and panics on error.
func (r *Registry) MustRegister(setting Setting) {
	if err := r.Register(setting); err != nil {
		panic(err)
	}
}

// Get returns the definition for key, or nil.
func (r *Registry) Get(key string) *Setting {
	return r.settings[key]
}

// Has reports whether key is declared.
func (r *Registry) Has(key string) bool {
	_, ok := r.settings[key]
	return ok
}

// Len returns the number of declared settings.
func (r *Registry) Len() int {
	return len(r.settings)
}

// All returns all settings sorted by key.
func (r *Registry) All() []*Setting {
	out := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Ordered returns all settings in registration order.
func (r *Registry) Ordered() []*Setting {
	out := make([]*Setting, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.settings[k])
	}
	return out
}

// Default returns the default Value for key and whether key is declared.
func (r *Registry) Default(key string) (Value, bool) {
	s := r.settings[key]
	if s == nil {
		return Value{}, false
	}
	return s.DefaultValue(), true
}
