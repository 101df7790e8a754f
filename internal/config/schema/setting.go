// Package schema holds the settings schema table (key, declared type,
// default, allowed tokens) and the coercion of resolved strings into typed
// values.
package schema

import (
	"fmt"
	"strings"

	"github.com/dshills/dtshconf/internal/config/diag"
)

// Setting declares one configuration key.
type Setting struct {
	// Key is the full dotted key (e.g., "dtsh.pref.list.headers").
	Key string

	// Type is the declared type.
	Type Type

	// Default is the documented default: a string, bool, integer or float
	// matching Type.
	Default any

	// Enum, when set, restricts a string setting to a closed set of tokens.
	Enum []string

	// Description is human-readable documentation.
	Description string
}

// DefaultValue returns Default as a Value. A missing or mistyped default
// yields the zero value of the declared type.
func (s *Setting) DefaultValue() Value {
	v, err := ValueOf(s.Default)
	if err != nil || v.Type() != s.Type {
		return Zero(s.Type)
	}
	return v
}

// Coerce converts a resolved string to this setting's type and checks the
// enum restriction.
func (s *Setting) Coerce(resolved string) (Value, error) {
	v, err := Coerce(s.Key, resolved, s.Type)
	if err != nil {
		return Value{}, err
	}
	if len(s.Enum) > 0 && !s.allows(v.Str()) {
		return Value{}, &diag.TypeError{
			Key:      s.Key,
			Expected: "enum",
			Value:    resolved,
			Reason:   "want one of " + strings.Join(s.Enum, ", "),
		}
	}
	return v, nil
}

// validate checks the definition itself.
func (s *Setting) validate() error {
	if s.Key == "" || !strings.Contains(s.Key, ".") {
		return fmt.Errorf("setting key %q must be section.name", s.Key)
	}
	v, err := ValueOf(s.Default)
	if err != nil {
		return fmt.Errorf("setting %s: %w", s.Key, err)
	}
	if v.Type() != s.Type {
		return fmt.Errorf("setting %s: default has type %s, declared %s", s.Key, v.Type(), s.Type)
	}
	if len(s.Enum) > 0 {
		if s.Type != TypeString {
			return fmt.Errorf("setting %s: enum requires string type", s.Key)
		}
		if !s.allows(v.Str()) {
			return fmt.Errorf("setting %s: default %q not in enum", s.Key, v.Str())
		}
	}
	return nil
}

func (s *Setting) allows(token string) bool {
	for _, e := range s.Enum {
		if e == token {
			return true
		}
	}
	return false
}

// Section returns the section part of the key.
func (s *Setting) Section() string {
	section, _, _ := strings.Cut(s.Key, ".")
	return section
}

// Name returns the key without its section.
func (s *Setting) Name() string {
	_, name, _ := strings.Cut(s.Key, ".")
	return name
}
