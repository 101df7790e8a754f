package store

import (
	"fmt"

	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/schema"
)

// Get returns the value of key as type t. It never fails: a key of another
// declared type yields the key's default converted to t (or the zero value
// of t when that is impossible), and an unknown key yields the zero value of
// t. Both cases record an access diagnostic, once per key and type.
//
// Undeclared keys configured in a layer are held as strings; reading them
// as another type coerces their text.
func (s *Store) Get(key string, t schema.Type) schema.Value {
	e, ok := s.entries[key]
	if !ok {
		s.record(diag.Diagnostic{
			Key:  key,
			Kind: diag.KindAccess,
			Err:  fmt.Errorf("%w: %s", diag.ErrUnknownKey, key),
		}, t.String())
		return schema.Zero(t)
	}

	if e.Value.Type() == t {
		return e.Value
	}

	if !e.Declared {
		v, err := schema.Coerce(key, e.Text, t)
		if err == nil {
			return v
		}
		s.record(diag.Diagnostic{Key: key, Layer: e.Layer, Kind: diag.KindAccess, Err: err}, t.String())
		return schema.Zero(t)
	}

	s.record(diag.Diagnostic{
		Key:   key,
		Layer: e.Layer,
		Kind:  diag.KindAccess,
		Err:   fmt.Errorf("%s is declared %s, read as %s", key, e.Value.Type(), t),
	}, t.String())
	def, _ := s.schema.Default(key)
	if v, err := schema.Coerce(key, def.String(), t); err == nil {
		return v
	}
	return schema.Zero(t)
}

// String returns a string setting.
func (s *Store) String(key string) string {
	return s.Get(key, schema.TypeString).Str()
}

// Bool returns a bool setting.
func (s *Store) Bool(key string) bool {
	return s.Get(key, schema.TypeBool).Bool()
}

// Int returns an integer setting.
func (s *Store) Int(key string) int64 {
	return s.Get(key, schema.TypeInt).Int()
}

// Float returns a float setting.
func (s *Store) Float(key string) float64 {
	return s.Get(key, schema.TypeFloat).Float()
}

// Actionable returns an actionable-type setting as its closed variant.
func (s *Store) Actionable(key string) schema.ActionableType {
	a, err := schema.ParseActionableType(s.String(key))
	if err == nil {
		return a
	}
	s.record(diag.Diagnostic{Key: key, Layer: s.Origin(key), Kind: diag.KindAccess, Err: err}, "actionable")
	if def, ok := s.schema.Default(key); ok {
		if a, err := schema.ParseActionableType(def.Str()); err == nil {
			return a
		}
	}
	return schema.ActionableNone
}
