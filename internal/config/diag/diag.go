// Package diag defines the error taxonomy of the configuration engine and
// the diagnostics recorded when a key falls back to its default.
//
// Every key-level failure is contained: it is wrapped in one of the typed
// errors below, recorded as a Diagnostic and never aborts a load.
package diag

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors, one per error kind. Typed errors match them via Is.
var (
	// ErrParse indicates a malformed line or section header.
	ErrParse = errors.New("parse error")

	// ErrEscape indicates a malformed \u escape.
	ErrEscape = errors.New("escape error")

	// ErrInterpolation indicates an unknown or unterminated ${} reference.
	ErrInterpolation = errors.New("interpolation error")

	// ErrCircularReference indicates a ${} reference cycle.
	ErrCircularReference = errors.New("circular reference")

	// ErrDepthExceeded indicates a reference chain deeper than the bound.
	ErrDepthExceeded = errors.New("interpolation depth exceeded")

	// ErrType indicates a value that does not match its declared type or enum.
	ErrType = errors.New("type error")

	// ErrUnknownKey indicates a query for a key absent from every layer and
	// from the schema.
	ErrUnknownKey = errors.New("unknown key")

	// ErrLayer indicates an override source that could not be read or decoded.
	ErrLayer = errors.New("layer error")
)

// Kind categorizes a diagnostic.
type Kind uint8

const (
	// KindParse is a malformed line or section.
	KindParse Kind = iota
	// KindEscape is a malformed \u escape.
	KindEscape
	// KindInterpolation is an unknown, unterminated or too deep reference.
	KindInterpolation
	// KindCircular is a reference cycle.
	KindCircular
	// KindType is a coercion or enum failure.
	KindType
	// KindAccess is a query for an absent key or with the wrong type.
	KindAccess
	// KindLayer is an unreadable override source.
	KindLayer
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindEscape:
		return "escape"
	case KindInterpolation:
		return "interpolation"
	case KindCircular:
		return "circular"
	case KindType:
		return "type"
	case KindAccess:
		return "access"
	case KindLayer:
		return "layer"
	default:
		return "unknown"
	}
}

// KindOf maps an error to its diagnostic kind.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrEscape):
		return KindEscape
	case errors.Is(err, ErrCircularReference):
		return KindCircular
	case errors.Is(err, ErrInterpolation), errors.Is(err, ErrDepthExceeded):
		return KindInterpolation
	case errors.Is(err, ErrType):
		return KindType
	case errors.Is(err, ErrLayer):
		return KindLayer
	default:
		return KindAccess
	}
}

// ParseError describes a line that could not be parsed.
type ParseError struct {
	// Layer names the source the line came from.
	Layer string
	// Line is the 1-based line number.
	Line int
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Layer, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Layer, e.Message)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// EscapeError describes a malformed \u escape.
type EscapeError struct {
	Key string
	// Offset is the byte offset of the backslash in the raw value.
	Offset int
	// Sequence is the offending text.
	Sequence string
}

// Error implements the error interface.
func (e *EscapeError) Error() string {
	return fmt.Sprintf("%s: malformed escape %q at offset %d (want \\u and 4 hex digits)", e.Key, e.Sequence, e.Offset)
}

// Is reports whether target is ErrEscape.
func (e *EscapeError) Is(target error) bool {
	return target == ErrEscape
}

// InterpolationError describes a ${} reference that could not be resolved.
type InterpolationError struct {
	Key string
	// Ref is the referenced name as written.
	Ref string
	// Err is ErrInterpolation, ErrCircularReference or ErrDepthExceeded, or
	// the failure of the referenced key.
	Err error
}

// Error implements the error interface.
func (e *InterpolationError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("%s: reference ${%s}: %v", e.Key, e.Ref, e.Err)
}

// Unwrap returns the underlying error.
func (e *InterpolationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInterpolation. Circular and depth errors
// additionally match through Unwrap.
func (e *InterpolationError) Is(target error) bool {
	return target == ErrInterpolation && !errors.Is(e.Err, ErrCircularReference)
}

// TypeError describes a value that cannot be coerced to its declared type.
type TypeError struct {
	Key string
	// Expected is the declared type name.
	Expected string
	// Value is the resolved string.
	Value string
	// Reason is optional detail (e.g. the allowed enum tokens).
	Reason string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("type error for %s: %q is not a valid %s: %s", e.Key, e.Value, e.Expected, e.Reason)
	}
	return fmt.Sprintf("type error for %s: %q is not a valid %s", e.Key, e.Value, e.Expected)
}

// Is reports whether target is ErrType.
func (e *TypeError) Is(target error) bool {
	return target == ErrType
}

// LayerError reports an override source that could not be loaded at all.
type LayerError struct {
	Layer string
	Path  string
	Err   error
}

// Error implements the error interface.
func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %s (%s): %v", e.Layer, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LayerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrLayer.
func (e *LayerError) Is(target error) bool {
	return target == ErrLayer
}

// Diagnostic records one contained failure.
type Diagnostic struct {
	// Key is the full dotted key, empty for line-level parse errors.
	Key string
	// Layer names the layer that supplied the offending entry.
	Layer string
	Kind  Kind
	Err   error
}

// Error implements the error interface so diagnostics can be joined.
func (d Diagnostic) Error() string {
	return d.Err.Error()
}

// New creates a diagnostic, deriving the kind from err.
func New(key, layer string, err error) Diagnostic {
	return Diagnostic{Key: key, Layer: layer, Kind: KindOf(err), Err: err}
}

// Sort orders diagnostics by key, then layer, then kind.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Key != ds[j].Key {
			return ds[i].Key < ds[j].Key
		}
		if ds[i].Layer != ds[j].Layer {
			return ds[i].Layer < ds[j].Layer
		}
		return ds[i].Kind < ds[j].Kind
	})
}
