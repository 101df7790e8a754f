package config

import "github.com/dshills/dtshconf/internal/config/diag"

// Errors reported by configuration operations. Load and Reload only ever
// return errors matching ErrLayer; every other kind is recorded as a
// diagnostic on the snapshot.
var (
	// ErrParse indicates a malformed line or section header.
	ErrParse = diag.ErrParse

	// ErrEscape indicates a malformed \u escape.
	ErrEscape = diag.ErrEscape

	// ErrInterpolation indicates an unknown, unterminated or too deep ${} reference.
	ErrInterpolation = diag.ErrInterpolation

	// ErrCircularReference indicates a ${} reference cycle.
	ErrCircularReference = diag.ErrCircularReference

	// ErrType indicates a value that does not match its declared type.
	ErrType = diag.ErrType

	// ErrUnknownKey indicates a read of a key that is neither configured nor declared.
	ErrUnknownKey = diag.ErrUnknownKey

	// ErrLayer indicates a settings file that could not be read or decoded.
	ErrLayer = diag.ErrLayer
)

// LayerError reports a settings file that could not be loaded.
type LayerError = diag.LayerError

// Diagnostic records a contained failure.
type Diagnostic = diag.Diagnostic
