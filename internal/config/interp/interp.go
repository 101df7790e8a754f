// Package interp expands \uXXXX escapes and ${key} references.
//
// Resolution runs over the whole merged key space at once so that any key may
// reference any other, whichever layer supplied it. Results are memoized;
// a key whose expansion fails yields an error instead of a value and every
// key depending on it fails with the same kind.
package interp

import (
	"errors"
	"strings"

	"github.com/dshills/dtshconf/internal/config/diag"
)

// DefaultMaxDepth bounds reference chains.
const DefaultMaxDepth = 32

// Options configures a Resolver.
type Options struct {
	// MaxDepth bounds the length of a ${} chain. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Resolver resolves one raw key space. It is not safe for concurrent use.
type Resolver struct {
	raw      map[string]string
	maxDepth int

	resolved map[string]string
	// height is the length of the longest reference chain below a
	// resolved key, so that memoized keys honour the depth bound too.
	height   map[string]int
	failed   map[string]error
	// active holds keys currently being expanded, for cycle detection.
	active   map[string]bool
}

// New creates a resolver over raw, which maps full dotted keys
// ("section.name") to unresolved values.
func New(raw map[string]string, opts Options) *Resolver {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Resolver{
		raw:      raw,
		maxDepth: depth,
		resolved: make(map[string]string, len(raw)),
		height:   make(map[string]int, len(raw)),
		failed:   make(map[string]error),
		active:   make(map[string]bool),
	}
}

// Resolve is a convenience wrapper that resolves every key in raw.
func Resolve(raw map[string]string, opts Options) (map[string]string, map[string]error) {
	r := New(raw, opts)
	r.All()
	return r.resolved, r.failed
}

// All resolves every key and returns the successful values and the failures.
// Every key of the raw space ends up in exactly one of the two maps.
func (r *Resolver) All() (map[string]string, map[string]error) {
	for key := range r.raw {
		_, _ = r.Key(key)
	}
	return r.resolved, r.failed
}

// Key returns the resolved value of key.
func (r *Resolver) Key(key string) (string, error) {
	v, _, err := r.key(key, 0)
	if _, known := r.raw[key]; err != nil && known {
		// A chain too deep from depth zero is too deep from anywhere.
		r.failed[key] = err
	}
	return v, err
}

// key resolves key reached through depth references and returns its value
// and height.
func (r *Resolver) key(key string, depth int) (string, int, error) {
	if v, ok := r.resolved[key]; ok {
		if depth+r.height[key] > r.maxDepth {
			return "", 0, &diag.InterpolationError{Key: key, Err: diag.ErrDepthExceeded}
		}
		return v, r.height[key], nil
	}
	if err, ok := r.failed[key]; ok {
		return "", 0, err
	}
	raw, ok := r.raw[key]
	if !ok {
		return "", 0, diag.ErrUnknownKey
	}

	if r.active[key] {
		return "", 0, &diag.InterpolationError{Key: key, Err: diag.ErrCircularReference}
	}
	if depth > r.maxDepth {
		// Not memoized: the same key may resolve fine from a shallower start.
		return "", 0, &diag.InterpolationError{Key: key, Err: diag.ErrDepthExceeded}
	}

	r.active[key] = true
	v, h, err := r.expand(key, raw, depth)
	delete(r.active, key)

	if err != nil {
		if !errors.Is(err, diag.ErrDepthExceeded) {
			r.failed[key] = err
		}
		return "", 0, err
	}
	r.resolved[key] = v
	r.height[key] = h
	return v, h, nil
}

// expand processes one raw value.
func (r *Resolver) expand(key, raw string, depth int) (string, int, error) {
	var b strings.Builder
	b.Grow(len(raw))
	height := 0

	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw) && raw[i+1] == 'u':
			ch, n, err := decodeEscape(key, raw, i)
			if err != nil {
				return "", 0, err
			}
			b.WriteRune(ch)
			i += n

		case c == '$' && i+1 < len(raw) && raw[i+1] == '$':
			b.WriteByte('$')
			i += 2

		case c == '$' && i+1 < len(raw) && raw[i+1] == '{':
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return "", 0, &diag.InterpolationError{
					Key: key,
					Ref: raw[i+2:],
					Err: errors.New("unterminated reference"),
				}
			}
			ref := raw[i+2 : i+2+end]
			v, h, err := r.reference(key, ref, depth)
			if err != nil {
				return "", 0, err
			}
			height = max(height, h+1)
			b.WriteString(v)
			i += end + 3

		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), height, nil
}

// reference resolves ${ref} as seen from key.
func (r *Resolver) reference(key, ref string, depth int) (string, int, error) {
	name := strings.TrimSpace(ref)
	if name == "" {
		return "", 0, &diag.InterpolationError{Key: key, Ref: ref, Err: errors.New("empty reference")}
	}

	target, ok := r.lookup(key, name)
	if !ok {
		return "", 0, &diag.InterpolationError{Key: key, Ref: ref, Err: diag.ErrInterpolation}
	}

	v, h, err := r.key(target, depth+1)
	if err != nil {
		return "", 0, &diag.InterpolationError{Key: key, Ref: ref, Err: err}
	}
	return v, h, nil
}

// lookup maps a reference name to a key of the raw space: first within the
// referencing key's section, then as a full dotted key.
func (r *Resolver) lookup(key, name string) (string, bool) {
	if section, _, ok := strings.Cut(key, "."); ok {
		local := section + "." + name
		if _, exists := r.raw[local]; exists {
			return local, true
		}
	}
	if _, exists := r.raw[name]; exists {
		return name, true
	}
	return "", false
}

// decodeEscape decodes the \uXXXX sequence at raw[i]. It returns the rune and
// the number of bytes consumed.
func decodeEscape(key, raw string, i int) (rune, int, error) {
	const width = 6 // \u + 4 hex digits
	if i+width > len(raw) {
		return 0, 0, &diag.EscapeError{Key: key, Offset: i, Sequence: raw[i:]}
	}

	var ch rune
	for _, h := range raw[i+2 : i+width] {
		d, ok := hexDigit(h)
		if !ok {
			return 0, 0, &diag.EscapeError{Key: key, Offset: i, Sequence: raw[i : i+width]}
		}
		ch = ch<<4 | d
	}
	return ch, width, nil
}

func hexDigit(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r - '0', true
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10, true
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10, true
	default:
		return 0, false
	}
}

// Escape is the inverse of expansion for one resolved value: it doubles '$',
// protects literal "\u" sequences and writes control characters as \uXXXX so
// that expanding the result yields s again.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r == '$':
			b.WriteString("$$")
		case r == '\\' && i+1 < len(s) && s[i+1] == 'u':
			b.WriteString(`\u005c`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\u`)
			const hex = "0123456789abcdef"
			b.WriteByte('0')
			b.WriteByte('0')
			b.WriteByte(hex[r>>4])
			b.WriteByte(hex[r&0xf])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
