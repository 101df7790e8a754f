// Package layer manages the raw configuration layers of the shell.
//
// A layer is one source of key/value pairs (the built-in manifest, the
// user's file, an extra file, the environment). Layers hold unresolved
// values; merging replaces entries wholesale, later layers winning, and
// resolution happens once on the merged result.
package layer

import (
	"sort"
	"time"

	"github.com/dshills/dtshconf/internal/config/ini"
)

// RawEntry is an unresolved value with its provenance.
type RawEntry struct {
	// Key is the full dotted key ("section.name").
	Key string
	// Value is the raw text as written.
	Value string
	// Layer names the layer that supplied the entry.
	Layer string
	// Path is the file the entry came from, if any.
	Path string
	// Line is the 1-based source line, 0 when not file-backed.
	Line int
}

// Layer represents a single configuration layer.
type Layer struct {
	// Name identifies the layer (e.g., "defaults", "user").
	Name string

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Source indicates where this layer was loaded from.
	Source Source

	// Path is the file path (if loaded from file).
	Path string

	// Entries maps full keys to raw entries.
	Entries map[string]RawEntry

	// ModTime is when the source was last modified.
	ModTime time.Time
}

// NewLayer creates an empty layer.
func NewLayer(name string, source Source, priority int) *Layer {
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Entries:  make(map[string]RawEntry),
		ModTime:  time.Now(),
	}
}

// FromDocument builds a layer from a parsed source. Within the document the
// last occurrence of a key wins.
func FromDocument(name string, source Source, priority int, doc *ini.Document) *Layer {
	l := NewLayer(name, source, priority)
	if doc == nil {
		return l
	}
	for _, e := range doc.Entries {
		l.Entries[e.FullKey()] = RawEntry{
			Key:   e.FullKey(),
			Value: e.Value,
			Layer: name,
			Line:  e.Line,
		}
	}
	return l
}

// Set stores a raw value, replacing any previous entry for key.
func (l *Layer) Set(key, value string) {
	l.Entries[key] = RawEntry{Key: key, Value: value, Layer: l.Name, Path: l.Path}
}

// Get returns the raw entry for key.
func (l *Layer) Get(key string) (RawEntry, bool) {
	e, ok := l.Entries[key]
	return e, ok
}

// Keys returns the layer's keys in sorted order.
func (l *Layer) Keys() []string {
	keys := make([]string, 0, len(l.Entries))
	for k := range l.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (l *Layer) Len() int {
	return len(l.Entries)
}

// Raw returns the key -> raw value map used by the resolver.
func (l *Layer) Raw() map[string]string {
	raw := make(map[string]string, len(l.Entries))
	for k, e := range l.Entries {
		raw[k] = e.Value
	}
	return raw
}

// Clone creates a copy of the layer. Entries are values, so the copy shares
// nothing with the original.
func (l *Layer) Clone() *Layer {
	entries := make(map[string]RawEntry, len(l.Entries))
	for k, e := range l.Entries {
		entries[k] = e
	}
	return &Layer{
		Name:     l.Name,
		Priority: l.Priority,
		Source:   l.Source,
		Path:     l.Path,
		Entries:  entries,
		ModTime:  l.ModTime,
	}
}

// withPath stamps every entry with the layer's file path.
func (l *Layer) withPath(path string) *Layer {
	l.Path = path
	for k, e := range l.Entries {
		e.Path = path
		l.Entries[k] = e
	}
	return l
}

// FromFile is FromDocument for a file-backed source.
func FromFile(name string, source Source, priority int, path string, doc *ini.Document) *Layer {
	return FromDocument(name, source, priority, doc).withPath(path)
}
