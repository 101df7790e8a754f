// Package store builds immutable settings snapshots from merged raw layers
// and serves typed reads from them.
//
// A Store is never modified after Build returns. Reloading configuration
// means building a new Store and swapping it in; readers holding the old
// one keep a consistent view.
package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/interp"
	"github.com/dshills/dtshconf/internal/config/layer"
	"github.com/dshills/dtshconf/internal/config/schema"
)

// SchemaLayer is the provenance of values taken from schema defaults.
const SchemaLayer = "schema"

// Entry is one resolved, typed setting.
type Entry struct {
	// Key is the full dotted key.
	Key string
	// Value is the typed value.
	Value schema.Value
	// Text is the resolved string the value was coerced from, or the
	// canonical text of the default on fallback.
	Text string
	// Layer names the layer that supplied the raw entry; SchemaLayer when
	// the key is absent from every layer.
	Layer string
	// Path and Line locate the raw entry, when file-backed.
	Path string
	Line int
	// Fallback is set when Value is the schema default because the
	// configured entry failed to resolve or coerce.
	Fallback bool
	// Declared is set when the key is part of the schema.
	Declared bool
}

// Options configures Build.
type Options struct {
	// MaxDepth bounds interpolation chains; zero means interp.DefaultMaxDepth.
	MaxDepth int
	// Diagnostics carries problems found before Build (parse errors).
	Diagnostics []diag.Diagnostic
	// OnAccess, when set, is called for every diagnostic the snapshot
	// records for a read; see AccessDiagnostics.
	OnAccess func(diag.Diagnostic)
}

// Store is an immutable snapshot of resolved settings.
type Store struct {
	id      uuid.UUID
	schema  *schema.Registry
	entries map[string]Entry
	diags   []diag.Diagnostic

	onAccess func(diag.Diagnostic)
	access   *accessLog
}

// MaxAccessDiagnostics bounds the read-time diagnostics kept per snapshot.
const MaxAccessDiagnostics = 256

// accessLog collects read-time diagnostics. It is the only mutable part of
// a Store and never affects values.
type accessLog struct {
	mu    sync.Mutex
	seen  map[accessKey]struct{}
	diags []diag.Diagnostic
}

// accessKey identifies a kind of read: a key and the type it was read as.
type accessKey struct {
	key  string
	read string
}

// Build resolves and coerces the merged raw key space in one pass.
func Build(merged *layer.Layer, reg *schema.Registry, opts Options) *Store {
	if merged == nil {
		merged = layer.Merge()
	}
	if reg == nil {
		reg = schema.New()
	}

	s := &Store{
		id:       uuid.New(),
		schema:   reg,
		entries:  make(map[string]Entry, len(merged.Entries)+reg.Len()),
		diags:    append([]diag.Diagnostic(nil), opts.Diagnostics...),
		onAccess: opts.OnAccess,
		access:   &accessLog{},
	}

	resolved, failed := interp.Resolve(merged.Raw(), interp.Options{MaxDepth: opts.MaxDepth})

	for key, raw := range merged.Entries {
		setting := reg.Get(key)
		entry := Entry{
			Key:      key,
			Layer:    raw.Layer,
			Path:     raw.Path,
			Line:     raw.Line,
			Declared: setting != nil,
		}

		if err, bad := failed[key]; bad {
			s.diags = append(s.diags, diag.New(key, raw.Layer, err))
			if setting == nil {
				continue
			}
			s.entries[key] = fallback(entry, setting)
			continue
		}

		text := resolved[key]
		if setting == nil {
			entry.Value = schema.StringValue(text)
			entry.Text = text
			s.entries[key] = entry
			continue
		}

		v, err := setting.Coerce(text)
		if err != nil {
			s.diags = append(s.diags, diag.New(key, raw.Layer, err))
			s.entries[key] = fallback(entry, setting)
			continue
		}
		entry.Value = v
		entry.Text = text
		s.entries[key] = entry
	}

	for _, setting := range reg.Ordered() {
		if _, ok := s.entries[setting.Key]; ok {
			continue
		}
		def := setting.DefaultValue()
		s.entries[setting.Key] = Entry{
			Key:      setting.Key,
			Value:    def,
			Text:     def.String(),
			Layer:    SchemaLayer,
			Declared: true,
		}
	}

	diag.Sort(s.diags)
	return s
}

func fallback(entry Entry, setting *schema.Setting) Entry {
	def := setting.DefaultValue()
	entry.Value = def
	entry.Text = def.String()
	entry.Fallback = true
	return entry
}

// ID identifies this snapshot.
func (s *Store) ID() uuid.UUID {
	return s.id
}

// Schema returns the schema the snapshot was built against.
func (s *Store) Schema() *schema.Registry {
	return s.schema
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return len(s.entries)
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of all entries sorted by key.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, k := range s.Keys() {
		out = append(out, s.entries[k])
	}
	return out
}

// Lookup returns the entry for key.
func (s *Store) Lookup(key string) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Origin returns the name of the layer that supplied key, SchemaLayer for
// defaults, or "" for unknown keys.
func (s *Store) Origin(key string) string {
	return s.entries[key].Layer
}

// Diagnostics returns the load-time diagnostics, sorted.
func (s *Store) Diagnostics() []diag.Diagnostic {
	return append([]diag.Diagnostic(nil), s.diags...)
}

// AccessDiagnostics returns the diagnostics recorded by reads so far: the
// first one for each key and requested type, at most MaxAccessDiagnostics.
func (s *Store) AccessDiagnostics() []diag.Diagnostic {
	s.access.mu.Lock()
	defer s.access.mu.Unlock()
	return append([]diag.Diagnostic(nil), s.access.diags...)
}

func (s *Store) record(d diag.Diagnostic, read string) {
	k := accessKey{key: d.Key, read: read}

	s.access.mu.Lock()
	_, dup := s.access.seen[k]
	if dup || len(s.access.diags) >= MaxAccessDiagnostics {
		s.access.mu.Unlock()
		return
	}
	if s.access.seen == nil {
		s.access.seen = make(map[accessKey]struct{})
	}
	s.access.seen[k] = struct{}{}
	s.access.diags = append(s.access.diags, d)
	s.access.mu.Unlock()

	if s.onAccess != nil {
		s.onAccess(d)
	}
}
