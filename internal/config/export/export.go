// Package export serializes resolved snapshots.
//
// The INI form is the manifest format itself: feeding it back through the
// parser and resolver yields the same typed values. JSON, YAML and TOML
// output group keys by section and carry typed values; they are meant for
// other tools and are not read back.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/dtshconf/internal/config/store"
)

// Format selects a serializer.
type Format string

const (
	// FormatINI writes the manifest format.
	FormatINI Format = "ini"
	// FormatJSON writes a JSON object of sections.
	FormatJSON Format = "json"
	// FormatYAML writes a YAML mapping of sections.
	FormatYAML Format = "yaml"
	// FormatTOML writes one TOML table per section.
	FormatTOML Format = "toml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatINI, FormatJSON, FormatYAML, FormatTOML}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want ini, json, yaml or toml)", s)
}

// Options filters and annotates the output.
type Options struct {
	// Prefix keeps only keys starting with it.
	Prefix string
	// Overrides keeps only keys supplied by a layer other than the defaults
	// and the schema.
	Overrides bool
	// Origin annotates each INI entry with the layer it came from.
	Origin bool
}

// Marshal serializes s in format f.
func Marshal(s *store.Store, f Format, opts Options) ([]byte, error) {
	entries := selectEntries(s, opts)
	switch f {
	case FormatINI:
		return marshalINI(entries, opts), nil
	case FormatJSON:
		return marshalJSON(entries)
	case FormatYAML:
		return marshalYAML(entries)
	case FormatTOML:
		return marshalTOML(entries)
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// Write serializes s in format f to w.
func Write(w io.Writer, s *store.Store, f Format, opts Options) error {
	data, err := Marshal(s, f, opts)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

func selectEntries(s *store.Store, opts Options) []store.Entry {
	var out []store.Entry
	for _, e := range s.Entries() {
		if opts.Prefix != "" && !strings.HasPrefix(e.Key, opts.Prefix) {
			continue
		}
		if opts.Overrides && (e.Layer == store.SchemaLayer || e.Layer == defaultsLayer) {
			continue
		}
		out = append(out, e)
	}
	return out
}

const defaultsLayer = "defaults"

// section is one group of entries sharing a section name, in key order.
type section struct {
	name    string
	entries []store.Entry
	names   []string
}

// sections groups sorted entries by the part of their key before the
// first dot.
func sections(entries []store.Entry) []section {
	var out []section
	for _, e := range entries {
		sec, name, ok := strings.Cut(e.Key, ".")
		if !ok {
			sec, name = "", e.Key
		}
		if len(out) == 0 || out[len(out)-1].name != sec {
			out = append(out, section{name: sec})
		}
		last := &out[len(out)-1]
		last.entries = append(last.entries, e)
		last.names = append(last.names, name)
	}
	return out
}
