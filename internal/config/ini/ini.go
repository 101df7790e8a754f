// Package ini tokenizes the INI-like manifest format into sections and raw
// key/value pairs.
//
// The parser performs no escape or interpolation processing: values are
// returned exactly as written, minus surrounding whitespace and an optional
// pair of enclosing double quotes. Keys are flat; a dot inside a key is a
// naming convention, not structure.
package ini

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/dtshconf/internal/config/diag"
)

// Entry is one key/value pair as written in the source.
type Entry struct {
	Section string
	Key     string
	// Value is the raw value with quoting removed.
	Value string
	// Line is the 1-based line of the key.
	Line int
}

// FullKey returns "section.key".
func (e Entry) FullKey() string {
	return e.Section + "." + e.Key
}

// Document is the ordered result of parsing one source.
type Document struct {
	// Name identifies the source in error messages.
	Name string
	// Entries holds pairs in source order. Duplicates are kept; Last
	// collapses them.
	Entries []Entry
	// Sections lists section names in order of first appearance.
	Sections []string
}

// Last returns the entries with duplicate keys collapsed so that the last
// occurrence of each (section, key) wins. Source order of first appearance
// is preserved.
func (d *Document) Last() []Entry {
	index := make(map[string]int, len(d.Entries))
	out := make([]Entry, 0, len(d.Entries))
	for _, e := range d.Entries {
		k := e.FullKey()
		if i, ok := index[k]; ok {
			out[i] = e
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

// DecodeError is returned when the source is not valid UTF-8 text.
type DecodeError struct {
	Name string
	Line int
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: invalid UTF-8 at line %d", e.Name, e.Line)
}

// parser state for one source.
type parser struct {
	doc *Document

	section string
	// skipping is set after a malformed header until the next valid one.
	skipping bool
	// pending is the index of the pair that may receive continuation lines,
	// or -1.
	pending int
	// rawPending accumulates the unquoted text of the pending pair.
	rawPending string

	errs []error
}

// Parse tokenizes src. Malformed lines are reported as *diag.ParseError and
// skipped; parsing always continues. A *DecodeError (and a nil document) is
// returned only when src is not valid UTF-8.
func Parse(name string, src []byte) (*Document, []error) {
	p := &parser{
		doc:     &Document{Name: name},
		pending: -1,
	}

	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if !utf8.Valid(line) {
			return nil, []error{&DecodeError{Name: name, Line: lineNo}}
		}
		p.line(lineNo, strings.TrimRight(string(line), "\r"))
	}
	if err := scanner.Err(); err != nil {
		p.errs = append(p.errs, &diag.ParseError{Layer: name, Line: lineNo + 1, Message: err.Error()})
	}
	p.flush()

	return p.doc, p.errs
}

func (p *parser) line(n int, line string) {
	trimmed := strings.TrimSpace(line)

	if trimmed == "" {
		p.flush()
		return
	}
	if trimmed[0] == '#' || trimmed[0] == ';' {
		return
	}

	// Indented text right after a pair continues its value.
	if p.pending >= 0 && (line[0] == ' ' || line[0] == '\t') {
		if p.rawPending == "" {
			p.rawPending = trimmed
		} else {
			p.rawPending += "\n" + trimmed
		}
		return
	}

	p.flush()

	if trimmed[0] == '[' {
		p.header(n, trimmed)
		return
	}

	p.pair(n, trimmed)
}

func (p *parser) header(n int, trimmed string) {
	if !strings.HasSuffix(trimmed, "]") {
		p.fail(n, "unterminated section header %q", trimmed)
		p.skipping = true
		return
	}
	name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if name == "" || strings.ContainsAny(name, "[]") {
		p.fail(n, "invalid section name %q", trimmed)
		p.skipping = true
		return
	}

	p.section = name
	p.skipping = false
	for _, s := range p.doc.Sections {
		if s == name {
			return
		}
	}
	p.doc.Sections = append(p.doc.Sections, name)
}

func (p *parser) pair(n int, trimmed string) {
	eq := strings.IndexByte(trimmed, '=')
	if eq < 0 {
		p.fail(n, "expected key = value, got %q", trimmed)
		return
	}

	key := strings.TrimSpace(trimmed[:eq])
	if !ValidKey(key) {
		p.fail(n, "invalid key %q", key)
		return
	}
	if p.skipping {
		return
	}
	if p.section == "" {
		p.fail(n, "key %q before any section header", key)
		return
	}

	p.doc.Entries = append(p.doc.Entries, Entry{
		Section: p.section,
		Key:     key,
		Line:    n,
	})
	p.pending = len(p.doc.Entries) - 1
	p.rawPending = strings.TrimSpace(trimmed[eq+1:])
}

// flush finalizes the pending pair's value.
func (p *parser) flush() {
	if p.pending < 0 {
		return
	}
	p.doc.Entries[p.pending].Value = Unquote(p.rawPending)
	p.pending = -1
	p.rawPending = ""
}

func (p *parser) fail(n int, format string, args ...any) {
	p.errs = append(p.errs, &diag.ParseError{
		Layer:   p.doc.Name,
		Line:    n,
		Message: fmt.Sprintf(format, args...),
	})
}

// Unquote strips one pair of enclosing double quotes. Values without a
// matching closing quote are returned unchanged.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ValidKey reports whether k is a legal key: letters, digits, '_', '.' and
// '-', not starting with '.' or '-'.
func ValidKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		case (r == '.' || r == '-') && i > 0:
		default:
			return false
		}
	}
	return true
}
