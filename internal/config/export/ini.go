package export

import (
	"fmt"
	"strings"

	"github.com/dshills/dtshconf/internal/config/interp"
	"github.com/dshills/dtshconf/internal/config/store"
)

func marshalINI(entries []store.Entry, opts Options) []byte {
	var b strings.Builder
	for i, sec := range sections(entries) {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s]\n", sec.name)
		for j, e := range sec.entries {
			if opts.Origin {
				b.WriteString(originComment(e))
			}
			b.WriteString(sec.names[j])
			b.WriteString(" = ")
			b.WriteString(iniValue(e.Value.String()))
			b.WriteByte('\n')
		}
	}
	return []byte(b.String())
}

func originComment(e store.Entry) string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("# %s (%s:%d)\n", e.Layer, e.Path, e.Line)
	case e.Path != "":
		return fmt.Sprintf("# %s (%s)\n", e.Layer, e.Path)
	case e.Fallback:
		return fmt.Sprintf("# %s, default used\n", e.Layer)
	default:
		return fmt.Sprintf("# %s\n", e.Layer)
	}
}

// iniValue writes a resolved value so that parsing and resolving it gives
// the value back.
func iniValue(v string) string {
	escaped := interp.Escape(v)
	if escaped != strings.TrimSpace(escaped) || strings.HasPrefix(escaped, `"`) {
		return `"` + escaped + `"`
	}
	return escaped
}
