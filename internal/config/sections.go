package config

import (
	"github.com/dshills/dtshconf/internal/config/schema"
	"github.com/dshills/dtshconf/internal/config/store"
)

// Section accessor methods return snapshot structs read from one snapshot.
// Mutating the returned struct does not modify the configuration.

// SymbolsConfig holds the Unicode symbols used by renderers.
type SymbolsConfig struct {
	Ellipsis       string
	ArrowNE        string
	ArrowNW        string
	ArrowRight     string
	ArrowRightHook string
	ArrowLeft      string
	Dash           string
}

// PromptConfig holds the prompt settings.
type PromptConfig struct {
	// Wchar is the prompt symbol.
	Wchar string

	// Default is the prompt after a successful command.
	Default string

	// Alt is the prompt after a failed command.
	Alt string

	// Sparse prints an empty line after each command output.
	Sparse bool
}

// ListConfig holds list view preferences.
type ListConfig struct {
	Headers        bool
	PlaceHolder    string
	Fmt            string
	ActionableType schema.ActionableType
	Multi          bool
}

// TreeConfig holds tree view preferences.
type TreeConfig struct {
	Headers        bool
	PlaceHolder    string
	Fmt            string
	ActionableType schema.ActionableType

	// CbAnchor marks child-binding nodes.
	CbAnchor string
}

// FormConfig holds form view preferences.
type FormConfig struct {
	ShowAll        bool
	ActionableType schema.ActionableType
}

// FSConfig holds filesystem safety flags.
type FSConfig struct {
	HideDotted  bool
	NoSpaces    bool
	NoOverwrite bool
}

// ViewConfig holds the preferences of a syntax-highlighted view.
type ViewConfig struct {
	ActionableType schema.ActionableType
	Theme          string
}

// RedirectionConfig holds output redirection preferences.
type RedirectionConfig struct {
	HTMLTheme      string
	HTMLFontFamily string
	SVGTheme       string
	SVGFontFamily  string

	// SVGFontRatio is the font width to height ratio.
	SVGFontRatio float64

	// MaxWidth is the maximum width of redirected output.
	MaxWidth int
}

// PrefsConfig holds every preference.
type PrefsConfig struct {
	AlwaysLongfmt bool
	SizesSI       bool
	HexUpper      bool

	List     ListConfig
	Tree     TreeConfig
	TwoSided schema.ActionableType
	Form     FormConfig
	FS       FSConfig
	YAML     ViewConfig
	DTS      ViewConfig
	Redir    RedirectionConfig
}

// reader reads section fields from a single snapshot.
type reader struct{ s *store.Store }

func (c *Config) reader() reader { return reader{c.Snapshot()} }

func (r reader) str(name string) string { return r.s.String(schema.Key(name)) }
func (r reader) flag(name string) bool  { return r.s.Bool(schema.Key(name)) }
func (r reader) actionable(name string) schema.ActionableType {
	return r.s.Actionable(schema.Key(name))
}

// Symbols returns the Unicode symbols.
func (c *Config) Symbols() SymbolsConfig {
	r := c.reader()
	return SymbolsConfig{
		Ellipsis:       r.str("wchar.ellipsis"),
		ArrowNE:        r.str("wchar.arrow_ne"),
		ArrowNW:        r.str("wchar.arrow_nw"),
		ArrowRight:     r.str("wchar.arrow_right"),
		ArrowRightHook: r.str("wchar.arrow_right_hook"),
		ArrowLeft:      r.str("wchar.arrow_left"),
		Dash:           r.str("wchar.dash"),
	}
}

// Prompt returns the prompt settings.
func (c *Config) Prompt() PromptConfig {
	r := c.reader()
	return PromptConfig{
		Wchar:   r.str("prompt.wchar"),
		Default: r.str("prompt.default"),
		Alt:     r.str("prompt.alt"),
		Sparse:  r.flag("prompt.sparse"),
	}
}

// Prefs returns the preferences.
func (c *Config) Prefs() PrefsConfig {
	r := c.reader()
	return PrefsConfig{
		AlwaysLongfmt: r.flag("pref.always_longfmt"),
		SizesSI:       r.flag("pref.sizes_si"),
		HexUpper:      r.flag("pref.hex_upper"),
		List: ListConfig{
			Headers:        r.flag("pref.list.headers"),
			PlaceHolder:    r.str("pref.list.place_holder"),
			Fmt:            r.str("pref.list.fmt"),
			ActionableType: r.actionable("pref.list.actionable_type"),
			Multi:          r.flag("pref.list.multi"),
		},
		Tree: TreeConfig{
			Headers:        r.flag("pref.tree.headers"),
			PlaceHolder:    r.str("pref.tree.place_holder"),
			Fmt:            r.str("pref.tree.fmt"),
			ActionableType: r.actionable("pref.tree.actionable_type"),
			CbAnchor:       r.str("pref.tree.cb_anchor"),
		},
		TwoSided: r.actionable("pref.2sided.actionable_type"),
		Form: FormConfig{
			ShowAll:        r.flag("pref.form.show_all"),
			ActionableType: r.actionable("pref.form.actionable_type"),
		},
		FS: FSConfig{
			HideDotted:  r.flag("pref.fs.hide_dotted"),
			NoSpaces:    r.flag("pref.fs.no_spaces"),
			NoOverwrite: r.flag("pref.fs.no_overwrite"),
		},
		YAML: ViewConfig{
			ActionableType: r.actionable("pref.yaml.actionable_type"),
			Theme:          r.str("pref.yaml.theme"),
		},
		DTS: ViewConfig{
			ActionableType: r.actionable("pref.dts.actionable_type"),
			Theme:          r.str("pref.dts.theme"),
		},
		Redir: RedirectionConfig{
			HTMLTheme:      r.str("pref.html.theme"),
			HTMLFontFamily: r.str("pref.html.font_family"),
			SVGTheme:       r.str("pref.svg.theme"),
			SVGFontFamily:  r.str("pref.svg.font_family"),
			SVGFontRatio:   r.s.Float(schema.Key("pref.svg.font_ratio")),
			MaxWidth:       int(r.s.Int(schema.Key("pref.redir2_maxwidth"))),
		},
	}
}
