package schema

import "fmt"

// Section is the manifest section holding every shell setting.
const Section = "dtsh"

// Key returns the full key of a setting name in the shell section.
func Key(name string) string {
	return Section + "." + name
}

// ActionableType selects how rendered values link to their target.
type ActionableType uint8

const (
	// ActionableNone renders plain text.
	ActionableNone ActionableType = iota
	// ActionableLink renders the value itself as a hyperlink.
	ActionableLink
	// ActionableAlt appends an alternate link symbol after the value.
	ActionableAlt
)

// ActionableTokens lists the closed set of tokens, indexed by ActionableType.
var ActionableTokens = []string{"none", "link", "alt"}

// String returns the manifest token.
func (a ActionableType) String() string {
	if int(a) < len(ActionableTokens) {
		return ActionableTokens[a]
	}
	return "unknown"
}

// ParseActionableType maps a manifest token to its variant.
func ParseActionableType(s string) (ActionableType, error) {
	for i, tok := range ActionableTokens {
		if tok == s {
			return ActionableType(i), nil
		}
	}
	return ActionableNone, fmt.Errorf("invalid actionable type %q", s)
}

// Builtin returns the schema of every key the shell queries. Defaults are
// the resolved values shipped in the default manifest.
func Builtin() *Registry {
	r := New()
	for _, s := range builtinSettings {
		r.MustRegister(s)
	}
	return r
}

func str(name, def, desc string) Setting {
	return Setting{Key: Key(name), Type: TypeString, Default: def, Description: desc}
}

func flag(name string, def bool, desc string) Setting {
	return Setting{Key: Key(name), Type: TypeBool, Default: def, Description: desc}
}

func actionable(name, def, desc string) Setting {
	return Setting{Key: Key(name), Type: TypeString, Default: def, Enum: ActionableTokens, Description: desc}
}

var builtinSettings = []Setting{
	// Unicode symbols.
	str("wchar.ellipsis", "…", "Horizontal ellipsis"),
	str("wchar.arrow_ne", "↗", "North east arrow"),
	str("wchar.arrow_nw", "↖", "North west arrow"),
	str("wchar.arrow_right", "→", "Rightwards arrow"),
	str("wchar.arrow_right_hook", "↳", "Downwards arrow with tip rightwards"),
	str("wchar.arrow_left", "←", "Leftwards arrow"),
	str("wchar.dash", "—", "Em dash"),

	// Prompt.
	str("prompt.wchar", "❭", "Prompt symbol"),
	str("prompt.default", "\x01\x1b[38;5;99m\x02❭\x01\x1b[0m\x02 ", "Prompt when the last command succeeded"),
	str("prompt.alt", "\x01\x1b[38;5;88m\x02❭\x01\x1b[0m\x02 ", "Prompt when the last command failed"),
	flag("prompt.sparse", true, "Print an empty line after each command output"),

	// General preferences.
	flag("pref.always_longfmt", false, "Use long listing format by default"),
	flag("pref.sizes_si", false, "Print sizes in SI units"),
	flag("pref.hex_upper", false, "Print hexadecimal digits in upper case"),

	// Lists.
	flag("pref.list.headers", true, "Show list headers"),
	str("pref.list.place_holder", "", "Place holder for missing values in lists"),
	str("pref.list.fmt", "NLC", "Default list format string"),
	actionable("pref.list.actionable_type", "link", "Actionable text type in lists"),
	flag("pref.list.multi", false, "Allow multiple-line cells in lists"),

	// Trees.
	flag("pref.tree.headers", false, "Show tree headers"),
	str("pref.tree.place_holder", "", "Place holder for missing values in trees"),
	str("pref.tree.fmt", "Nd", "Default tree format string"),
	actionable("pref.tree.actionable_type", "none", "Actionable text type in trees"),
	str("pref.tree.cb_anchor", "←", "Anchor of child-binding nodes"),

	// 2-sided views and forms.
	actionable("pref.2sided.actionable_type", "link", "Actionable text type in 2-sided views"),
	flag("pref.form.show_all", false, "Show all form fields, including empty ones"),
	actionable("pref.form.actionable_type", "link", "Actionable text type in forms"),

	// Filesystem safety.
	flag("pref.fs.hide_dotted", false, "Hide dotted names in path completion"),
	flag("pref.fs.no_spaces", true, "Forbid spaces in redirection paths"),
	flag("pref.fs.no_overwrite", true, "Refuse to overwrite existing files on redirection"),

	// Syntax-highlighted views.
	actionable("pref.yaml.actionable_type", "link", "Actionable text type in YAML views"),
	str("pref.yaml.theme", "monokai", "YAML syntax highlighting theme"),
	actionable("pref.dts.actionable_type", "link", "Actionable text type in DTS views"),
	str("pref.dts.theme", "monokai", "DTS syntax highlighting theme"),

	// Output redirection.
	str("pref.html.theme", "html", "Theme for HTML output"),
	str("pref.html.font_family", "Courier New", "Font family for HTML output"),
	str("pref.svg.theme", "svg", "Theme for SVG output"),
	str("pref.svg.font_family", "Courier New", "Font family for SVG output"),
	{Key: Key("pref.svg.font_ratio"), Type: TypeFloat, Default: 0.6, Description: "Font width to height ratio for SVG output"},
	{Key: Key("pref.redir2_maxwidth"), Type: TypeInt, Default: int64(255), Description: "Maximum width of redirected output"},
}
