package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dshills/dtshconf/internal/config"
	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/export"
	"github.com/dshills/dtshconf/internal/config/interp"
	"github.com/dshills/dtshconf/internal/config/notify"
	"github.com/dshills/dtshconf/internal/config/schema"
	"github.com/dshills/dtshconf/internal/config/store"
)

// errDiagnostics is returned by check when the settings have problems. The
// problems are already printed.
var errDiagnostics = errors.New("settings have problems")

func newRootCmd() *cobra.Command {
	flags := &configFlags{}

	rootCmd := &cobra.Command{
		Use:   "dtshconf",
		Short: "Inspect devicetree shell settings",
		Long: "dtshconf resolves the devicetree shell settings the way the shell does:\n" +
			"built-in defaults, then ~/.config/dtsh/dtsh.ini, then --config files,\n" +
			"then DTSH_* environment variables, then --set overrides.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newGetCmd(flags),
		newQueryCmd(flags),
		newDumpCmd(flags),
		newCheckCmd(flags),
		newKeysCmd(flags),
		newWatchCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dtshconf %s\n", Version)
		},
	}
}

func newGetCmd(flags *configFlags) *cobra.Command {
	var asJSON, origin bool

	cmd := &cobra.Command{
		Use:   "get KEY...",
		Short: "Print resolved values",
		Long: "Print the resolved value of each KEY, one per line. Shell settings may\n" +
			"omit their \"dtsh.\" section. With --json values are printed as typed\n" +
			"JSON literals. With --origin each value is followed by the layers that\n" +
			"set the key, the one in effect first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cfg.Close()

			snap := cfg.Snapshot()
			var doc []byte
			if asJSON {
				if doc, err = export.Marshal(snap, export.FormatJSON, export.Options{}); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				key := cfg.Qualify(arg)
				e, ok := snap.Lookup(key)
				if !ok {
					return fmt.Errorf("%w: %s", config.ErrUnknownKey, arg)
				}
				value := e.Value.String()
				if asJSON {
					value = gjson.GetBytes(doc, export.JSONPath(key)).Raw
				}
				if origin {
					value += "\t" + originOf(cfg, e)
				}
				fmt.Fprintln(out, value)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print typed JSON values")
	cmd.Flags().BoolVar(&origin, "origin", false, "print the layers that set each key")
	return cmd
}

// originOf lists the layers that set the key of e, comma separated. A key
// no layer sets, or one whose value failed, comes from the schema.
func originOf(cfg *config.Config, e store.Entry) string {
	layers := cfg.Providers(e.Key)
	if e.Fallback || len(layers) == 0 {
		layers = append([]string{store.SchemaLayer}, layers...)
	}
	return strings.Join(layers, ",")
}

func newQueryCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query PATH",
		Short: "Query the JSON view of the settings",
		Long: "Run a GJSON path query against the JSON view of the settings, for\n" +
			"example 'dtsh.pref\\.list\\.headers' or 'dtsh|@keys'.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cfg.Close()

			doc, err := export.Marshal(cfg.Snapshot(), export.FormatJSON, export.Options{})
			if err != nil {
				return err
			}
			res := gjson.GetBytes(doc, args[0])
			if !res.Exists() {
				return fmt.Errorf("no match for %q", args[0])
			}
			out := res.String()
			if res.IsObject() || res.IsArray() {
				out = res.Raw
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newDumpCmd(flags *configFlags) *cobra.Command {
	var (
		format string
		opts   export.Options
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "dump [PREFIX]",
		Short: "Print the resolved settings",
		Long: "Print the resolved settings as INI, JSON, YAML or TOML. The INI output\n" +
			"is itself a valid settings file. PREFIX limits the output to keys\n" +
			"starting with it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			color, err := flags.colorEnabled(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			cfg, err := flags.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cfg.Close()

			if len(args) == 1 {
				opts.Prefix = qualifyPrefix(cfg.Snapshot(), args[0])
			}
			data, err := export.Marshal(cfg.Snapshot(), f, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if color && !plain {
				return highlight(out, data, string(f), cfg.Prefs().YAML.Theme)
			}
			_, err = io.Copy(out, bytes.NewReader(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatINI), "output `format` (ini, json, yaml, toml)")
	cmd.Flags().BoolVar(&opts.Overrides, "overrides", false, "only print values set by a settings file, the environment or --set")
	cmd.Flags().BoolVar(&opts.Origin, "origin", false, "annotate INI entries with the layer they come from")
	cmd.Flags().BoolVar(&plain, "plain", false, "never highlight the output")
	return cmd
}

func newCheckCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report settings that fell back to their defaults",
		Long: "Load every settings source and report malformed lines, bad escapes,\n" +
			"broken references, type errors and unreadable files. Exits with\n" +
			"status 1 when there is anything to report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			color, err := flags.colorEnabled(out)
			if err != nil {
				return err
			}

			cfg, err := flags.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cfg.Close()

			diags := cfg.Diagnostics()
			if len(diags) == 0 {
				fmt.Fprintf(out, "ok: %d settings from %d layers\n", cfg.Snapshot().Len(), len(cfg.Layers()))
				return nil
			}

			r := newRenderer(out, color)
			if err := diagnosticsTable(diags, r).render(out, r); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d problem(s)\n", len(diags))
			return errDiagnostics
		},
	}
}

func diagnosticsTable(diags []diag.Diagnostic, r *lipgloss.Renderer) *table {
	t := &table{header: []string{"KEY", "LAYER", "KIND", "PROBLEM"}}
	for _, d := range diags {
		key := d.Key
		if key == "" {
			key = "-"
		}
		t.add(key, d.Layer, d.Kind.String(), d.Err.Error())
	}
	t.style = func(row, col int) lipgloss.Style {
		if col != 2 {
			return r.NewStyle()
		}
		return r.NewStyle().Foreground(kindColor(diags[row].Kind))
	}
	return t
}

// kindColor colors problems by severity.
func kindColor(k diag.Kind) lipgloss.Color {
	switch k {
	case diag.KindLayer, diag.KindParse:
		return lipgloss.Color("9")
	case diag.KindAccess:
		return lipgloss.Color("4")
	default:
		return lipgloss.Color("3")
	}
}

func newKeysCmd(flags *configFlags) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "keys [PREFIX]",
		Short: "List settings with their type, value and origin",
		Long: "List every setting with its type, value and the layer it comes from.\n" +
			"Values are shown in settings file notation.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			color, err := flags.colorEnabled(out)
			if err != nil {
				return err
			}

			cfg, err := flags.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cfg.Close()

			var prefix string
			if len(args) == 1 {
				prefix = qualifyPrefix(cfg.Snapshot(), args[0])
			}
			return keysTable(cfg.Snapshot(), prefix, long).render(out, newRenderer(out, color))
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "also print descriptions")
	return cmd
}

func keysTable(s *store.Store, prefix string, long bool) *table {
	t := &table{header: []string{"KEY", "TYPE", "VALUE", "ORIGIN"}}
	if long {
		t.header = append(t.header, "DESCRIPTION")
	}
	for _, e := range s.Entries() {
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		origin := e.Layer
		if e.Fallback {
			origin += " (default used)"
		}
		row := []string{e.Key, e.Value.Type().String(), interp.Escape(e.Value.String()), origin}
		if long {
			var desc string
			if setting := s.Schema().Get(e.Key); setting != nil {
				desc = setting.Description
			}
			row = append(row, desc)
		}
		t.add(row...)
	}
	return t
}

// watchBuffer is the number of reloads queued while output is blocked.
const watchBuffer = 16

func newWatchCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [PREFIX]",
		Short: "Print settings changes as settings files are edited",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.open(cmd.Context(), cmd.ErrOrStderr(),
				config.WithWatcher(true), config.WithNotifyBuffer(watchBuffer))
			if err != nil {
				return err
			}
			defer cfg.Close()

			var prefix string
			if len(args) == 1 {
				prefix = qualifyPrefix(cfg.Snapshot(), args[0])
			}

			out := cmd.OutOrStdout()
			cfg.SubscribePrefix(prefix, func(ch notify.Change) {
				fmt.Fprintln(out, formatChange(ch))
			})
			for _, path := range cfg.Files() {
				fmt.Fprintf(out, "watching %s\n", path)
			}

			<-cmd.Context().Done()
			return nil
		},
	}
}

// qualifyPrefix returns prefix if some key starts with it, and the prefix
// within the shell section otherwise.
func qualifyPrefix(s *store.Store, prefix string) string {
	for _, k := range s.Keys() {
		if strings.HasPrefix(k, prefix) {
			return prefix
		}
	}
	return schema.Key(prefix)
}

// formatChange renders one change notification as a line of text.
func formatChange(ch notify.Change) string {
	switch ch.Type {
	case notify.ChangeReload:
		return fmt.Sprintf("reloaded from %s", ch.Source)
	case notify.ChangeAdded:
		return fmt.Sprintf("+ %s = %s", ch.Key, displayValue(ch.New))
	case notify.ChangeRemoved:
		return fmt.Sprintf("- %s", ch.Key)
	default:
		return fmt.Sprintf("~ %s = %s (was %s)", ch.Key, displayValue(ch.New), displayValue(ch.Old))
	}
}

func displayValue(v schema.Value) string {
	return interp.Escape(v.String())
}
