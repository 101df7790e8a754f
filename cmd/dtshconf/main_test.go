package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/dtshconf/internal/config"
	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/notify"
	"github.com/dshills/dtshconf/internal/config/schema"
)

// setup points the user's config directory at a temporary directory and
// writes userFile there when it is not empty.
func setup(t *testing.T, userFile string) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if userFile != "" {
		dir := filepath.Join(xdg, "dtsh")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.UserFileName), []byte(userFile), 0o644))
	}
	return xdg
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-env"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dtshconf dev\n", out)
}

func TestGet(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "get", "pref.list.headers", "wchar.ellipsis", "dtsh.prompt.sparse", "pref.redir2_maxwidth")
	require.NoError(t, err)
	assert.Equal(t, "yes\n…\nyes\n255\n", out)
}

func TestGet_JSON(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "get", "--json", "pref.redir2_maxwidth", "pref.list.fmt", "pref.list.headers", "pref.svg.font_ratio")
	require.NoError(t, err)
	assert.Equal(t, "255\n\"NLC\"\ntrue\n0.6\n", out)
}

func TestGet_UnknownKey(t *testing.T) {
	setup(t, "")

	_, _, err := run(t, "get", "pref.nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrUnknownKey))
}

func TestGet_Layers(t *testing.T) {
	setup(t, "[dtsh]\npref.list.fmt = U\n")
	extra := filepath.Join(t.TempDir(), "extra.ini")
	require.NoError(t, os.WriteFile(extra, []byte("[dtsh]\npref.list.fmt = F\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"user file", nil, "U"},
		{"no user file", []string{"--no-user"}, "NLC"},
		{"extra file", []string{"-c", extra}, "F"},
		{"set", []string{"-c", extra, "--set", "pref.list.fmt=S"}, "S"},
		{"set references", []string{"--set", "pref.list.fmt=${pref.tree.fmt}!"}, "Nd!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{}, tt.args...), "get", "pref.list.fmt")
			out, _, err := run(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestGet_Origin(t *testing.T) {
	setup(t, "[dtsh]\npref.list.fmt = U\npref.list.actionable_type = bogus\n")

	out, _, err := run(t, "--set", "pref.list.fmt=S", "get", "--origin", "pref.list.fmt", "wchar.dash", "pref.list.actionable_type")
	require.NoError(t, err)
	assert.Equal(t, "S\tsession,user,defaults\n—\tdefaults\nlink\tschema,user,defaults\n", out)
}

func TestGet_MissingExtraFile(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.ini"), "get", "pref.list.fmt")
	require.NoError(t, err)
	assert.Equal(t, "NLC\n", out)
}

func TestFlags_Invalid(t *testing.T) {
	setup(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"set without value", []string{"--set", "pref.list.fmt", "get", "pref.list.fmt"}},
		{"log level", []string{"--log-level", "loud", "get", "pref.list.fmt"}},
		{"color", []string{"--color", "sometimes", "dump"}},
		{"format", []string{"dump", "--format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestQuery(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "query", `dtsh.pref\.list\.fmt`)
	require.NoError(t, err)
	assert.Equal(t, "NLC\n", out)

	out, _, err = run(t, "query", "dtsh|@keys")
	require.NoError(t, err)
	keys := gjson.Parse(out).Array()
	assert.Len(t, keys, schema.Builtin().Len())

	_, _, err = run(t, "query", "nope")
	assert.Error(t, err)
}

func TestDump_Overrides(t *testing.T) {
	setup(t, "[dtsh]\npref.list.fmt = U\n")

	out, _, err := run(t, "dump", "--overrides")
	require.NoError(t, err)
	assert.Equal(t, "[dtsh]\npref.list.fmt = U\n", out)
}

func TestDump_Prefix(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "dump", "pref.fs")
	require.NoError(t, err)
	assert.Equal(t, "[dtsh]\npref.fs.hide_dotted = no\npref.fs.no_overwrite = yes\npref.fs.no_spaces = yes\n", out)
}

func TestDump_JSON(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "dump", "--format", "json", "pref.list")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))
	assert.True(t, gjson.Get(out, `dtsh.pref\.list\.headers`).Bool())
	assert.Len(t, gjson.Get(out, "dtsh").Map(), 5)
}

func TestDump_Highlighted(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "--color", "always", "dump", "--format", "yaml", "wchar.dash")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "wchar.dash")
}

func TestCheck_Clean(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "check")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ok: "), out)
}

func TestCheck_Problems(t *testing.T) {
	setup(t, "[dtsh]\ngarbage\npref.list.actionable_type = bogus\n")

	out, stderr, err := run(t, "check")
	require.ErrorIs(t, err, errDiagnostics)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.Contains(t, lines[1], "parse")
	assert.Contains(t, lines[2], "dtsh.pref.list.actionable_type")
	assert.Contains(t, lines[2], "type")
	assert.Equal(t, "2 problem(s)", lines[3])
	// Problems are logged as well.
	assert.Contains(t, stderr, "WARN")
}

func TestKeys(t *testing.T) {
	setup(t, "[dtsh]\nwchar.dash = -\n")

	out, _, err := run(t, "keys", "wchar")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, []string{"KEY", "TYPE", "VALUE", "ORIGIN"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"dtsh.wchar.dash", "string", "-", "user"}, strings.Fields(lines[6]))
	assert.Equal(t, []string{"dtsh.wchar.ellipsis", "string", "…", "defaults"}, strings.Fields(lines[7]))
}

func TestKeys_Long(t *testing.T) {
	setup(t, "")

	out, _, err := run(t, "keys", "--long", "wchar.ellipsis")
	require.NoError(t, err)
	assert.Contains(t, out, "DESCRIPTION")
	assert.Contains(t, out, "Horizontal ellipsis")
}

func TestQualifyPrefix(t *testing.T) {
	cfg := config.New(config.WithUserFile(false), config.WithEnv(false), config.WithWatcher(false))
	defer cfg.Close()
	s := cfg.Snapshot()

	assert.Equal(t, "dtsh.pref.fs", qualifyPrefix(s, "pref.fs"))
	assert.Equal(t, "dtsh.pref", qualifyPrefix(s, "dtsh.pref"))
	assert.Equal(t, "dtsh.nothing", qualifyPrefix(s, "nothing"))
}

func TestTable_Alignment(t *testing.T) {
	tbl := &table{header: []string{"A", "B"}}
	tbl.add("世", "x")
	tbl.add("a", "y")

	var buf bytes.Buffer
	require.NoError(t, tbl.render(&buf, newRenderer(&buf, false)))
	assert.Equal(t, "A   B\n世  x\na   y\n", buf.String())
}

func TestDiagnosticsTable(t *testing.T) {
	diags := []diag.Diagnostic{
		diag.New("", "user", &diag.ParseError{Layer: "user", Line: 2, Message: "bad line"}),
		diag.New("dtsh.wchar.dash", "user", &diag.EscapeError{Key: "dtsh.wchar.dash"}),
	}
	tbl := diagnosticsTable(diags, newRenderer(&bytes.Buffer{}, false))

	require.Len(t, tbl.rows, 2)
	assert.Equal(t, "-", tbl.rows[0][0])
	assert.Equal(t, "parse", tbl.rows[0][2])
	assert.Equal(t, "escape", tbl.rows[1][2])
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		change notify.Change
		want   string
	}{
		{notify.Change{Type: notify.ChangeReload, Source: "/x/dtsh.ini"}, "reloaded from /x/dtsh.ini"},
		{notify.Change{Type: notify.ChangeAdded, Key: "dtsh.k", New: schema.StringValue("$")}, "+ dtsh.k = $$"},
		{notify.Change{Type: notify.ChangeRemoved, Key: "dtsh.k"}, "- dtsh.k"},
		{
			notify.Change{Type: notify.ChangeModified, Key: "dtsh.pref.sizes_si", Old: schema.BoolValue(false), New: schema.BoolValue(true)},
			"~ dtsh.pref.sizes_si = yes (was no)",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatChange(tt.change))
	}
}
