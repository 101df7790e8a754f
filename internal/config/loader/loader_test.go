package loader

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/layer"
	"github.com/dshills/dtshconf/internal/config/schema"
)

func TestBuiltinLoader_CoversSchema(t *testing.T) {
	l, errs, err := BuiltinLoader{}.Load()
	require.NoError(t, err)
	require.Empty(t, errs, "embedded manifest must parse cleanly")
	require.NotNil(t, l)

	assert.Equal(t, layer.SourceBuiltin, l.Source)
	for _, s := range schema.Builtin().All() {
		_, ok := l.Get(s.Key)
		assert.True(t, ok, "manifest is missing %s", s.Key)
	}
}

func TestBuiltinManifest_ReturnsCopy(t *testing.T) {
	a := BuiltinManifest()
	a[0] = 'X'
	assert.NotEqual(t, a[0], BuiltinManifest()[0])
}

func TestFileLoader_Load(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cfg/dtsh.ini", []byte(`
[dtsh]
pref.list.headers = no
pref.redir2_maxwidth = 0xFF
`), 0o644))

	l, errs, err := NewFileLoaderWithFS(fsys, "user", layer.SourceUser, layer.PriorityUser, "/cfg/dtsh.ini").Load()
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.NotNil(t, l)

	assert.Equal(t, map[string]string{
		"dtsh.pref.list.headers":    "no",
		"dtsh.pref.redir2_maxwidth": "0xFF",
	}, l.Raw())

	e, _ := l.Get("dtsh.pref.list.headers")
	assert.Equal(t, "/cfg/dtsh.ini", e.Path)
	assert.Equal(t, "user", e.Layer)
}

func TestFileLoader_MissingFileIsNotAnError(t *testing.T) {
	l, errs, err := NewFileLoaderWithFS(afero.NewMemMapFs(), "user", layer.SourceUser, layer.PriorityUser, "/nope.ini").Load()
	assert.NoError(t, err)
	assert.Nil(t, errs)
	assert.Nil(t, l)
}

func TestFileLoader_ParseErrorsAreKeyLevel(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/x.ini", []byte("[dtsh]\nnot a pair\npref.sizes_si = yes\n"), 0o644))

	l, errs, err := NewFileLoaderWithFS(fsys, "file", layer.SourceFile, layer.PriorityFile, "/x.ini").Load()
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], diag.ErrParse))
	assert.Equal(t, map[string]string{"dtsh.pref.sizes_si": "yes"}, l.Raw())
}

func TestFileLoader_UndecodableIsLayerError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/bad.ini", []byte("[dtsh]\nx = \xff\xfe\n"), 0o644))

	l, _, err := NewFileLoaderWithFS(fsys, "file", layer.SourceFile, layer.PriorityFile, "/bad.ini").Load()
	assert.Nil(t, l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrLayer))

	var le *diag.LayerError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "/bad.ini", le.Path)
}

func TestFileLoader_DirectoryIsLayerError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/dir.ini", 0o755))

	_, _, err := NewFileLoaderWithFS(fsys, "file", layer.SourceFile, layer.PriorityFile, "/dir.ini").Load()
	assert.True(t, errors.Is(err, diag.ErrLayer))
}
