// Package loader reads configuration layers from their sources: the
// embedded default manifest, INI files on an afero filesystem, and the
// process environment.
package loader

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"

	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/ini"
	"github.com/dshills/dtshconf/internal/config/layer"
)

// Loader is the interface for layer sources.
type Loader interface {
	// Load reads the source. It returns a nil layer and nil error when the
	// source does not exist. Key-level problems are returned in diags and
	// never prevent the layer from loading; err reports a source that could
	// not be read or decoded at all.
	Load() (l *layer.Layer, diags []error, err error)
}

//go:embed dtsh.ini
var builtinManifest []byte

// BuiltinManifest returns a copy of the embedded default manifest.
func BuiltinManifest() []byte {
	out := make([]byte, len(builtinManifest))
	copy(out, builtinManifest)
	return out
}

// BuiltinLoader loads the embedded default manifest.
type BuiltinLoader struct{}

// Load parses the embedded manifest. It never fails.
func (BuiltinLoader) Load() (*layer.Layer, []error, error) {
	name := layer.SourceBuiltin.LayerName()
	doc, errs := ini.Parse(name, builtinManifest)
	return layer.FromDocument(name, layer.SourceBuiltin, layer.SourceBuiltin.Priority(), doc), errs, nil
}

// FileLoader loads one INI file.
type FileLoader struct {
	fs       afero.Fs
	path     string
	name     string
	source   layer.Source
	priority int
}

// NewFileLoaderWithFS creates a loader for path on fs.
func NewFileLoaderWithFS(fsys afero.Fs, name string, source layer.Source, priority int, path string) *FileLoader {
	return &FileLoader{
		fs:       fsys,
		path:     path,
		name:     name,
		source:   source,
		priority: priority,
	}
}

// Path returns the file path.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads and parses the file.
func (l *FileLoader) Load() (*layer.Layer, []error, error) {
	info, err := l.fs.Stat(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, &diag.LayerError{Layer: l.name, Path: l.path, Err: err}
	}
	if info.IsDir() {
		return nil, nil, &diag.LayerError{Layer: l.name, Path: l.path, Err: fmt.Errorf("is a directory")}
	}

	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, nil, &diag.LayerError{Layer: l.name, Path: l.path, Err: err}
	}

	doc, errs := ini.Parse(l.name, data)
	if doc == nil {
		// Only a decode failure yields no document.
		var err error = errors.New("cannot decode source")
		if len(errs) > 0 {
			err = errs[0]
		}
		return nil, nil, &diag.LayerError{Layer: l.name, Path: l.path, Err: err}
	}

	out := layer.FromFile(l.name, l.source, l.priority, l.path, doc)
	out.ModTime = info.ModTime()
	return out, errs, nil
}
