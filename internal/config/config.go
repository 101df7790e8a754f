package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/dshills/dtshconf/internal/config/diag"
	"github.com/dshills/dtshconf/internal/config/layer"
	"github.com/dshills/dtshconf/internal/config/loader"
	"github.com/dshills/dtshconf/internal/config/notify"
	"github.com/dshills/dtshconf/internal/config/schema"
	"github.com/dshills/dtshconf/internal/config/store"
	"github.com/dshills/dtshconf/internal/config/watcher"
	"github.com/dshills/dtshconf/internal/log"
)

// UserFileName is the name of the user's settings file in the config directory.
const UserFileName = "dtsh.ini"

// Reload sources reported to subscribers.
const (
	SourceLoad   = "load"
	SourceReload = "reload"
)

// Config provides access to the shell settings.
//
// It owns the layer pipeline and the current snapshot. Reads go to the
// snapshot without locking; Load and Reload build a new snapshot and swap
// it in atomically.
type Config struct {
	// Serializes Load and Reload
	reloadMu sync.Mutex

	current atomic.Pointer[store.Store]
	loaded  atomic.Bool

	schema *schema.Registry

	// Layer manager for the raw key space
	layers *layer.Manager

	// File watcher for live reload
	watcher *watcher.Watcher

	// Change notifier
	notifier     *notify.Notifier
	notifyBuffer int

	logger *log.Logger

	fs            afero.Fs
	userConfigDir string
	files         []string
	overrides     map[string]string
	environ       func() []string
	maxDepth      int

	// Options
	enableUser    bool
	enableEnv     bool
	enableWatcher bool
}

// Option configures a Config instance.
type Option func(*Config)

// WithFS sets the filesystem the settings files are read from. The watcher
// only runs on the OS filesystem.
func WithFS(fs afero.Fs) Option {
	return func(c *Config) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithUserConfigDir sets the user configuration directory.
func WithUserConfigDir(dir string) Option {
	return func(c *Config) {
		c.userConfigDir = dir
	}
}

// WithUserFile enables or disables the user's settings file.
func WithUserFile(enable bool) Option {
	return func(c *Config) {
		c.enableUser = enable
	}
}

// WithFiles adds override files. Files given later win over earlier ones,
// and all of them win over the user's file.
func WithFiles(paths ...string) Option {
	return func(c *Config) {
		c.files = append(c.files, paths...)
	}
}

// WithOverrides sets in-memory overrides, applied above every other layer.
// Keys may omit the "dtsh." section of shell settings.
func WithOverrides(values map[string]string) Option {
	return func(c *Config) {
		if c.overrides == nil {
			c.overrides = make(map[string]string, len(values))
		}
		for k, v := range values {
			c.overrides[k] = v
		}
	}
}

// WithEnv enables or disables the environment layer.
func WithEnv(enable bool) Option {
	return func(c *Config) {
		c.enableEnv = enable
	}
}

// WithEnviron replaces the environment source of the environment layer.
func WithEnviron(environ func() []string) Option {
	return func(c *Config) {
		if environ != nil {
			c.environ = environ
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWatcher enables file watching for live reload.
func WithWatcher(enable bool) Option {
	return func(c *Config) {
		c.enableWatcher = enable
	}
}

// WithNotifyBuffer delivers change notifications from a separate goroutine
// through a queue of the given size, so slow observers do not hold up
// reloads. Zero keeps delivery synchronous.
func WithNotifyBuffer(size int) Option {
	return func(c *Config) {
		c.notifyBuffer = size
	}
}

// WithMaxDepth bounds interpolation chains. Zero keeps the default.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// WithSchema replaces the built-in schema.
func WithSchema(reg *schema.Registry) Option {
	return func(c *Config) {
		if reg != nil {
			c.schema = reg
		}
	}
}

// New creates a new Config instance with the given options.
// Until Load is called, every key reads as its schema default.
func New(opts ...Option) *Config {
	c := &Config{
		schema:        schema.Builtin(),
		layers:        layer.NewManager(),
		fs:            afero.NewOsFs(),
		environ:       os.Environ,
		enableUser:    true,
		enableEnv:     true,
		enableWatcher: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	c.notifier = notify.New(notify.WithAsync(c.notifyBuffer))

	// Set default paths
	if c.userConfigDir == "" {
		c.userConfigDir = defaultUserConfigDir()
	}

	if _, onDisk := c.fs.(*afero.OsFs); !onDisk {
		c.enableWatcher = false
	}

	// Initialize file watcher
	if c.enableWatcher {
		c.watcher = watcher.New()
		c.watcher.OnChange(c.handleFileChange)
		c.watcher.OnError(func(err error) {
			c.logger.Error("watching settings files", "err", err)
		})
	}

	c.current.Store(store.Build(nil, c.schema, c.storeOptions(nil)))
	return c
}

// Load loads configuration from all sources and starts the watcher.
//
// Key-level problems never fail a load; they are recorded as diagnostics
// on the snapshot. The returned error joins the LayerErrors of override
// sources that could not be read; the snapshot is installed regardless.
func (c *Config) Load(ctx context.Context) error {
	err := c.reload(ctx, SourceLoad)
	if ctx.Err() != nil {
		return err
	}

	if w := c.watcher; w != nil {
		for _, path := range c.Files() {
			if werr := w.Watch(path); werr != nil {
				c.logger.Error("watching settings file", "path", path, "err", werr)
			}
		}
		if werr := w.Start(); werr != nil {
			c.logger.Error("starting watcher", "err", werr)
		}
	}
	return err
}

// Reload re-reads every source and swaps in the new snapshot.
func (c *Config) Reload(ctx context.Context) error {
	return c.reload(ctx, SourceReload)
}

func (c *Config) reload(ctx context.Context, source string) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	var (
		diags     []diag.Diagnostic
		layerErrs []error
		loaded    []*layer.Layer
		gone      []string
	)
	for _, src := range c.sources() {
		if err := ctx.Err(); err != nil {
			return err
		}

		l, errs, err := src.loader.Load()
		for _, e := range errs {
			diags = append(diags, diag.New("", src.name, e))
		}
		if err != nil {
			c.logger.Error("layer not loaded", "layer", src.name, "err", err)
			diags = append(diags, diag.New("", src.name, err))
			layerErrs = append(layerErrs, err)
			gone = append(gone, src.name)
			continue
		}
		if l == nil {
			gone = append(gone, src.name)
			continue
		}
		loaded = append(loaded, l)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The layer set only changes once every source was read.
	for _, name := range gone {
		c.layers.RemoveLayer(name)
	}
	for _, l := range loaded {
		c.layers.AddLayer(l)
	}
	c.dropStaleLayers()

	next := store.Build(c.layers.Merge(), c.schema, c.storeOptions(diags))
	prev := c.current.Swap(next)
	if !c.loaded.Swap(true) {
		prev = nil
	}

	c.logDiagnostics(next.Diagnostics())
	c.logger.Info("settings loaded", "source", source, "keys", next.Len(), "layers", c.layers.LayerCount())

	c.notifier.Publish(prev, next, source)
	return errors.Join(layerErrs...)
}

// source is one named layer source of the pipeline.
type source struct {
	name   string
	loader loader.Loader
}

// sources lists the configured sources, lowest priority first.
func (c *Config) sources() []source {
	srcs := []source{{name: layer.SourceBuiltin.LayerName(), loader: loader.BuiltinLoader{}}}

	if c.enableUser {
		name := layer.SourceUser.LayerName()
		srcs = append(srcs, source{
			name:   name,
			loader: loader.NewFileLoaderWithFS(c.fs, name, layer.SourceUser, layer.SourceUser.Priority(), c.UserFile()),
		})
	}

	for i, path := range c.files {
		name := fileLayerName(i)
		srcs = append(srcs, source{
			name:   name,
			loader: loader.NewFileLoaderWithFS(c.fs, name, layer.SourceFile, layer.SourceFile.Priority()+i, path),
		})
	}

	if c.enableEnv {
		srcs = append(srcs, source{
			name:   layer.SourceEnv.LayerName(),
			loader: loader.NewEnvLoader(loader.DefaultEnvPrefix, c.schema).WithEnviron(c.environ),
		})
	}

	if len(c.overrides) > 0 {
		srcs = append(srcs, source{
			name:   layer.SourceSession.LayerName(),
			loader: sessionLoader{values: c.overrides, reg: c.schema},
		})
	}
	return srcs
}

// dropStaleLayers removes layers whose source is no longer configured.
func (c *Config) dropStaleLayers() {
	known := make(map[string]bool)
	for _, src := range c.sources() {
		known[src.name] = true
	}
	for _, l := range c.layers.Layers() {
		if !known[l.Name] {
			c.layers.RemoveLayer(l.Name)
		}
	}
}

func fileLayerName(i int) string {
	return fmt.Sprintf("%s%d", layer.SourceFile.LayerName(), i+1)
}

// sessionLoader turns in-memory overrides into the session layer.
type sessionLoader struct {
	values map[string]string
	reg    *schema.Registry
}

func (l sessionLoader) Load() (*layer.Layer, []error, error) {
	name := layer.SourceSession.LayerName()
	out := layer.NewLayer(name, layer.SourceSession, layer.SourceSession.Priority())
	for k, v := range l.values {
		key := qualify(l.reg, k)
		out.Entries[key] = layer.RawEntry{Key: key, Value: v, Layer: name}
	}
	return out, nil, nil
}

func (c *Config) storeOptions(diags []diag.Diagnostic) store.Options {
	return store.Options{
		MaxDepth:    c.maxDepth,
		Diagnostics: diags,
		OnAccess:    c.logAccess,
	}
}

func (c *Config) logDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		if d.Key == "" {
			c.logger.Warn("line skipped", "layer", d.Layer, "kind", d.Kind, "err", d.Err)
			continue
		}
		c.logger.Warn("setting fell back", "key", d.Key, "layer", d.Layer, "kind", d.Kind, "err", d.Err)
	}
}

func (c *Config) logAccess(d diag.Diagnostic) {
	c.logger.Warn("setting read", "key", d.Key, "kind", d.Kind, "err", d.Err)
}

// Close shuts down the configuration system.
func (c *Config) Close() {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.notifier != nil {
		c.notifier.Close()
	}
}

// Snapshot returns the current snapshot. It stays valid and unchanged
// across reloads.
func (c *Config) Snapshot() *store.Store {
	return c.current.Load()
}

// Get returns the value of key as type t. Key may omit the "dtsh." section,
// see Qualify. It never fails; see store.Store.Get.
func (c *Config) Get(key string, t schema.Type) schema.Value {
	return c.Snapshot().Get(c.Qualify(key), t)
}

// String returns a string setting.
func (c *Config) String(key string) string {
	return c.Snapshot().String(c.Qualify(key))
}

// Bool returns a boolean setting.
func (c *Config) Bool(key string) bool {
	return c.Snapshot().Bool(c.Qualify(key))
}

// Int returns an integer setting.
func (c *Config) Int(key string) int64 {
	return c.Snapshot().Int(c.Qualify(key))
}

// Float returns a float setting.
func (c *Config) Float(key string) float64 {
	return c.Snapshot().Float(c.Qualify(key))
}

// Actionable returns an actionable type setting.
func (c *Config) Actionable(key string) schema.ActionableType {
	return c.Snapshot().Actionable(c.Qualify(key))
}

// Origin returns the name of the layer that supplied key.
func (c *Config) Origin(key string) string {
	return c.Snapshot().Origin(c.Qualify(key))
}

// Providers returns the layers that set key, highest priority first. Unlike
// Origin it lists the layers whose values are shadowed too. It reads the
// live layer set rather than the snapshot, so during a reload it may
// already see some of the new layers. Observers may call it.
func (c *Config) Providers(key string) []string {
	return c.layers.Providers(c.Qualify(key))
}

// Diagnostics returns the load-time diagnostics of the current snapshot.
func (c *Config) Diagnostics() []diag.Diagnostic {
	return c.Snapshot().Diagnostics()
}

// Qualify returns the full key for name. Shell settings may be named
// without their "dtsh." section.
func (c *Config) Qualify(name string) string {
	return qualify(c.schema, name)
}

func qualify(reg *schema.Registry, name string) string {
	if reg.Has(name) {
		return name
	}
	if full := schema.Key(name); reg.Has(full) {
		return full
	}
	return name
}

// Schema returns the schema settings are coerced against.
func (c *Config) Schema() *schema.Registry {
	return c.schema
}

// Layers returns the loaded layers, lowest priority first.
func (c *Config) Layers() []*layer.Layer {
	return c.layers.Layers()
}

// UserFile returns the path of the user's settings file.
func (c *Config) UserFile() string {
	return filepath.Join(c.userConfigDir, UserFileName)
}

// Files returns the settings files read by Load, lowest priority first.
func (c *Config) Files() []string {
	var files []string
	if c.enableUser {
		files = append(files, c.UserFile())
	}
	return append(files, c.files...)
}

// Subscribe registers an observer for all settings changes.
func (c *Config) Subscribe(observer notify.Observer) *notify.Subscription {
	return c.notifier.Subscribe(observer)
}

// SubscribePrefix registers an observer for changes below a key prefix.
func (c *Config) SubscribePrefix(prefix string, observer notify.Observer) *notify.Subscription {
	return c.notifier.SubscribePrefix(prefix, observer)
}

// handleFileChange handles file change events from the watcher.
func (c *Config) handleFileChange(event watcher.Event) {
	c.logger.Info("settings file changed", "path", event.Path, "op", event.Op)
	if err := c.reload(context.Background(), event.Path); err != nil {
		c.logger.Error("reloading settings", "err", err)
	}
}

// defaultUserConfigDir returns the default user configuration directory.
func defaultUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dtsh")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dtsh")
}
