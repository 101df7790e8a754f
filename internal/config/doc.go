// Package config provides the settings of the devicetree shell.
//
// The config package loads the shell's settings from layered INI sources,
// resolves \uXXXX escapes and ${key} references, coerces values to their
// declared types and serves them from an immutable snapshot.
//
// # Architecture
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  5. Session overrides       │  ← Highest priority
//	├─────────────────────────────┤
//	│  4. Environment Variables   │  ← DTSH_PREF_LIST_HEADERS=no
//	├─────────────────────────────┤
//	│  3. Extra files             │  ← dtshconf --config FILE
//	├─────────────────────────────┤
//	│  2. User Settings           │  ← ~/.config/dtsh/dtsh.ini
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Layers are merged key by key before anything is resolved, so a user
// value may reference a default and a default picks up overridden values
// it references.
//
// # Sub-packages
//
//   - ini: line-oriented parser for the settings file format
//   - interp: \uXXXX escapes and ${key} interpolation
//   - schema: declared keys, types, defaults and coercion
//   - layer: layer management and merging
//   - loader: layer sources (embedded manifest, files, environment)
//   - store: immutable resolved snapshots and the typed accessor
//   - diag: error kinds and diagnostics
//   - notify: change notification on reload
//   - watcher: file watching for live reload
//   - export: INI, JSON, YAML and TOML serializers
//
// # Basic Usage
//
//	cfg := config.New()
//	defer cfg.Close()
//	if err := cfg.Load(ctx); err != nil {
//	    // Some settings file was unreadable; built-in values still apply.
//	    log.GetLogger().Warn("loading settings", "err", err)
//	}
//
//	headers := cfg.Bool("dtsh.pref.list.headers")
//	prompt := cfg.Prompt().Default
//
// # Failure Containment
//
// Reads never fail. A value that cannot be parsed, resolved or coerced
// takes the default of its key, and the problem is recorded as a
// Diagnostic on the snapshot. Reading a key with the wrong type, or a key
// nobody declared, returns a default or zero value and records a
// diagnostic as well.
package config
