package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dshills/dtshconf/internal/config"
	"github.com/dshills/dtshconf/internal/log"
)

// configFlags selects the layers a command loads.
type configFlags struct {
	files    []string
	sets     []string
	noUser   bool
	noEnv    bool
	logLevel string
	maxDepth int
	color    string
}

// AddFlags registers the flags on flagSet.
func (f *configFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringArrayVarP(&f.files, "config", "c", nil, "extra settings `file`, applied above the user's file (repeatable, later files win)")
	flagSet.StringArrayVar(&f.sets, "set", nil, "override a setting with `key=value` (repeatable)")
	flagSet.BoolVar(&f.noUser, "no-user", false, "do not read the user's settings file")
	flagSet.BoolVar(&f.noEnv, "no-env", false, "ignore DTSH_* environment variables")
	flagSet.StringVar(&f.logLevel, "log-level", "warn", "log `level` (debug, info, warn, error)")
	flagSet.IntVar(&f.maxDepth, "max-depth", 0, "maximum ${} reference chain length (0 for the default)")
	flagSet.StringVar(&f.color, "color", "auto", "colorize output (auto, always, never)")
}

// overrides parses the --set values.
func (f *configFlags) overrides() (map[string]string, error) {
	out := make(map[string]string, len(f.sets))
	for _, kv := range f.sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		out[key] = value
	}
	return out, nil
}

// open builds and loads the configuration. Unreadable settings files are
// logged and do not fail the command.
func (f *configFlags) open(ctx context.Context, stderr io.Writer, opts ...config.Option) (*config.Config, error) {
	level, err := log.ParseLevel(f.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	overrides, err := f.overrides()
	if err != nil {
		return nil, err
	}

	base := []config.Option{
		config.WithFiles(f.files...),
		config.WithUserFile(!f.noUser),
		config.WithEnv(!f.noEnv),
		config.WithOverrides(overrides),
		config.WithMaxDepth(f.maxDepth),
		config.WithLogger(log.New(stderr, level)),
		config.WithWatcher(false),
	}
	cfg := config.New(append(base, opts...)...)

	if err := cfg.Load(ctx); err != nil && ctx.Err() != nil {
		cfg.Close()
		return nil, err
	}
	return cfg, nil
}
