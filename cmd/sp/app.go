package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/daviddao/sprout/pkg/config"
	"github.com/daviddao/sprout/pkg/model"
	"github.com/daviddao/sprout/pkg/store"
)

// app holds shared state for all CLI subcommands.
type app struct {
	store      *store.Store
	cfg        *config.Config
	configPath string
}

// newApp loads configuration, sets up logging and opens the database.
// The database directory is created when missing.
func newApp(configPath string, overrides map[string]any) (*app, error) {
	loader, err := config.NewLoader(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load(overrides)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DB); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "cannot create %s", dir)
		}
	}
	s, err := store.New(cfg.DB)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open database %q", cfg.DB)
	}
	log.Debug().Str("db", cfg.DB).Str("config", loader.Path()).Str("plant", cfg.Plant).Msg("store opened")
	return &app{store: s, cfg: cfg, configPath: loader.Path()}, nil
}

// Close releases the database connection.
func (a *app) Close() { a.store.Close() }

// setupLogging routes zerolog to stderr so stdout stays clean for command
// output and --json.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	noColor := envOr("NO_COLOR", "") != "" || !term.IsTerminal(int(os.Stderr.Fd()))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor, TimeFormat: time.Kitchen})
}

// resolvePlant returns the plant from the flag (if non-empty), falling back
// to the configured default.
func (a *app) resolvePlant(flagVal string) string {
	if p := strings.TrimSpace(flagVal); p != "" {
		return p
	}
	return a.cfg.Plant
}

// resolveConfiguration picks the session configuration for plan and run.
// A nil minutes means --minutes was not given; any given value, including
// zero or a negative one, selects a free-form block clamped to one minute.
// An explicit preset must exist; the configured default preset falls back
// to the first stored preset when it has been deleted.
func (a *app) resolveConfiguration(presetName string, minutes *int) (model.Configuration, error) {
	presetName = strings.TrimSpace(presetName)
	if minutes != nil {
		if presetName != "" {
			return model.Configuration{}, errors.New("use either --preset or --minutes, not both")
		}
		return model.FreeForm(*minutes), nil
	}
	if presetName != "" {
		p, err := a.store.GetPreset(presetName)
		if err != nil {
			return model.Configuration{}, err
		}
		return p.Configuration(), nil
	}

	p, err := a.store.GetPreset(a.cfg.Timer.DefaultPreset)
	if err == nil {
		return p.Configuration(), nil
	}
	if !errors.Is(err, store.ErrPresetNotFound) {
		return model.Configuration{}, err
	}
	presets, err := a.store.ListPresets()
	if err != nil {
		return model.Configuration{}, err
	}
	if len(presets) == 0 {
		return model.DefaultPreset().Configuration(), nil
	}
	log.Warn().Str("preset", a.cfg.Timer.DefaultPreset).Str("using", presets[0].Name).
		Msg("default preset not found")
	return presets[0].Configuration(), nil
}

// visitedInt returns v when the flag called name was set on the command
// line, nil otherwise.
func visitedInt(flags *flag.FlagSet, name string, v *int) *int {
	var set bool
	flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return v
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
