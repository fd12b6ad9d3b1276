// Package config loads sprout's settings from layered sources using koanf.
//
// Precedence, highest first:
//
//  1. CLI flags
//  2. Environment variables (SPROUT_*)
//  3. TOML file ($SPROUT_CONFIG or <user config dir>/sprout/config.toml)
//  4. Defaults
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrConfigInvalid is returned when a loaded value fails validation.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrInvalidPermissions is returned when the config file is world-writable.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SPROUT_"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "SPROUT_CONFIG"

	appDir     = "sprout"
	configFile = "config.toml"
)

// Default values.
const (
	DefaultDB            = ".sprout/sprout.db"
	DefaultPlant         = "default"
	DefaultLogLevel      = "info"
	DefaultTickInterval  = time.Second
	DefaultPresetName    = "Classic"
	defaultTickInterval  = "1s"
	defaultNotifyMinutes = 0
)

// Config is the resolved configuration.
type Config struct {
	DB       string      `koanf:"db"`
	Plant    string      `koanf:"plant"`
	LogLevel string      `koanf:"log_level"`
	Timer    TimerConfig `koanf:"timer"`
}

// TimerConfig holds the run loop and engine settings.
type TimerConfig struct {
	// TickInterval is the period of the external clock. One tick is always
	// one engine second; a shorter interval fast-forwards a session.
	TickInterval time.Duration `koanf:"tick_interval"`

	// NotifyMinFocusMinutes is passed to timer.Options.
	NotifyMinFocusMinutes int `koanf:"notify_min_focus_minutes"`

	// DefaultPreset is used by `sp run` and `sp plan` when neither
	// --preset nor --minutes is given.
	DefaultPreset string `koanf:"default_preset"`
}

// Loader loads Config from defaults, a TOML file, the environment and flags.
type Loader struct {
	k    *koanf.Koanf
	path string
}

// NewLoader returns a loader reading the file at path. An empty path
// resolves through ResolvePath.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		p, err := ResolvePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Loader{k: koanf.New("."), path: path}, nil
}

// ResolvePath returns $SPROUT_CONFIG when set, otherwise the sprout
// config file under the user config directory.
func ResolvePath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config dir")
	}
	return filepath.Join(dir, appDir, configFile), nil
}

// Path returns the config file path this loader reads.
func (l *Loader) Path() string { return l.path }

// Load resolves the configuration. flags keys use the dotted config paths
// (for example "timer.tick_interval"); only keys present are applied. A
// missing config file is not an error.
func (l *Loader) Load(flags map[string]any) (*Config, error) {
	l.k = koanf.New(".")

	if err := l.k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if err := l.loadTOMLFile(l.path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to load config file %s", l.path)
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}
	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if len(flags) > 0 {
		if err := l.k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(errors.Mark(err, ErrConfigInvalid), "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadTOMLFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(ErrInvalidPermissions, "%s is world-writable (mode: %s)", path, info.Mode().Perm())
	}
	return l.k.Load(file.Provider(path), tomlparser.Parser())
}

// envTransform maps SPROUT_TIMER_TICK_INTERVAL to timer.tick_interval and
// SPROUT_LOG_LEVEL to log_level. SPROUT_CONFIG is consumed by ResolvePath
// and skipped here.
func envTransform(key, value string) (string, any) {
	if key == EnvConfigPath {
		return "", nil
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "timer_"); ok {
		key = "timer." + rest
	}
	return key, value
}

func defaultsToMap() map[string]any {
	return map[string]any{
		"db":                             DefaultDB,
		"plant":                          DefaultPlant,
		"log_level":                      DefaultLogLevel,
		"timer.tick_interval":            defaultTickInterval,
		"timer.notify_min_focus_minutes": defaultNotifyMinutes,
		"timer.default_preset":           DefaultPresetName,
	}
}

// Validate checks semantic constraints. Every failure wraps ErrConfigInvalid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.WithMessage(ErrConfigInvalid, "config is nil")
	}
	var problems []string
	if strings.TrimSpace(cfg.DB) == "" {
		problems = append(problems, "db must not be empty")
	}
	if strings.TrimSpace(cfg.Plant) == "" {
		problems = append(problems, "plant must not be empty")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil || cfg.LogLevel == "" {
		problems = append(problems, "unknown log_level "+cfg.LogLevel)
	}
	if cfg.Timer.TickInterval <= 0 {
		problems = append(problems, "timer.tick_interval must be positive")
	}
	if cfg.Timer.NotifyMinFocusMinutes < 0 {
		problems = append(problems, "timer.notify_min_focus_minutes must not be negative")
	}
	if len(problems) > 0 {
		return errors.Wrapf(ErrConfigInvalid, "%s", strings.Join(problems, "; "))
	}
	return nil
}
