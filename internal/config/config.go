// Package config loads querybar settings.
//
// Precedence, lowest first: built-in defaults, the settings file
// (<home>/config.yaml, or the file named by --config), QUERYBAR_*
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"querybar/internal/home"
)

// EnvPrefix prefixes environment overrides: QUERYBAR_RECENT_LIMIT=10.
const EnvPrefix = "QUERYBAR"

// ErrInvalidSetting is returned by Validate.
var ErrInvalidSetting = errors.New("invalid setting")

// Recent store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Token id generators.
const (
	IDsCounter = "counter"
	IDsUUID    = "uuid"
)

// Settings is the resolved configuration.
type Settings struct {
	Home        string
	Schema      string // schema file; empty means the built-in schema
	WatchSchema bool   `mapstructure:"watch_schema"`
	IDs         string `mapstructure:"ids"`
	Recent      RecentSettings
	Editor      EditorSettings
	Log         LogSettings

	// ConfigFile is the settings file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// RecentSettings configures the recent-durations store.
type RecentSettings struct {
	Store string
	Limit int
}

// EditorSettings configures session timings.
type EditorSettings struct {
	BlurGrace    time.Duration `mapstructure:"blur_grace"`
	HintDuration time.Duration `mapstructure:"hint_duration"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level string
	Debug []string // components logged at debug level
}

// Options tells Load where to look.
type Options struct {
	// ConfigFile overrides the settings file location.
	ConfigFile string
	// Flags are bound by name: "home", "schema", "log-level", "debug".
	Flags *pflag.FlagSet
}

// flagKeys maps flag names to setting keys.
var flagKeys = map[string]string{
	"home":      "home",
	"schema":    "schema",
	"log-level": "log.level",
	"debug":     "log.debug",
}

func setDefaults(v *viper.Viper) error {
	hd, err := home.Default()
	if err != nil {
		return err
	}
	v.SetDefault("home", hd.Root())
	v.SetDefault("schema", "")
	v.SetDefault("watch_schema", false)
	v.SetDefault("ids", IDsCounter)
	v.SetDefault("recent.store", StoreSQLite)
	v.SetDefault("recent.limit", 5)
	v.SetDefault("editor.blur_grace", 150*time.Millisecond)
	v.SetDefault("editor.hint_duration", 2*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", []string{})
	return nil
}

// Load resolves settings. A missing settings file is not an error unless
// it was named explicitly.
func Load(opts Options) (Settings, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return Settings{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	explicit := opts.ConfigFile != ""
	if explicit {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.AddConfigPath(v.GetString("home"))
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	s.ConfigFile = v.ConfigFileUsed()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks enumerated values and ranges.
func (s Settings) Validate() error {
	var errs []error
	if !slices.Contains([]string{StoreMemory, StoreSQLite}, s.Recent.Store) {
		errs = append(errs, fmt.Errorf("%w: recent.store %q (want memory or sqlite)", ErrInvalidSetting, s.Recent.Store))
	}
	if s.Recent.Limit <= 0 {
		errs = append(errs, fmt.Errorf("%w: recent.limit must be positive, got %d", ErrInvalidSetting, s.Recent.Limit))
	}
	if !slices.Contains([]string{IDsCounter, IDsUUID}, s.IDs) {
		errs = append(errs, fmt.Errorf("%w: ids %q (want counter or uuid)", ErrInvalidSetting, s.IDs))
	}
	if s.Editor.BlurGrace <= 0 || s.Editor.HintDuration <= 0 {
		errs = append(errs, fmt.Errorf("%w: editor timings must be positive", ErrInvalidSetting))
	}
	if _, err := ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel reads a log level name: debug, info, warn or error.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidSetting, name)
	}
	return l, nil
}

// HomeDir is the home directory the settings point at.
func (s Settings) HomeDir() home.Dir {
	return home.New(s.Home)
}

// SchemaPath is the schema file to load: the configured one, else
// <home>/schema.yaml when it exists, else "".
func (s Settings) SchemaPath() string {
	if s.Schema != "" {
		return s.Schema
	}
	if p := s.HomeDir().SchemaPath(); home.Exists(p) {
		return p
	}
	return ""
}
