package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	Route   RouteConfig   `mapstructure:"route"`
	Log     LogConfig     `mapstructure:"log"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// AppConfig holds presentation settings.
type AppConfig struct {
	// Version tags persisted snapshots. Bumping it discards old state.
	Version  string `mapstructure:"version" validate:"required"`
	Theme    string `mapstructure:"theme" validate:"oneof=mocha plain"`
	LogState bool   `mapstructure:"log_state"`
}

// StorageConfig selects where snapshots live.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite file none"`
	Path   string `mapstructure:"path" validate:"required_unless=Driver none"`
	Key    string `mapstructure:"key"`
}

// RouteConfig holds the fragment the app starts on.
type RouteConfig struct {
	Initial string `mapstructure:"initial"`
}

// LogConfig holds log file settings.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel converts Level.
func (l LogConfig) SlogLevel() slog.Level {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lv
}

// DebugConfig enables the debug HTTP server when Addr is set.
type DebugConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "tealens")
}

// DefaultPath is the config file used when neither a flag nor TEALENS_CONFIG
// names one.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "tealens", "config.toml")
}

// Loader reads configuration from file and env and can watch the file.
// Env var overrides use prefix TEALENS_.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader for path; an empty path falls back to
// TEALENS_CONFIG and then DefaultPath.
func NewLoader(path string) *Loader {
	v := viper.New()

	// default values
	v.SetDefault("app.version", "1")
	v.SetDefault("app.theme", "mocha")
	v.SetDefault("app.log_state", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(dataDir(), "tealens.db"))
	v.SetDefault("storage.key", "state")
	v.SetDefault("route.initial", "")
	v.SetDefault("log.path", filepath.Join(dataDir(), "tealens.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("debug.addr", "")

	v.SetConfigType("toml")
	if path == "" {
		path = os.Getenv("TEALENS_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("TEALENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return &Loader{v: v}
}

// Path returns the config file path.
func (l *Loader) Path() string { return l.v.ConfigFileUsed() }

// Load reads the config file if present and returns the validated config.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return l.decode()
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

func (l *Loader) decode() (Config, error) {
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Watch calls fn with the re-read config every time the file changes. fn
// runs on viper's watcher goroutine. The file must exist when Watch is called.
func (l *Loader) Watch(fn func(Config, error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		fn(l.decode())
	})
	l.v.WatchConfig()
}

// Save writes the provided config to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("app.version", cfg.App.Version)
	v.Set("app.theme", cfg.App.Theme)
	v.Set("app.log_state", cfg.App.LogState)
	v.Set("storage.driver", cfg.Storage.Driver)
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("storage.key", cfg.Storage.Key)
	v.Set("route.initial", cfg.Route.Initial)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("debug.addr", cfg.Debug.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
