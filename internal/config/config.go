// Package config loads runtime settings from .wbs.yaml, WBS_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "WBS"
	fileName       = ".wbs"
	defaultDirName = ".wbs"
)

// ServeConfig holds settings for the HTTP API.
type ServeConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
}

// Config holds all runtime configuration for the wbs binary.
type Config struct {
	DBPath   string      `mapstructure:"db_path"`
	Currency string      `mapstructure:"currency"`
	Period   string      `mapstructure:"period"`
	LogLevel string      `mapstructure:"log_level"`
	LogCalls bool        `mapstructure:"log_calls"`
	Serve    ServeConfig `mapstructure:"serve"`
}

// SetDefaults registers the built-in value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", filepath.Join("~", defaultDirName, "wbs.db"))
	v.SetDefault("currency", "USD")
	v.SetDefault("period", string(budget.PeriodMonth))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_calls", false)
	v.SetDefault("serve.addr", "127.0.0.1:8420")
	v.SetDefault("serve.metrics", true)
}

// Init points v at the config file and the environment. An explicit file
// must exist; the default .wbs.yaml lookup in the working directory and
// ~/.wbs is optional.
func Init(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, defaultDirName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load applies defaults and decodes v into a Config, expanding a leading ~
// in db_path and checking enumerated values.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	path, err := expandHome(cfg.DBPath)
	if err != nil {
		return Config{}, err
	}
	cfg.DBPath = path
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))

	if _, err := budget.ParsePeriodType(cfg.Period); err != nil {
		return Config{}, fmt.Errorf("config period: %w", err)
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SlogLevel returns the configured log level. Load has already validated it.
func (c Config) SlogLevel() slog.Level {
	lvl, _ := ParseLogLevel(c.LogLevel)
	return lvl
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config log_level %q: want debug, info, warn or error", s)
	}
	return lvl, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
