// Package config holds the precodita CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sghaida/precodita/dispatch"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".precodita.yaml"

// EnvPrefix prefixes environment overrides, e.g. PRECODITA_TIE_POLICY.
const EnvPrefix = "PRECODITA"

// Config is the CLI configuration.
type Config struct {
	// TiePolicy is "ambiguous" (fail on ties) or "registration" (first registered wins).
	TiePolicy string `mapstructure:"tie_policy"`

	Debug    bool   `mapstructure:"debug"`
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// Color is "auto", "always" or "never".
	Color string `mapstructure:"color"`

	// CacheTTL bounds invoke cache entries; 0 keeps them for the whole run.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		TiePolicy: "ambiguous",
		LogLevel:  "debug",
		Color:     "auto",
	}
}

var (
	// ErrInvalidTiePolicy is returned for an unknown tie_policy.
	ErrInvalidTiePolicy = errors.New("config: invalid tie_policy")

	// ErrInvalidColor is returned for an unknown color mode.
	ErrInvalidColor = errors.New("config: invalid color")
)

// Tie maps TiePolicy onto dispatch.TiePolicy.
func (c Config) Tie() (dispatch.TiePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.TiePolicy)) {
	case "", "ambiguous":
		return dispatch.TieAmbiguous, nil
	case "registration", "registration-order", "first":
		return dispatch.TieRegistrationOrder, nil
	default:
		return dispatch.TieAmbiguous, fmt.Errorf("%w: %q", ErrInvalidTiePolicy, c.TiePolicy)
	}
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := c.Tie(); err != nil {
		return err
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidColor, c.Color)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: negative cache_ttl %s", c.CacheTTL)
	}
	return nil
}

// Load reads configuration into v and returns it.
//
// Lookup order: defaults, then the config file (path, or DefaultFile if it
// exists), then PRECODITA_* environment variables, then flags already bound
// to v.
func Load(v *viper.Viper, path string) (Config, error) {
	defaults := Defaults()
	v.SetDefault("tie_policy", defaults.TiePolicy)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("color", defaults.Color)
	v.SetDefault("cache_ttl", defaults.CacheTTL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			v.SetConfigFile(DefaultFile)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", DefaultFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
