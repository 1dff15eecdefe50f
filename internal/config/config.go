// Package config loads runner settings. Values are layered, lowest first:
// built-in defaults, an argus.yaml file, ARGUS_* environment variables, and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/argus-api/argus/internal/logging"
)

// DefaultConfigName is the config file looked up in the working directory
// when no explicit path is given (argus.yaml or argus.yml).
const DefaultConfigName = "argus"

// EnvPrefix prefixes environment overrides, e.g. ARGUS_WORKERS.
const EnvPrefix = "ARGUS"

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config holds the resolved settings.
type Config struct {
	Workers  int           `mapstructure:"workers"`
	Timeout  time.Duration `mapstructure:"timeout"`
	LogLevel string        `mapstructure:"log_level"`
	Format   string        `mapstructure:"format"`
	Ordered  bool          `mapstructure:"ordered"`
	XLSX     string        `mapstructure:"xlsx"`
	NoColor  bool          `mapstructure:"no_color"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"workers":   "workers",
	"timeout":   "timeout",
	"log-level": "log_level",
	"format":    "format",
	"ordered":   "ordered",
	"xlsx":      "xlsx",
	"no-color":  "no_color",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 8)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("format", FormatTable)
	v.SetDefault("ordered", false)
	v.SetDefault("xlsx", "")
	v.SetDefault("no_color", false)
}

// RegisterFlags adds the config flags to fs. Flag defaults are only shown in
// help; unset flags never override lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP("workers", "w", 8, "maximum concurrent independent tests")
	fs.Duration("timeout", 30*time.Second, "per-request timeout")
	fs.String("log-level", "info", "default log level (debug, info, warn, error)")
	fs.StringP("format", "f", FormatTable, "output format (table, json)")
	fs.Bool("ordered", false, "list results in declaration order instead of completion order")
	fs.String("xlsx", "", "also write a spreadsheet report to this path")
	fs.Bool("no-color", false, "disable colored output")
}

// Load resolves the configuration. path names a config file that must
// exist; when empty, argus.yaml in the working directory is used if present.
// flags may be nil.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. Errors name the offending key.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers: must be at least 1, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout: must be positive, got %s", c.Timeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("format: must be %q or %q, got %q", FormatTable, FormatJSON, c.Format)
	}
	return nil
}
