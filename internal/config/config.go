// Package config loads settings for the bpe command from defaults, an
// optional YAML file, BPE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/bpe/internal/bench"
	"github.com/born-ml/bpe/internal/loader"
	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/parallel"
)

// Config represents the application configuration.
type Config struct {
	Encodings []string        `mapstructure:"encodings"`
	CacheSize int             `mapstructure:"cache_size"`
	Parallel  parallel.Config `mapstructure:"parallel"`
	Bench     BenchConfig     `mapstructure:"bench"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BenchConfig selects the benchmark scenarios and input text. Reference adds
// a tiktoken-go comparison column.
type BenchConfig struct {
	Scenarios []string `mapstructure:"scenarios"`
	Text      string   `mapstructure:"text"`
	Reference bool     `mapstructure:"reference"`
}

// LoggingConfig holds the log level: trace, debug, info, warn or error.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"cache-size": "cache_size",
	"workers":    "parallel.workers",
	"parallel":   "parallel.enabled",
	"scenario":   "bench.scenarios",
	"text":       "bench.text",
	"reference":  "bench.reference",
	"log-level":  "logging.level",
}

// DefaultConfig returns configuration with default values. The default
// encodings are those whose rank tables ship embedded, so a bare bench runs
// without network access.
func DefaultConfig() *Config {
	return &Config{
		Encodings: []string{
			loader.EncodingCL100kBase,
			loader.EncodingR50kBase,
			loader.EncodingP50kBase,
		},
		CacheSize: 0,
		Parallel:  parallel.DefaultConfig(),
		Bench: BenchConfig{
			Scenarios: slices.Clone(bench.Scenarios),
			Text:      bench.DefaultText,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, environment, flags and defaults.
// flags may be nil; only flags the user set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v, DefaultConfig())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bpe"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("bpe")
	}

	v.SetEnvPrefix("BPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Decode into an empty Config: viper already holds every default, and
	// decoding over default slices would merge them element by element.
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for _, name := range c.Encodings {
		if _, ok := loader.Lookup(name); !ok {
			return fmt.Errorf("encodings: unknown encoding %q (known: %v)", name, loader.Encodings())
		}
	}

	if c.CacheSize < 0 {
		return errors.New("cache_size must not be negative")
	}
	if c.Parallel.NumWorkers < 1 {
		return errors.New("parallel.workers must be at least 1")
	}

	for _, s := range c.Bench.Scenarios {
		if !slices.Contains(bench.Scenarios, s) {
			return fmt.Errorf("bench.scenarios: unknown scenario %q (known: %v)", s, bench.Scenarios)
		}
	}

	if _, err := logutil.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("encodings", cfg.Encodings)
	v.SetDefault("cache_size", cfg.CacheSize)

	v.SetDefault("parallel.enabled", cfg.Parallel.Enabled)
	v.SetDefault("parallel.workers", cfg.Parallel.NumWorkers)
	v.SetDefault("parallel.min_batch_size", cfg.Parallel.MinChunkSize)

	v.SetDefault("bench.scenarios", cfg.Bench.Scenarios)
	v.SetDefault("bench.text", cfg.Bench.Text)
	v.SetDefault("bench.reference", cfg.Bench.Reference)

	v.SetDefault("logging.level", cfg.Logging.Level)
}
