package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/bench"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"cl100k_base", "r50k_base", "p50k_base"}, cfg.Encodings)
	assert.Equal(t, bench.Scenarios, cfg.Bench.Scenarios)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpe.yaml")
	err := os.WriteFile(path, []byte(`
encodings: [r50k_base]
cache_size: 4096
parallel:
  enabled: true
  workers: 3
bench:
  scenarios: [basic, catastrophic]
  reference: true
logging:
  level: debug
`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"r50k_base"}, cfg.Encodings)
	assert.Equal(t, 4096, cfg.CacheSize)
	assert.True(t, cfg.Parallel.Enabled)
	assert.Equal(t, 3, cfg.Parallel.NumWorkers)
	assert.Equal(t, []string{"basic", "catastrophic"}, cfg.Bench.Scenarios)
	assert.True(t, cfg.Bench.Reference)
	assert.Equal(t, bench.DefaultText, cfg.Bench.Text)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ListsReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encodings: [p50k_base]\n"), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("scenario", nil, "")
	require.NoError(t, flags.Parse([]string{"--scenario=basic"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, []string{"p50k_base"}, cfg.Encodings)
	assert.Equal(t, []string{"basic"}, cfg.Bench.Scenarios)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("BPE_CACHE_SIZE", "128")
	t.Setenv("BPE_PARALLEL_WORKERS", "7")
	t.Setenv("BPE_LOGGING_LEVEL", "trace")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.CacheSize)
	assert.Equal(t, 7, cfg.Parallel.NumWorkers)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func TestLoad_Flags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 1, "")
	flags.String("log-level", "info", "")
	flags.StringSlice("scenario", nil, "")
	require.NoError(t, flags.Parse([]string{"--workers=5", "--scenario=decode", "--scenario=batch"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Parallel.NumWorkers)
	assert.Equal(t, []string{"decode", "batch"}, cfg.Bench.Scenarios)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "unknown encoding", modify: func(c *Config) { c.Encodings = []string{"gpt5_base"} }},
		{name: "negative cache", modify: func(c *Config) { c.CacheSize = -1 }},
		{name: "no workers", modify: func(c *Config) { c.Parallel.NumWorkers = 0 }},
		{name: "unknown scenario", modify: func(c *Config) { c.Bench.Scenarios = []string{"warp"} }},
		{name: "bad log level", modify: func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
