package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/bpe/internal/config"
	"github.com/born-ml/bpe/internal/loader"
	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/tokenizer"
)

// app holds state shared by every command once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "bpe",
		Short: "Byte-level BPE tokenizer",
		Long: `bpe encodes and decodes text with the byte pair encodings used by
GPT-2, GPT-3, GPT-4 and GPT-4o, and benchmarks them against tiktoken-go.

Settings come from flags, BPE_* environment variables and an optional
bpe.yaml in $HOME/.bpe or the working directory.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	defaults := config.DefaultConfig()
	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.bpe/bpe.yaml)")
	pf.String("log-level", defaults.Logging.Level, "log level: trace, debug, info, warn or error")
	pf.Bool("parallel", defaults.Parallel.Enabled, "encode batches in parallel")
	pf.Int("workers", defaults.Parallel.NumWorkers, "parallel workers")
	pf.Int("cache-size", defaults.CacheSize, "chunk cache entries per encoder, 0 disables")

	cmd.AddCommand(
		newBenchCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	level, err := logutil.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logutil.NewLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(a.logger)

	a.logger.Debug("config loaded", "encodings", cfg.Encodings, "parallel", cfg.Parallel.Enabled,
		"workers", cfg.Parallel.NumWorkers, "cache_size", cfg.CacheSize)
	return nil
}

func (a *app) loader() *loader.Loader {
	return loader.New(
		loader.WithLogger(a.logger),
		loader.WithTokenizerOptions(
			tokenizer.WithParallel(a.cfg.Parallel),
			tokenizer.WithCacheSize(a.cfg.CacheSize),
		),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bpe %s\n", version)
		},
	}
}
