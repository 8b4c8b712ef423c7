package main

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/bpe/internal/bench"
	"github.com/born-ml/bpe/internal/config"
	"github.com/born-ml/bpe/internal/loader"
)

func newBenchCmd(a *app) *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bench [encoding|model|path]...",
		Short: "Benchmark encodings",
		Long: `Time each encoding on short, medium and long prose, repetitive input,
decoding, single-token round trips and batches. With no arguments the
configured encodings are used.`,
		RunE: a.benchHandler,
	}

	cmd.Flags().StringSlice("scenario", defaults.Bench.Scenarios, "scenarios to run")
	cmd.Flags().String("text", defaults.Bench.Text, "sentence the prose workloads repeat")
	cmd.Flags().Bool("reference", defaults.Bench.Reference, "also time tiktoken-go on named encodings")
	return cmd
}

func (a *app) benchHandler(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = a.cfg.Encodings
	}

	ld := a.loader()
	opts := bench.Options{
		Scenarios: a.cfg.Bench.Scenarios,
		Text:      a.cfg.Bench.Text,
		Logger:    a.logger,
	}

	var data [][]string
	for _, name := range names {
		start := time.Now()
		enc, err := ld.Auto(name)
		if err != nil {
			return err
		}
		a.logger.Info("benchmarking", "encoding", name, "load", time.Since(start).Round(time.Millisecond))

		results, err := bench.Run(cmd.Context(), enc, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		var reference []bench.Result
		if a.cfg.Bench.Reference {
			reference, err = a.benchReference(cmd, ld, name, opts)
			if err != nil {
				return err
			}
		}

		data = append(data, benchRows(name, results, reference, a.cfg.Bench.Reference)...)
	}

	header := []string{"ENCODING", "SCENARIO", "TOTAL", "PER OP"}
	if a.cfg.Bench.Reference {
		header = append(header, "TIKTOKEN-GO", "SPEEDUP")
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// benchReference times tiktoken-go on name. Names that are not built-in
// encodings have no reference and yield nil.
func (a *app) benchReference(cmd *cobra.Command, ld *loader.Loader, name string, opts bench.Options) ([]bench.Result, error) {
	if _, ok := loader.Lookup(name); !ok {
		a.logger.Warn("no reference for encoding", "encoding", name)
		return nil, nil
	}

	ref, err := ld.Reference(name)
	if err != nil {
		return nil, err
	}
	results, err := bench.Run(cmd.Context(), ref, opts)
	if err != nil {
		return nil, fmt.Errorf("%s reference: %w", name, err)
	}
	return results, nil
}

// benchRows renders one row per scenario. With withRef set, every row gets
// reference columns, "-" where tiktoken-go was not timed.
func benchRows(name string, results, reference []bench.Result, withRef bool) [][]string {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		row := []string{name, r.Description, formatDuration(r.Elapsed), formatDuration(r.PerOp())}
		switch {
		case !withRef:
		case i < len(reference) && r.Elapsed > 0:
			ref := reference[i]
			row = append(row, formatDuration(ref.Elapsed), fmt.Sprintf("%.2fx", float64(ref.Elapsed)/float64(r.Elapsed)))
		default:
			row = append(row, "-", "-")
		}
		rows = append(rows, row)
	}
	return rows
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}
