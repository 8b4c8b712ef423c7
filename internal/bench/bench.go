// Package bench times an encoder on a fixed set of workloads: short, medium
// and long prose, catastrophically repetitive input, decoding, single-token
// round trips and batches.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/tokenizer"
)

// DefaultText is the sentence every prose workload is built from.
const DefaultText = "The quick brown fox jumps over the lazy dog."

// catastrophic are the motifs repeated to build pathological inputs.
var catastrophic = []string{"^", "0", "a", "'s", " ", "\n"}

const catastrophicRepeat = 10_000

// Scenario names.
const (
	Basic        = "basic"
	Medium       = "medium"
	Large        = "large"
	Catastrophic = "catastrophic"
	Decode       = "decode"
	SingleToken  = "single-token"
	Batch        = "batch"
)

// Scenarios lists every scenario in run order.
var Scenarios = []string{Basic, Medium, Large, Catastrophic, Decode, SingleToken, Batch}

// Options configures Run.
type Options struct {
	// Scenarios selects what to run; empty runs everything.
	Scenarios []string

	// Text is the base sentence; empty uses DefaultText.
	Text string

	Logger *slog.Logger
}

// Result is the timing of one scenario.
type Result struct {
	Scenario    string
	Description string
	Iterations  int
	Elapsed     time.Duration
}

// PerOp returns the mean time per iteration.
func (r Result) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Iterations)
}

// workload is a prepared scenario. op runs one iteration.
type workload struct {
	description string
	iterations  int
	op          func(ctx context.Context) error
}

// Run times each selected scenario on enc. It stops at the first failure or
// when ctx is done.
func Run(ctx context.Context, enc tokenizer.Tokenizer, opts Options) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logutil.Discard()
	}
	text := opts.Text
	if text == "" {
		text = DefaultText
	}
	selected := opts.Scenarios
	if len(selected) == 0 {
		selected = Scenarios
	}

	results := make([]Result, 0, len(selected))
	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		w, err := prepare(name, enc, text)
		if err != nil {
			return results, err
		}

		start := time.Now()
		for range w.iterations {
			if err := w.op(ctx); err != nil {
				return results, fmt.Errorf("%s: %w", name, err)
			}
		}
		r := Result{
			Scenario:    name,
			Description: w.description,
			Iterations:  w.iterations,
			Elapsed:     time.Since(start),
		}
		logger.Debug("scenario done", "scenario", name, "iterations", r.Iterations, "elapsed", r.Elapsed)
		results = append(results, r)
	}
	return results, nil
}

func prepare(name string, enc tokenizer.Tokenizer, text string) (workload, error) {
	switch name {
	case Basic:
		return encodeN("Basic encode (1000x)", enc, text, 1000), nil
	case Medium:
		return encodeN("Medium encode (100x)", enc, strings.Repeat(text, 25), 100), nil
	case Large:
		return encodeN("Large encode (10x)", enc, strings.Repeat(text, 250), 10), nil

	case Catastrophic:
		inputs := make([]string, len(catastrophic))
		for i, c := range catastrophic {
			inputs[i] = strings.Repeat(c, catastrophicRepeat)
		}
		return workload{
			description: fmt.Sprintf("Catastrophic (%d chars)", len(inputs)),
			iterations:  1,
			op: func(context.Context) error {
				for _, in := range inputs {
					enc.Encode(in)
				}
				return nil
			},
		}, nil

	case Decode:
		tokens := enc.Encode(strings.Repeat(text, 25))
		return workload{
			description: "Decode (100x)",
			iterations:  100,
			op: func(context.Context) error {
				_, err := enc.Decode(tokens)
				return err
			},
		}, nil

	case SingleToken:
		n := min(1000, enc.VocabSize())
		return workload{
			description: fmt.Sprintf("Single token RT (%d)", n),
			iterations:  1,
			op: func(context.Context) error {
				return singleTokenRoundTrip(enc, n)
			},
		}, nil

	case Batch:
		texts := slices.Repeat([]string{text}, 100)
		return workload{
			description: "Batch encode (10x100)",
			iterations:  10,
			op: func(ctx context.Context) error {
				_, err := enc.EncodeBatch(ctx, texts)
				return err
			},
		}, nil

	default:
		return workload{}, fmt.Errorf("unknown scenario %q", name)
	}
}

func encodeN(description string, enc tokenizer.Tokenizer, text string, n int) workload {
	return workload{
		description: description,
		iterations:  n,
		op: func(context.Context) error {
			enc.Encode(text)
			return nil
		},
	}
}

// errRoundTrip reports a token that did not survive decode then encode.
var errRoundTrip = errors.New("single token round trip mismatch")

func singleTokenRoundTrip(enc tokenizer.Tokenizer, n int) error {
	for id := range tokenizer.Rank(n) { //nolint:gosec // G115: n <= 1000.
		b, err := enc.DecodeSingleTokenBytes(id)
		if err != nil {
			return err
		}
		got, err := enc.EncodeSingleToken(b)
		if err != nil {
			return err
		}
		if got != id {
			return fmt.Errorf("%w: %d became %d", errRoundTrip, id, got)
		}
	}
	return nil
}
