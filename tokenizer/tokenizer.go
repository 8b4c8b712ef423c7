// Package tokenizer provides byte-level BPE tokenization compatible with the
// GPT-2, GPT-3, GPT-4 and GPT-4o encodings.
//
// This package wraps the internal encoder and loaders and provides a small
// public API.
//
// Supported sources:
//   - Named encodings: r50k_base, p50k_base, p50k_edit, cl100k_base, o200k_base
//   - Model names such as "gpt-4" or "gpt-4o"
//   - .tiktoken rank files and HuggingFace byte-level BPE tokenizer.json files
//
// Example usage:
//
//	import "github.com/born-ml/bpe/tokenizer"
//
//	enc, err := tokenizer.Load("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids := enc.Encode("Hello world") // [9906 1917]
//
//	text, err := enc.DecodeString(ids)
//	if err != nil {
//	    log.Fatal(err)
//	}
package tokenizer

import (
	"github.com/born-ml/bpe/internal/loader"
	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/tokenizer"
)

// Tokenizer is the interface shared by BPE and TikToken.
type Tokenizer = tokenizer.Tokenizer

// Rank is a token id. Lower ranks merge first.
type Rank = tokenizer.Rank

// BPE is the byte-level BPE encoder.
type BPE = tokenizer.BPE

// TikToken wraps tiktoken-go behind Tokenizer.
type TikToken = tokenizer.TikToken

// Option configures encoders built by Load and friends.
type Option = tokenizer.Option

// ParallelConfig controls batch encoding.
type ParallelConfig = parallel.Config

// DefaultParallelConfig returns batch settings using every CPU.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// WithParallel sets how EncodeBatch spreads work.
func WithParallel(cfg ParallelConfig) Option {
	return tokenizer.WithParallel(cfg)
}

// WithCacheSize enables a cache of n encoded chunks.
func WithCacheSize(n int) Option {
	return tokenizer.WithCacheSize(n)
}

// Encoding names.
const (
	R50kBase   = loader.EncodingR50kBase
	P50kBase   = loader.EncodingP50kBase
	P50kEdit   = loader.EncodingP50kEdit
	CL100kBase = loader.EncodingCL100kBase
	O200kBase  = loader.EncodingO200kBase
)

// Encodings lists the built-in encoding names.
func Encodings() []string {
	return loader.Encodings()
}

// Load builds the encoder of a named encoding.
func Load(name string, opts ...Option) (*BPE, error) {
	return newLoader(opts).Load(name)
}

// LoadForModel builds the encoder used by a model, e.g. "gpt-4o".
func LoadForModel(model string, opts ...Option) (*BPE, error) {
	return newLoader(opts).LoadForModel(model)
}

// LoadPath builds an encoder from a .tiktoken rank file or a HuggingFace
// tokenizer.json (or a directory holding one).
func LoadPath(path string, opts ...Option) (*BPE, error) {
	return newLoader(opts).LoadPath(path)
}

// AutoLoad attempts to automatically load the correct tokenizer.
//
// It tries, in order:
//  1. A rank file, tokenizer.json or model directory at pathOrName
//  2. An encoding name
//  3. A model name
func AutoLoad(pathOrName string, opts ...Option) (*BPE, error) {
	return newLoader(opts).Auto(pathOrName)
}

// NewTikToken returns the tiktoken-go encoder of a named encoding.
func NewTikToken(name string) (*TikToken, error) {
	return loader.New().Reference(name)
}

func newLoader(opts []Option) *loader.Loader {
	return loader.New(loader.WithTokenizerOptions(opts...))
}
