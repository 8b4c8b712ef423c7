package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/merge"
	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/vocab"
)

// maxCachedChunk is the longest chunk, in bytes, the chunk cache keeps.
const maxCachedChunk = 256

// BPE is a byte-level BPE encoder and decoder over one vocabulary.
type BPE struct {
	vocab  *vocab.Vocabulary
	pre    *pretokenize.PreTokenizer
	par    parallel.Config
	logger *slog.Logger

	cacheSize int
	cache     *lru.Cache[string, []Rank]
}

// Option configures a BPE.
type Option func(*BPE)

// WithParallel sets the worker configuration used by EncodeBatch.
func WithParallel(cfg parallel.Config) Option {
	return func(b *BPE) {
		b.par = cfg
	}
}

// WithCacheSize enables a chunk -> ids cache holding up to n entries.
// Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(b *BPE) {
		b.cacheSize = n
	}
}

// WithLogger sets the logger. Per-chunk detail is logged at trace level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *BPE) {
		b.logger = logger
	}
}

// New returns an encoder for v whose ordinary text is split by splitter.
func New(v *vocab.Vocabulary, splitter pretokenize.Splitter, opts ...Option) (*BPE, error) {
	if v == nil {
		return nil, errors.New("tokenizer: nil vocabulary")
	}
	if splitter == nil {
		return nil, errors.New("tokenizer: nil splitter")
	}

	b := &BPE{
		vocab:  v,
		pre:    pretokenize.New(splitter, v.SpecialTokens(), v.Specials()),
		par:    parallel.DefaultConfig(),
		logger: logutil.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.cacheSize > 0 {
		cache, err := lru.New[string, []Rank](b.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("tokenizer: chunk cache: %w", err)
		}
		b.cache = cache
	}

	b.logger.Debug("tokenizer ready",
		"vocabulary", v.Name(),
		"tokens", v.Len(),
		"specials", len(v.Specials()),
		"cache", b.cacheSize,
		"workers", b.par.NumWorkers)

	return b, nil
}

// Vocabulary returns the vocabulary the encoder was built with.
func (b *BPE) Vocabulary() *vocab.Vocabulary {
	return b.vocab
}

// PreTokenizer returns the pre-tokenizer the encoder splits text with.
func (b *BPE) PreTokenizer() *pretokenize.PreTokenizer {
	return b.pre
}

// Encode converts text to token ids. Special token literals become their ids
// and never merge with neighbouring text. Encode never fails: every byte has
// an id.
func (b *BPE) Encode(text string) []Rank {
	return b.encode(b.pre.Chunks(text), len(text))
}

// EncodeOrdinary is Encode with special token literals treated as ordinary
// text.
func (b *BPE) EncodeOrdinary(text string) []Rank {
	return b.encode(b.pre.Ordinary(text), len(text))
}

func (b *BPE) encode(chunks iter.Seq[pretokenize.Chunk], n int) []Rank {
	ids := make([]Rank, 0, n/3+1)
	for c := range chunks {
		if c.Special {
			ids = append(ids, c.ID)
			continue
		}
		ids = b.appendChunk(ids, c.Text)
	}
	return ids
}

// appendChunk encodes one ordinary chunk.
func (b *BPE) appendChunk(dst []Rank, text string) []Rank {
	if id, ok := b.vocab.RankString(text); ok {
		return append(dst, id)
	}

	cacheable := b.cache != nil && len(text) <= maxCachedChunk
	if cacheable {
		if ids, ok := b.cache.Get(text); ok {
			return append(dst, ids...)
		}
	}

	start := len(dst)
	dst = merge.AppendEncode(dst, b.vocab, []byte(text))
	logutil.Trace(b.logger, "merged chunk", "bytes", len(text), "ids", len(dst)-start)

	if cacheable {
		b.cache.Add(strings.Clone(text), slices.Clone(dst[start:]))
	}
	return dst
}

// EncodeSingleToken returns the id of tok, which must be exactly one base or
// special token.
func (b *BPE) EncodeSingleToken(tok []byte) (Rank, error) {
	return b.vocab.Lookup(tok)
}

// EncodeBatch encodes every text concurrently. Results are in input order.
//
// Cancellation is observed before each text starts. A cancelled batch
// returns the context error and no results.
func (b *BPE) EncodeBatch(ctx context.Context, texts []string) ([][]Rank, error) {
	out := make([][]Rank, len(texts))
	err := parallel.ForEach(ctx, len(texts), func(_ context.Context, i int) error {
		out[i] = b.Encode(texts[i])
		return nil
	}, b.par)
	if err != nil {
		return nil, err
	}
	return out, nil
}
