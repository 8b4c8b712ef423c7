package tokenizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/vocab"
)

// allSpecial lets tiktoken-go match every special token, as Encode does.
var allSpecial = []string{"all"}

// TikToken wraps the pkoukk/tiktoken-go library. It serves as the baseline
// the BPE engine is measured and checked against.
//
// Ids the wrapped encoding does not know are dropped by Decode, as
// tiktoken-go does; DecodeSingleTokenBytes reports them.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
	nVocab   int
	specials map[string]Rank
	special  map[Rank]bool
	par      parallel.Config

	inverseOnce sync.Once
	inverse     map[string]Rank // token bytes -> id, built on first use
}

// NewTikToken loads encodingName through tiktoken-go. specials and nVocab
// describe the encoding, since tiktoken-go does not expose them.
func NewTikToken(encodingName string, specials map[string]Rank, nVocab int) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	special := make(map[Rank]bool, len(specials))
	for _, id := range specials {
		special[id] = true
	}

	return &TikToken{
		encoding: encoding,
		name:     encodingName,
		nVocab:   nVocab,
		specials: specials,
		special:  special,
		par:      parallel.DefaultConfig(),
	}, nil
}

// Encode converts text to token ids, matching every special token.
func (t *TikToken) Encode(text string) []Rank {
	return toRanks(t.encoding.Encode(text, allSpecial, nil))
}

// EncodeOrdinary converts text to token ids without special matching.
func (t *TikToken) EncodeOrdinary(text string) []Rank {
	return toRanks(t.encoding.EncodeOrdinary(text))
}

// EncodeSingleToken returns the id of tok, which must be exactly one base or
// special token. tiktoken-go only matches strings, which loses invalid UTF-8,
// so the inverse table is built from Decode on first use.
func (t *TikToken) EncodeSingleToken(tok []byte) (Rank, error) {
	if id, ok := t.specials[string(tok)]; ok {
		return id, nil
	}

	t.inverseOnce.Do(t.buildInverse)
	id, ok := t.inverse[string(tok)]
	if !ok {
		return 0, &vocab.Error{Kind: vocab.ErrUnknownToken, Token: append([]byte{}, tok...)}
	}
	return id, nil
}

func (t *TikToken) buildInverse() {
	t.inverse = make(map[string]Rank, t.nVocab)
	for id := range t.nVocab {
		if t.special[Rank(id)] { //nolint:gosec // G115: nVocab is below 2^32.
			continue
		}
		if b := t.encoding.Decode([]int{id}); b != "" {
			t.inverse[b] = Rank(id) //nolint:gosec // G115: nVocab is below 2^32.
		}
	}
}

// EncodeBatch encodes texts concurrently, preserving order.
func (t *TikToken) EncodeBatch(ctx context.Context, texts []string) ([][]Rank, error) {
	out := make([][]Rank, len(texts))
	err := parallel.ForEach(ctx, len(texts), func(_ context.Context, i int) error {
		out[i] = t.Encode(texts[i])
		return nil
	}, t.par)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decode converts token ids back to bytes.
func (t *TikToken) Decode(tokens []Rank) ([]byte, error) {
	return []byte(t.encoding.Decode(toInts(tokens))), nil
}

// DecodeSingleTokenBytes returns the bytes of one token.
func (t *TikToken) DecodeSingleTokenBytes(token Rank) ([]byte, error) {
	b := t.encoding.Decode([]int{int(token)})
	if b == "" {
		return nil, &vocab.Error{Kind: vocab.ErrUnknownTokenID, ID: token, HasID: true}
	}
	return []byte(b), nil
}

// VocabSize returns the number of valid token ids.
func (t *TikToken) VocabSize() int {
	return t.nVocab
}

// IsSpecialToken checks if a token id is a special token.
func (t *TikToken) IsSpecialToken(token Rank) bool {
	return t.special[token]
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}

func toRanks(ids []int) []Rank {
	out := make([]Rank, len(ids))
	for i, id := range ids {
		out[i] = Rank(id) //nolint:gosec // G115: ids are below 2^32.
	}
	return out
}

func toInts(ids []Rank) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
