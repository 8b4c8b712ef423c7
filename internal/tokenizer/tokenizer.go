package tokenizer

import (
	"context"

	"github.com/born-ml/bpe/internal/vocab"
)

// Rank is a token id.
type Rank = vocab.Rank

// Tokenizer is the interface shared by the BPE engine and the tiktoken-go
// reference used for comparison.
type Tokenizer interface {
	// Encode converts text to token ids. Special token literals in text map
	// to their ids.
	Encode(text string) []Rank

	// EncodeOrdinary converts text to token ids treating special token
	// literals as ordinary text.
	EncodeOrdinary(text string) []Rank

	// EncodeSingleToken returns the id of a byte string that is exactly one
	// token.
	EncodeSingleToken(b []byte) (Rank, error)

	// EncodeBatch encodes every text, preserving order.
	EncodeBatch(ctx context.Context, texts []string) ([][]Rank, error)

	// Decode converts token ids back to bytes.
	Decode(tokens []Rank) ([]byte, error)

	// DecodeSingleTokenBytes returns the bytes of one token.
	DecodeSingleTokenBytes(token Rank) ([]byte, error)

	// VocabSize returns the number of valid token ids.
	VocabSize() int

	// IsSpecialToken checks if a token id is a special token.
	IsSpecialToken(token Rank) bool
}

var (
	_ Tokenizer = (*BPE)(nil)
	_ Tokenizer = (*TikToken)(nil)
)
