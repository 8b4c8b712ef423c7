package tokenizer

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// Decode concatenates the bytes of every token. The result may split a
// UTF-8 sequence if tokens does; use DecodeString for display.
func (b *BPE) Decode(tokens []Rank) ([]byte, error) {
	out := make([]byte, 0, len(tokens)*4)
	for i, id := range tokens {
		tok, err := b.vocab.TokenBytes(id)
		if err != nil {
			return nil, fmt.Errorf("decode token %d: %w", i, err)
		}
		out = append(out, tok...)
	}
	return out, nil
}

// DecodeSingleTokenBytes returns the bytes of one token.
func (b *BPE) DecodeSingleTokenBytes(token Rank) ([]byte, error) {
	tok, err := b.vocab.TokenBytes(token)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), tok...), nil
}

// DecodeString decodes tokens and renders the bytes as text, replacing
// malformed UTF-8 with U+FFFD.
func (b *BPE) DecodeString(tokens []Rank) (string, error) {
	raw, err := b.Decode(tokens)
	if err != nil {
		return "", err
	}
	return renderUTF8(raw)
}

func renderUTF8(raw []byte) (string, error) {
	text, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("render utf-8: %w", err)
	}
	return string(text), nil
}

// VocabSize returns the number of valid token ids, base plus special.
func (b *BPE) VocabSize() int {
	return b.vocab.NVocab()
}

// NVocab is VocabSize.
func (b *BPE) NVocab() int {
	return b.vocab.NVocab()
}

// MaxTokenValue returns the largest valid token id.
func (b *BPE) MaxTokenValue() Rank {
	return b.vocab.MaxTokenValue()
}

// IsSpecialToken checks if a token id is a special token.
func (b *BPE) IsSpecialToken(token Rank) bool {
	return b.vocab.IsSpecial(token)
}
