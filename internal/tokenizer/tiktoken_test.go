package tokenizer

import (
	"context"
	"testing"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/vocab"
)

var cl100kSpecials = map[string]Rank{
	"<|endoftext|>":   100257,
	"<|fim_prefix|>":  100258,
	"<|fim_middle|>":  100259,
	"<|fim_suffix|>":  100260,
	"<|endofprompt|>": 100276,
}

func newTikToken(t *testing.T) *TikToken {
	t.Helper()
	if testing.Short() {
		t.Skip("loads a full rank table")
	}

	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	tok, err := NewTikToken("cl100k_base", cl100kSpecials, 100261)
	if err != nil {
		t.Skipf("cl100k_base unavailable: %v", err)
	}
	return tok
}

func TestTikToken_NewTikToken_Invalid(t *testing.T) {
	tok, err := NewTikToken("invalid_encoding_xyz", nil, 0)
	assert.Error(t, err)
	assert.Nil(t, tok)
}

func TestTikToken_Roundtrip(t *testing.T) {
	tok := newTikToken(t)

	tests := []struct {
		name string
		text string
	}{
		{
			name: "simple text",
			text: "Hello, world!",
		},
		{
			name: "with newlines",
			text: "Hello\nWorld\n",
		},
		{
			name: "unicode",
			text: "Hello 世界! 🌍",
		},
		{
			name: "empty string",
			text: "",
		},
		{
			name: "special token",
			text: "end<|endoftext|>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := tok.Decode(tok.Encode(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(decoded))
		})
	}
}

func TestTikToken_SpecialTokens(t *testing.T) {
	tok := newTikToken(t)

	assert.Equal(t, []Rank{100257}, tok.Encode("<|endoftext|>"))
	assert.NotContains(t, tok.EncodeOrdinary("<|endoftext|>"), Rank(100257))

	assert.True(t, tok.IsSpecialToken(100257))
	assert.True(t, tok.IsSpecialToken(100276))
	assert.False(t, tok.IsSpecialToken(0))
	assert.False(t, tok.IsSpecialToken(1000))
}

func TestTikToken_SingleToken(t *testing.T) {
	tok := newTikToken(t)

	for id := range Rank(1000) {
		b, err := tok.DecodeSingleTokenBytes(id)
		require.NoError(t, err)
		got, err := tok.EncodeSingleToken(b)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err := tok.EncodeSingleToken([]byte("definitely not one token"))
	assert.ErrorIs(t, err, vocab.ErrUnknownToken)
}

func TestTikToken_EncodeBatch(t *testing.T) {
	tok := newTikToken(t)

	texts := []string{"one", "two three", "", "four<|endoftext|>"}
	got, err := tok.EncodeBatch(context.Background(), texts)
	require.NoError(t, err)
	for i, text := range texts {
		assert.Equal(t, tok.Encode(text), got[i])
	}
	assert.Equal(t, 100261, tok.VocabSize())
	assert.Equal(t, "cl100k_base", tok.Name())
}
