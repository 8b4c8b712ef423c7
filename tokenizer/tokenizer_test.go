package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/tokenizer"
)

func TestEncodings(t *testing.T) {
	assert.Contains(t, tokenizer.Encodings(), tokenizer.CL100kBase)
	assert.Len(t, tokenizer.Encodings(), 5)
}

func TestLoad_Unknown(t *testing.T) {
	_, err := tokenizer.Load("nope")
	assert.Error(t, err)

	_, err = tokenizer.LoadForModel("not-a-model")
	assert.Error(t, err)

	_, err = tokenizer.AutoLoad("not-a-model")
	assert.Error(t, err)

	_, err = tokenizer.NewTikToken("nope")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("loads full rank tables")
	}

	enc, err := tokenizer.LoadForModel("gpt-4",
		tokenizer.WithCacheSize(1024),
		tokenizer.WithParallel(tokenizer.DefaultParallelConfig()))
	if err != nil {
		t.Skipf("cl100k_base unavailable: %v", err)
	}

	ids := enc.Encode("Hello world")
	assert.Equal(t, []tokenizer.Rank{9906, 1917}, ids)

	text, err := enc.DecodeString(ids)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	var _ tokenizer.Tokenizer = enc
}
