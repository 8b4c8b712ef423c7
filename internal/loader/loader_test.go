package loader

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/tokenizer"
	"github.com/born-ml/bpe/internal/vocab"
	"github.com/born-ml/bpe/internal/vocab/vocabtest"
)

// mapLoader serves rank tables from memory, keyed by rank file.
type mapLoader map[string]map[string]int

func (m mapLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	ranks, ok := m[file]
	if !ok {
		return nil, fmt.Errorf("no such rank file %s", file)
	}
	return ranks, nil
}

func tinyRanks(merges ...string) map[string]int {
	out := make(map[string]int)
	for token, rank := range vocabtest.Config(merges...).Ranks {
		out[token] = int(rank)
	}
	return out
}

func writeRankFile(t *testing.T, name string, ranks map[string]int) string {
	t.Helper()

	var sb strings.Builder
	for token, rank := range ranks {
		fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte(token)), rank)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func TestParseRankFile(t *testing.T) {
	input := "aGVsbG8= 256\n\nIA== 32\n"
	ranks, err := ParseRankFile(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, map[string]vocab.Rank{"hello": 256, " ": 32}, ranks)
}

func TestParseRankFile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing rank", input: "aGVsbG8=\n"},
		{name: "bad base64", input: "!!!! 1\n"},
		{name: "bad rank", input: "aGVsbG8= x\n"},
		{name: "rank overflow", input: "aGVsbG8= 4294967296\n"},
		{name: "negative rank", input: "aGVsbG8= -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRankFile(strings.NewReader(tt.input))
			require.ErrorIs(t, err, vocab.ErrVocabulary)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestLoadRankFile(t *testing.T) {
	path := writeRankFile(t, "tiny.tiktoken", tinyRanks("th", "he", "the"))
	enc := Encoding{
		Name:     "tiny",
		Rules:    pretokenize.GPT2,
		Specials: map[string]vocab.Rank{EndOfText: 259},
	}

	bpe, err := New().LoadRankFile(path, enc)
	require.NoError(t, err)

	assert.Equal(t, []tokenizer.Rank{258, 259, ' ', 258}, bpe.Encode("the<|endoftext|> the"))
	assert.Equal(t, 260, bpe.NVocab())
}

func TestLoadPath_UnknownRankFile(t *testing.T) {
	path := writeRankFile(t, "tiny.tiktoken", tinyRanks())

	_, err := New().LoadPath(path)
	assert.Error(t, err)

	_, err = New().LoadPath(filepath.Join(t.TempDir(), "vocab.bin"))
	assert.Error(t, err)
}

func TestLoad_RankLoader(t *testing.T) {
	enc, ok := Lookup(EncodingR50kBase)
	require.True(t, ok)

	ld := New(WithRankLoader(mapLoader{enc.RankFile: tinyRanks("th")}))

	_, err := ld.Load(EncodingR50kBase)
	require.ErrorIs(t, err, vocab.ErrVocabulary, "a 257-token table is not r50k_base")

	_, err = ld.Load(EncodingCL100kBase)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such rank file")

	_, err = ld.Load("nope")
	assert.Error(t, err)

	_, err = ld.LoadForModel("not-a-model")
	assert.Error(t, err)
}

func TestFallbackLoader(t *testing.T) {
	enc, ok := Lookup(EncodingO200kBase)
	require.True(t, ok)

	embedded := mapLoader{"r50k_base.tiktoken": tinyRanks()}
	remote := mapLoader{enc.RankFile: tinyRanks("th")}
	ranks := fallbackLoader{embedded, remote}

	got, err := ranks.LoadTiktokenBpe(enc.RankFile)
	require.NoError(t, err)
	assert.Len(t, got, 257)

	_, err = ranks.LoadTiktokenBpe("missing.tiktoken")
	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "no such rank file"))
}

func TestLoad_RankOutOfRange(t *testing.T) {
	enc, _ := Lookup(EncodingR50kBase)
	ranks := tinyRanks()
	ranks["xx"] = -5

	_, err := New(WithRankLoader(mapLoader{enc.RankFile: ranks})).Load(EncodingR50kBase)
	assert.ErrorIs(t, err, vocab.ErrVocabulary)

	_, err = fromBpe(map[string]int{"a": math.MaxInt})
	if strconv.IntSize == 64 {
		assert.ErrorIs(t, err, vocab.ErrVocabulary)
	} else {
		assert.NoError(t, err)
	}
}

func TestEncodings(t *testing.T) {
	names := Encodings()
	assert.Equal(t, []string{"cl100k_base", "o200k_base", "p50k_base", "p50k_edit", "r50k_base"}, names)

	for _, name := range names {
		enc, ok := Lookup(name)
		require.True(t, ok)
		assert.Equal(t, name, enc.Name)
		assert.NotEmpty(t, enc.RankFile)
		assert.Contains(t, enc.Specials, EndOfText)
		assert.Positive(t, enc.NVocab)
	}
}

func TestEncodingForModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4", EncodingCL100kBase},
		{"gpt-4-0613", EncodingCL100kBase},
		{"gpt-3.5-turbo", EncodingCL100kBase},
		{"gpt-4o", EncodingO200kBase},
		{"gpt-4o-mini", EncodingO200kBase},
		{"text-davinci-003", EncodingP50kBase},
		{"code-davinci-edit-001", EncodingP50kEdit},
		{"davinci", EncodingR50kBase},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := EncodingForModel(tt.model)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := EncodingForModel("unknown-model-xyz")
	assert.False(t, ok)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, FormatHuggingFace, DetectFormat(dir))
	assert.Equal(t, FormatHuggingFace, DetectFormat("model/tokenizer.json"))
	assert.Equal(t, FormatTiktoken, DetectFormat("cl100k_base.tiktoken"))
	assert.Equal(t, FormatGGUF, DetectFormat("llama-3.gguf"))
	assert.Equal(t, FormatUnknown, DetectFormat("vocab.txt"))
	assert.Equal(t, "tiktoken", FormatTiktoken.String())
	assert.Equal(t, "GGUF", FormatGGUF.String())
	assert.Equal(t, "Unknown", Format(99).String())
}

func TestAuto(t *testing.T) {
	path := writeRankFile(t, "tiny.tiktoken", tinyRanks())

	_, err := New().Auto(path)
	assert.Error(t, err, "file exists but names no encoding")

	_, err = New().Auto("unknown-model-xyz")
	assert.Error(t, err)
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("nope")
	assert.Error(t, err)

	_, err = LoadPath(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = New().Reference("nope")
	assert.Error(t, err)
}

func TestLoad_Builtin(t *testing.T) {
	if testing.Short() {
		t.Skip("loads full rank tables")
	}

	bpe, err := Load(EncodingCL100kBase)
	if err != nil {
		t.Skipf("cl100k_base unavailable: %v", err)
	}

	assert.Equal(t, 100261, bpe.NVocab())
	assert.Equal(t, []tokenizer.Rank{9906, 1917}, bpe.Encode("Hello world"))
	assert.Equal(t, []tokenizer.Rank{100257}, bpe.Encode(EndOfText))
	assert.Equal(t, tokenizer.Rank(100276), bpe.MaxTokenValue())

	var vErr *vocab.Error
	_, err = bpe.Decode([]tokenizer.Rank{100256})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, vocab.ErrUnknownTokenID, vErr.Kind)
}
