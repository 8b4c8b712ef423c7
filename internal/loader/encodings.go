package loader

import (
	"slices"
	"strings"

	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/vocab"
)

const (
	// EncodingR50kBase is the encoding of GPT-3 base models (davinci, curie, ...).
	EncodingR50kBase = "r50k_base"
	// EncodingP50kBase is the encoding of Codex and text-davinci-002/003.
	EncodingP50kBase = "p50k_base"
	// EncodingP50kEdit is p50k_base with fill-in-the-middle tokens.
	EncodingP50kEdit = "p50k_edit"
	// EncodingCL100kBase is the encoding of GPT-4 and GPT-3.5-turbo.
	EncodingCL100kBase = "cl100k_base"
	// EncodingO200kBase is the encoding of GPT-4o.
	EncodingO200kBase = "o200k_base"
)

const rankFileBase = "https://openaipublic.blob.core.windows.net/encodings/"

// Special token literals.
const (
	EndOfText   = "<|endoftext|>"
	FimPrefix   = "<|fim_prefix|>"
	FimMiddle   = "<|fim_middle|>"
	FimSuffix   = "<|fim_suffix|>"
	EndOfPrompt = "<|endofprompt|>"
)

// Encoding describes a published vocabulary.
type Encoding struct {
	Name string

	// RankFile names the .tiktoken rank table. It is passed to the rank
	// loader as is.
	RankFile string

	Rules    pretokenize.Rules
	Specials map[string]vocab.Rank

	// NVocab is the number of valid ids, base plus special. A loaded table
	// of any other size is rejected.
	NVocab int
}

var encodings = map[string]Encoding{
	EncodingR50kBase: {
		Name:     EncodingR50kBase,
		RankFile: rankFileBase + "r50k_base.tiktoken",
		Rules:    pretokenize.GPT2,
		Specials: map[string]vocab.Rank{EndOfText: 50256},
		NVocab:   50257,
	},
	EncodingP50kBase: {
		Name:     EncodingP50kBase,
		RankFile: rankFileBase + "p50k_base.tiktoken",
		Rules:    pretokenize.GPT2,
		Specials: map[string]vocab.Rank{EndOfText: 50256},
		NVocab:   50281,
	},
	EncodingP50kEdit: {
		Name:     EncodingP50kEdit,
		RankFile: rankFileBase + "p50k_base.tiktoken",
		Rules:    pretokenize.GPT2,
		Specials: map[string]vocab.Rank{
			EndOfText: 50256,
			FimPrefix: 50281,
			FimMiddle: 50282,
			FimSuffix: 50283,
		},
		NVocab: 50284,
	},
	EncodingCL100kBase: {
		Name:     EncodingCL100kBase,
		RankFile: rankFileBase + "cl100k_base.tiktoken",
		Rules:    pretokenize.CL100K,
		Specials: map[string]vocab.Rank{
			EndOfText:   100257,
			FimPrefix:   100258,
			FimMiddle:   100259,
			FimSuffix:   100260,
			EndOfPrompt: 100276,
		},
		NVocab: 100261,
	},
	EncodingO200kBase: {
		Name:     EncodingO200kBase,
		RankFile: rankFileBase + "o200k_base.tiktoken",
		Rules:    pretokenize.O200K,
		Specials: map[string]vocab.Rank{
			EndOfText:   199999,
			EndOfPrompt: 200018,
		},
		NVocab: 200000,
	},
}

// Lookup returns the named encoding.
func Lookup(name string) (Encoding, bool) {
	enc, ok := encodings[name]
	return enc, ok
}

// Encodings returns the names of all known encodings, sorted.
func Encodings() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// modelEncodings maps model names to encodings.
var modelEncodings = map[string]string{
	"gpt-4o":                 EncodingO200kBase,
	"gpt-4":                  EncodingCL100kBase,
	"gpt-3.5-turbo":          EncodingCL100kBase,
	"gpt-35-turbo":           EncodingCL100kBase,
	"text-embedding-ada-002": EncodingCL100kBase,
	"text-embedding-3-small": EncodingCL100kBase,
	"text-embedding-3-large": EncodingCL100kBase,
	"text-davinci-003":       EncodingP50kBase,
	"text-davinci-002":       EncodingP50kBase,
	"code-davinci-002":       EncodingP50kBase,
	"text-davinci-edit-001":  EncodingP50kEdit,
	"code-davinci-edit-001":  EncodingP50kEdit,
	"davinci":                EncodingR50kBase,
	"curie":                  EncodingR50kBase,
	"babbage":                EncodingR50kBase,
	"ada":                    EncodingR50kBase,
	"gpt2":                   EncodingR50kBase,
}

// modelPrefixes maps model name prefixes to encodings. Longer prefixes come
// first.
var modelPrefixes = []struct {
	prefix   string
	encoding string
}{
	{"gpt-4o-", EncodingO200kBase},
	{"gpt-4.1", EncodingO200kBase},
	{"o1-", EncodingO200kBase},
	{"o3-", EncodingO200kBase},
	{"gpt-4-", EncodingCL100kBase},
	{"gpt-3.5-turbo-", EncodingCL100kBase},
	{"gpt-35-turbo-", EncodingCL100kBase},
}

// EncodingForModel returns the encoding name a model uses.
func EncodingForModel(model string) (string, bool) {
	if name, ok := modelEncodings[model]; ok {
		return name, true
	}
	for _, p := range modelPrefixes {
		if strings.HasPrefix(model, p.prefix) {
			return p.encoding, true
		}
	}
	return "", false
}
