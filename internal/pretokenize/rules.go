package pretokenize

import "strings"

// Prefix selects which single character may lead a letter run.
type Prefix int

const (
	// PrefixSpace allows one ASCII space: ` ?\p{L}+`.
	PrefixSpace Prefix = iota

	// PrefixNonAlnum allows any one character that is not CR, LF, a letter
	// or a number: `[^\r\n\p{L}\p{N}]?\p{L}+`.
	PrefixNonAlnum
)

// Rules describes a split pattern as a small set of switches. Each built-in
// vocabulary family was trained with its own rules, so rules travel with the
// vocabulary and are never global.
type Rules struct {
	Name string

	// Contractions emits 's 't 're 've 'm 'll 'd as chunks of their own.
	Contractions bool

	// FoldContractions matches contractions ASCII case-insensitively, both
	// standalone and as CaseSplit suffixes.
	FoldContractions bool

	WordPrefix Prefix

	// CaseSplit splits letter runs at lower-to-upper case transitions and
	// lets a word carry a trailing contraction.
	CaseSplit bool

	// DigitRunMax caps a number run in runes. Zero means unbounded.
	DigitRunMax int

	// DigitPrefixSpace lets one ASCII space lead a number run.
	DigitPrefixSpace bool

	// PunctSuffix lists the characters absorbed after a punctuation run.
	PunctSuffix string

	// NewlineRuns groups whitespace ending in a line break: `\s*[\r\n]+`.
	NewlineRuns bool

	// Pattern is the regular expression these rules implement.
	Pattern string
}

// GPT2 are the rules of r50k_base, p50k_base and p50k_edit.
var GPT2 = Rules{
	Name:             "gpt2",
	Contractions:     true,
	WordPrefix:       PrefixSpace,
	DigitPrefixSpace: true,
	Pattern:          `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`,
}

// CL100K are the rules of cl100k_base.
var CL100K = Rules{
	Name:             "cl100k",
	Contractions:     true,
	FoldContractions: true,
	WordPrefix:       PrefixNonAlnum,
	DigitRunMax:      3,
	PunctSuffix:      "\r\n",
	NewlineRuns:      true,
	Pattern:          `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`,
}

// O200K are the rules of o200k_base.
var O200K = Rules{
	Name:             "o200k",
	FoldContractions: true,
	WordPrefix:       PrefixNonAlnum,
	CaseSplit:        true,
	DigitRunMax:      3,
	PunctSuffix:      "\r\n/",
	NewlineRuns:      true,
	Pattern: strings.Join([]string{
		`[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]*[\p{Ll}\p{Lm}\p{Lo}\p{M}]+(?i:'s|'t|'re|'ve|'m|'ll|'d)?`,
		`[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]+[\p{Ll}\p{Lm}\p{Lo}\p{M}]*(?i:'s|'t|'re|'ve|'m|'ll|'d)?`,
		`\p{N}{1,3}`,
		` ?[^\s\p{L}\p{N}]+[\r\n/]*`,
		`\s*[\r\n]+`,
		`\s+(?!\S)`,
		`\s+`,
	}, "|"),
}

// Builtin returns the named rule set.
func Builtin(name string) (Rules, bool) {
	switch name {
	case GPT2.Name:
		return GPT2, true
	case CL100K.Name:
		return CL100K, true
	case O200K.Name:
		return O200K, true
	default:
		return Rules{}, false
	}
}
