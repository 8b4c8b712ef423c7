package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dlclark/regexp2"

	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/vocab"
)

// HFTokenizerType identifies the tokenizer implementation type.
type HFTokenizerType string

const (
	// HFTypeBPE indicates Byte-Pair Encoding tokenizer.
	HFTypeBPE HFTokenizerType = "BPE"

	// HFTypeWordPiece indicates WordPiece tokenizer (BERT-style).
	HFTypeWordPiece HFTokenizerType = "WordPiece"

	// HFTypeUnigram indicates Unigram tokenizer (SentencePiece-style).
	HFTypeUnigram HFTokenizerType = "Unigram"

	// HFTypeUnknown indicates an unknown or unsupported tokenizer type.
	HFTypeUnknown HFTokenizerType = "Unknown"
)

// HFTokenizerMetadata contains metadata from tokenizer.json.
type HFTokenizerMetadata struct {
	Type          HFTokenizerType
	TokenizerType string
	VocabSize     int
	AddedTokens   int
	PreTokenizer  string
}

// hfTokenizer is the subset of tokenizer.json this package reads.
type hfTokenizer struct {
	Model struct {
		Type  string         `json:"type"`
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
	PreTokenizer *hfPreTokenizer `json:"pre_tokenizer"`
}

type hfPreTokenizer struct {
	Type           string `json:"type"`
	AddPrefixSpace bool   `json:"add_prefix_space"`
	UseRegex       *bool  `json:"use_regex"`
	Pattern        struct {
		Regex  string `json:"Regex"`
		String string `json:"String"`
	} `json:"pattern"`
	Behavior      string           `json:"behavior"`
	Invert        bool             `json:"invert"`
	Pretokenizers []hfPreTokenizer `json:"pretokenizers"`
}

func readHF(path string) (*hfTokenizer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from trusted caller
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer.json: %w", err)
	}

	var tok hfTokenizer
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer.json: %w", err)
	}
	return &tok, nil
}

// DetectHFTokenizerType reads the model type and sizes from tokenizer.json.
func DetectHFTokenizerType(path string) (*HFTokenizerMetadata, error) {
	tok, err := readHF(path)
	if err != nil {
		return nil, err
	}

	metadata := &HFTokenizerMetadata{
		Type:          HFTypeUnknown,
		TokenizerType: tok.Model.Type,
		VocabSize:     len(tok.Model.Vocab),
		AddedTokens:   len(tok.AddedTokens),
	}
	switch tok.Model.Type {
	case "BPE":
		metadata.Type = HFTypeBPE
	case "WordPiece":
		metadata.Type = HFTypeWordPiece
	case "Unigram":
		metadata.Type = HFTypeUnigram
	}
	if tok.PreTokenizer != nil {
		metadata.PreTokenizer = tok.PreTokenizer.Type
	}

	return metadata, nil
}

// vocabulary converts a byte-level BPE tokenizer.json into a vocabulary
// config. Token ids are used as ranks. Added tokens become special tokens.
func (tok *hfTokenizer) vocabulary(name string) (vocab.Config, error) {
	switch tok.Model.Type {
	case "BPE":
	case "WordPiece":
		return vocab.Config{}, errors.New("WordPiece tokenizer not supported")
	case "Unigram":
		return vocab.Config{}, errors.New("unigram tokenizer not supported (requires SentencePiece)")
	default:
		return vocab.Config{}, fmt.Errorf("unknown tokenizer type: %q", tok.Model.Type)
	}

	cfg := vocab.Config{
		Name:     name,
		Ranks:    make(map[string]vocab.Rank, len(tok.Model.Vocab)),
		Specials: make(map[string]vocab.Rank, len(tok.AddedTokens)),
	}

	for _, added := range tok.AddedTokens {
		if added.ID < 0 {
			return vocab.Config{}, fmt.Errorf("added token %q: negative id", added.Content)
		}
		cfg.Specials[added.Content] = vocab.Rank(added.ID) //nolint:gosec // G115: checked above.
	}

	decoder := byteDecoder()
	for token, id := range tok.Model.Vocab {
		if _, ok := cfg.Specials[token]; ok {
			continue
		}
		if id < 0 {
			return vocab.Config{}, fmt.Errorf("token %q: negative id", token)
		}

		b, ok := decodeByteLevel(token, decoder)
		if !ok {
			return vocab.Config{}, &vocab.Error{
				Kind:    vocab.ErrVocabulary,
				Token:   []byte(token),
				Details: "not a byte-level token",
			}
		}
		cfg.Ranks[string(b)] = vocab.Rank(id) //nolint:gosec // G115: checked above.
	}

	return cfg, nil
}

// splitter returns the splitter the pre-tokenizer describes.
func (tok *hfTokenizer) splitter() (pretokenize.Splitter, error) {
	if tok.PreTokenizer == nil {
		return nil, errors.New("tokenizer.json has no pre_tokenizer")
	}

	s, err := tok.PreTokenizer.splitter()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("pre_tokenizer %q does not split text", tok.PreTokenizer.Type)
	}
	return s, nil
}

// splitter returns nil when p leaves text whole.
func (p *hfPreTokenizer) splitter() (pretokenize.Splitter, error) {
	switch p.Type {
	case "ByteLevel":
		if p.AddPrefixSpace {
			return nil, errors.New("ByteLevel add_prefix_space is not supported")
		}
		if p.UseRegex != nil && !*p.UseRegex {
			return nil, nil
		}
		return pretokenize.NewRuleSplitter(pretokenize.GPT2), nil

	case "Split":
		if p.Invert || (p.Behavior != "" && p.Behavior != "Isolated") {
			return nil, fmt.Errorf("split behavior %q (invert=%v) is not supported", p.Behavior, p.Invert)
		}
		pattern := p.Pattern.Regex
		if pattern == "" {
			pattern = regexp2.Escape(p.Pattern.String)
		}
		return splitterFor(pattern)

	case "Sequence":
		for i := range p.Pretokenizers {
			s, err := p.Pretokenizers[i].splitter()
			if err != nil || s != nil {
				return s, err
			}
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("pre_tokenizer %q is not supported", p.Type)
	}
}

// splitterFor prefers the rule splitter when pattern is a built-in one.
func splitterFor(pattern string) (pretokenize.Splitter, error) {
	for _, rules := range []pretokenize.Rules{pretokenize.GPT2, pretokenize.CL100K, pretokenize.O200K} {
		if rules.Pattern == pattern {
			return pretokenize.NewRuleSplitter(rules), nil
		}
	}
	return pretokenize.NewRegexpSplitter(pattern)
}

// byteDecoder inverts the GPT-2 byte-to-unicode table: printable Latin-1
// bytes stand for themselves and the rest are shifted to U+0100 and up.
func byteDecoder() map[rune]byte {
	dec := make(map[rune]byte, 256)
	n := 0
	for b := range 256 {
		switch {
		case '!' <= b && b <= '~', '¡' <= b && b <= '¬', '®' <= b && b <= 'ÿ':
			dec[rune(b)] = byte(b)
		default:
			dec[rune(256+n)] = byte(b)
			n++
		}
	}
	return dec
}

func decodeByteLevel(token string, dec map[rune]byte) ([]byte, bool) {
	out := make([]byte, 0, len(token))
	for _, r := range token {
		b, ok := dec[r]
		if !ok {
			return nil, false
		}
		out = append(out, b)
	}
	return out, true
}
