package loader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/vocab"
)

// GGUF layout (v2, v3), of which only the header and metadata are read:
// [4 bytes: "GGUF" magic]
// [4 bytes: version]
// [8 bytes: tensor_count]
// [8 bytes: metadata_kv_count]
// [metadata key-value pairs]
// [tensor infos, tensor data]

const (
	ggufMagic = 0x46554747 // "GGUF" in little-endian

	// Upper bounds on lengths read from the file.
	ggufMaxString = 1 << 24
	ggufMaxArray  = 100_000_000

	// Elements allocated ahead of reading them.
	ggufPrealloc = 4096
)

// ggufType is a GGUF metadata value type.
type ggufType uint32

const (
	ggufTypeUint8   ggufType = 0
	ggufTypeInt8    ggufType = 1
	ggufTypeUint16  ggufType = 2
	ggufTypeInt16   ggufType = 3
	ggufTypeUint32  ggufType = 4
	ggufTypeInt32   ggufType = 5
	ggufTypeFloat32 ggufType = 6
	ggufTypeBool    ggufType = 7
	ggufTypeString  ggufType = 8
	ggufTypeArray   ggufType = 9
	ggufTypeUint64  ggufType = 10
	ggufTypeInt64   ggufType = 11
	ggufTypeFloat64 ggufType = 12
)

// size returns the encoded size of a fixed-size type, or 0.
func (t ggufType) size() int {
	switch t {
	case ggufTypeUint8, ggufTypeInt8, ggufTypeBool:
		return 1
	case ggufTypeUint16, ggufTypeInt16:
		return 2
	case ggufTypeUint32, ggufTypeInt32, ggufTypeFloat32:
		return 4
	case ggufTypeUint64, ggufTypeInt64, ggufTypeFloat64:
		return 8
	default:
		return 0
	}
}

// Token types of tokenizer.ggml.token_type.
const (
	ggufTokenNormal      int32 = 1
	ggufTokenUnknown     int32 = 2
	ggufTokenControl     int32 = 3
	ggufTokenUserDefined int32 = 4
	ggufTokenUnused      int32 = 5
	ggufTokenByte        int32 = 6
)

// ggufTokenizer is the tokenizer metadata embedded in a GGUF model file.
type ggufTokenizer struct {
	Model  string   // tokenizer.ggml.model
	Pre    string   // tokenizer.ggml.pre
	Tokens []string // tokenizer.ggml.tokens, indexed by id
	Types  []int32  // tokenizer.ggml.token_type
}

// ggufPreRules maps tokenizer.ggml.pre values to built-in split rules.
var ggufPreRules = map[string]pretokenize.Rules{
	"":          pretokenize.GPT2,
	"default":   pretokenize.GPT2,
	"gpt-2":     pretokenize.GPT2,
	"gpt2":      pretokenize.GPT2,
	"llama-bpe": pretokenize.CL100K,
	"llama3":    pretokenize.CL100K,
	"dbrx":      pretokenize.CL100K,
	"smaug-bpe": pretokenize.CL100K,
	"gpt-4o":    pretokenize.O200K,
}

// ggufReader reads GGUF metadata.
type ggufReader struct {
	r     *bufio.Reader
	order binary.ByteOrder
}

// readGGUFTokenizer reads the tokenizer metadata of a GGUF file. Tensor data
// is never touched.
func readGGUFTokenizer(path string) (*ggufTokenizer, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Path comes from trusted caller
	if err != nil {
		return nil, fmt.Errorf("open gguf: %w", err)
	}
	defer f.Close()

	tok, err := parseGGUFTokenizer(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tok, nil
}

func parseGGUFTokenizer(r io.Reader) (*ggufTokenizer, error) {
	g := &ggufReader{r: bufio.NewReader(r), order: binary.LittleEndian}

	var magic uint32
	if err := g.read(&magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	switch magic {
	case ggufMagic:
	case 0x47475546:
		g.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid GGUF magic: 0x%08X", magic)
	}

	var header struct {
		Version     uint32
		TensorCount uint64
		KVCount     uint64
	}
	if err := g.read(&header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header.Version < 2 || header.Version > 3 {
		return nil, fmt.Errorf("unsupported GGUF version: %d", header.Version)
	}

	tok := &ggufTokenizer{}
	for i := range header.KVCount {
		key, err := g.string()
		if err != nil {
			return nil, fmt.Errorf("metadata %d: read key: %w", i, err)
		}
		var t ggufType
		if err := g.read(&t); err != nil {
			return nil, fmt.Errorf("metadata %s: read type: %w", key, err)
		}

		switch key {
		case "tokenizer.ggml.model":
			tok.Model, err = g.stringValue(t)
		case "tokenizer.ggml.pre":
			tok.Pre, err = g.stringValue(t)
		case "tokenizer.ggml.tokens":
			tok.Tokens, err = g.stringArray(t)
		case "tokenizer.ggml.token_type":
			tok.Types, err = g.int32Array(t)
		default:
			err = g.skip(t)
		}
		if err != nil {
			return nil, fmt.Errorf("metadata %s: %w", key, err)
		}
	}

	return tok, nil
}

func (g *ggufReader) read(v any) error {
	return binary.Read(g.r, g.order, v)
}

func (g *ggufReader) length(limit uint64) (uint64, error) {
	var n uint64
	if err := g.read(&n); err != nil {
		return 0, err
	}
	if n > limit {
		return 0, fmt.Errorf("length %d exceeds %d", n, limit)
	}
	return n, nil
}

func (g *ggufReader) string() (string, error) {
	n, err := g.length(ggufMaxString)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (g *ggufReader) stringValue(t ggufType) (string, error) {
	if t != ggufTypeString {
		return "", fmt.Errorf("type %d, want string", t)
	}
	return g.string()
}

// arrayHeader reads an array's element type and length after checking that
// t is an array.
func (g *ggufReader) arrayHeader(t ggufType) (ggufType, uint64, error) {
	if t != ggufTypeArray {
		return 0, 0, fmt.Errorf("type %d, want array", t)
	}
	var elem ggufType
	if err := g.read(&elem); err != nil {
		return 0, 0, err
	}
	n, err := g.length(ggufMaxArray)
	return elem, n, err
}

func (g *ggufReader) stringArray(t ggufType) ([]string, error) {
	elem, n, err := g.arrayHeader(t)
	if err != nil {
		return nil, err
	}
	if elem != ggufTypeString {
		return nil, fmt.Errorf("array of type %d, want strings", elem)
	}

	// n is untrusted until the elements have actually been read.
	out := make([]string, 0, min(n, ggufPrealloc))
	for i := range n {
		s, err := g.string()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (g *ggufReader) int32Array(t ggufType) ([]int32, error) {
	elem, n, err := g.arrayHeader(t)
	if err != nil {
		return nil, err
	}
	if elem != ggufTypeInt32 {
		return nil, fmt.Errorf("array of type %d, want int32", elem)
	}

	out := make([]int32, 0, min(n, ggufPrealloc))
	buf := make([]int32, min(n, ggufPrealloc))
	for remaining := n; remaining > 0; {
		chunk := buf[:min(remaining, uint64(len(buf)))]
		if err := g.read(chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		remaining -= uint64(len(chunk))
	}
	return out, nil
}

// skip discards a value of type t.
func (g *ggufReader) skip(t ggufType) error {
	if size := t.size(); size > 0 {
		_, err := g.r.Discard(size)
		return err
	}

	switch t {
	case ggufTypeString:
		n, err := g.length(ggufMaxString)
		if err != nil {
			return err
		}
		_, err = g.r.Discard(int(n)) //nolint:gosec // G115: n <= ggufMaxString.
		return err

	case ggufTypeArray:
		var elem ggufType
		if err := g.read(&elem); err != nil {
			return err
		}
		n, err := g.length(ggufMaxArray)
		if err != nil {
			return err
		}
		if size := elem.size(); size > 0 {
			_, err = g.r.Discard(int(n) * size) //nolint:gosec // G115: n <= ggufMaxArray.
			return err
		}
		for range n {
			if err := g.skip(elem); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown value type %d", t)
	}
}

// vocabulary converts byte-level BPE tokenizer metadata into a vocabulary
// config. Token ids are used as ranks. Control, user-defined and unused
// tokens become special tokens.
func (tok *ggufTokenizer) vocabulary(name string) (vocab.Config, error) {
	if tok.Model != "gpt2" {
		return vocab.Config{}, fmt.Errorf("tokenizer model %q is not byte-level BPE", tok.Model)
	}
	if len(tok.Tokens) == 0 {
		return vocab.Config{}, errors.New("no tokenizer.ggml.tokens")
	}
	if tok.Types != nil && len(tok.Types) != len(tok.Tokens) {
		return vocab.Config{}, fmt.Errorf("%d token types for %d tokens", len(tok.Types), len(tok.Tokens))
	}

	cfg := vocab.Config{
		Name:     name,
		Ranks:    make(map[string]vocab.Rank, len(tok.Tokens)),
		Specials: make(map[string]vocab.Rank),
	}

	decoder := byteDecoder()
	for i, token := range tok.Tokens {
		id := vocab.Rank(i) //nolint:gosec // G115: len(tok.Tokens) <= ggufMaxArray.

		kind := ggufTokenNormal
		if tok.Types != nil {
			kind = tok.Types[i]
		}

		if kind == ggufTokenControl || kind == ggufTokenUserDefined || kind == ggufTokenUnused {
			cfg.Specials[token] = id
			continue
		}

		b, ok := decodeByteLevel(token, decoder)
		if !ok {
			return vocab.Config{}, &vocab.Error{
				Kind:    vocab.ErrVocabulary,
				Token:   []byte(token),
				Details: "not a byte-level token",
			}
		}
		cfg.Ranks[string(b)] = id
	}

	return cfg, nil
}

// rules returns the split rules tokenizer.ggml.pre names.
func (tok *ggufTokenizer) rules() (pretokenize.Rules, error) {
	rules, ok := ggufPreRules[tok.Pre]
	if !ok {
		return pretokenize.Rules{}, fmt.Errorf("pre-tokenizer %q is not supported", tok.Pre)
	}
	return rules, nil
}
