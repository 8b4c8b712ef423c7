package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/tokenizer"
	"github.com/born-ml/bpe/internal/vocab"
)

// Loader builds encoders from named encodings and vocabulary files.
type Loader struct {
	ranks   tiktoken.BpeLoader
	tokOpts []tokenizer.Option
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRankLoader sets where rank tables of named encodings come from. The
// default reads the tables embedded by the offline loader and downloads the
// rest (o200k_base) once into the tiktoken-go cache directory.
func WithRankLoader(l tiktoken.BpeLoader) Option {
	return func(ld *Loader) {
		ld.ranks = l
	}
}

// WithTokenizerOptions sets options applied to every encoder built.
func WithTokenizerOptions(opts ...tokenizer.Option) Option {
	return func(ld *Loader) {
		ld.tokOpts = append(ld.tokOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = logger
	}
}

// New returns a Loader.
func New(opts ...Option) *Loader {
	ld := &Loader{logger: logutil.Discard()}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.ranks == nil {
		ld.ranks = fallbackLoader{tiktoken_loader.NewOfflineLoader(), tiktoken.NewDefaultBpeLoader()}
	}
	return ld
}

// Load builds the encoder of a named encoding.
func (ld *Loader) Load(name string) (*tokenizer.BPE, error) {
	enc, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}

	start := time.Now()
	raw, err := ld.ranks.LoadTiktokenBpe(enc.RankFile)
	if err != nil {
		return nil, fmt.Errorf("load %s ranks: %w", name, err)
	}
	ranks, err := fromBpe(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s ranks: %w", name, err)
	}

	bpe, err := ld.build(enc, ranks)
	if err != nil {
		return nil, err
	}
	ld.logger.Debug("loaded encoding", "name", name, "tokens", bpe.NVocab(), "elapsed", time.Since(start))
	return bpe, nil
}

// LoadForModel builds the encoder a model uses.
func (ld *Loader) LoadForModel(model string) (*tokenizer.BPE, error) {
	name, ok := EncodingForModel(model)
	if !ok {
		return nil, fmt.Errorf("no encoding known for model %q", model)
	}
	return ld.Load(name)
}

// LoadPath builds an encoder from a file. A .tiktoken rank file takes the
// rules and special tokens of the encoding its file name names. A
// tokenizer.json, or a directory holding one, is read as a byte-level BPE
// HuggingFace tokenizer. A .gguf model file contributes its embedded
// tokenizer.
func (ld *Loader) LoadPath(path string) (*tokenizer.BPE, error) {
	switch DetectFormat(path) {
	case FormatTiktoken:
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		enc, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("no encoding named %q for rank file %s", name, path)
		}
		return ld.LoadRankFile(path, enc)

	case FormatHuggingFace:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "tokenizer.json")
		}
		return ld.loadHuggingFace(path)

	case FormatGGUF:
		return ld.loadGGUF(path)

	default:
		return nil, fmt.Errorf("unrecognized vocabulary file %s", path)
	}
}

// LoadRankFile builds an encoder from a .tiktoken rank file using the rules
// and special tokens of enc.
func (ld *Loader) LoadRankFile(path string, enc Encoding) (*tokenizer.BPE, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Path comes from trusted caller
	if err != nil {
		return nil, fmt.Errorf("open rank file: %w", err)
	}
	defer f.Close()

	ranks, err := ParseRankFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ld.build(enc, ranks)
}

func (ld *Loader) loadHuggingFace(path string) (*tokenizer.BPE, error) {
	tok, err := readHF(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(filepath.Dir(path))
	cfg, err := tok.vocabulary(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	splitter, err := tok.splitter()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	v, err := vocab.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ld.logger.Debug("loaded tokenizer.json", "path", path, "tokens", v.NVocab())
	return tokenizer.New(v, splitter, ld.options()...)
}

func (ld *Loader) loadGGUF(path string) (*tokenizer.BPE, error) {
	tok, err := readGGUFTokenizer(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cfg, err := tok.vocabulary(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rules, err := tok.rules()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	v, err := vocab.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ld.logger.Debug("loaded gguf tokenizer", "path", path, "tokens", v.NVocab(), "pre", tok.Pre, "rules", rules.Name)
	return tokenizer.New(v, pretokenize.NewRuleSplitter(rules), ld.options()...)
}

func (ld *Loader) build(enc Encoding, ranks map[string]vocab.Rank) (*tokenizer.BPE, error) {
	v, err := vocab.New(vocab.Config{Name: enc.Name, Ranks: ranks, Specials: enc.Specials})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", enc.Name, err)
	}
	if enc.NVocab > 0 && v.NVocab() != enc.NVocab {
		return nil, fmt.Errorf("encoding %s: %w", enc.Name, &vocab.Error{
			Kind:    vocab.ErrVocabulary,
			Details: fmt.Sprintf("%d tokens, want %d", v.NVocab(), enc.NVocab),
		})
	}

	return tokenizer.New(v, pretokenize.NewRuleSplitter(enc.Rules), ld.options()...)
}

func (ld *Loader) options() []tokenizer.Option {
	return append([]tokenizer.Option{tokenizer.WithLogger(ld.logger)}, ld.tokOpts...)
}

// Reference returns the tiktoken-go encoder of a named encoding, reading
// rank tables through the same rank loader.
func (ld *Loader) Reference(name string) (*tokenizer.TikToken, error) {
	enc, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}

	// tiktoken-go keeps its loader in a package variable.
	referenceMu.Lock()
	defer referenceMu.Unlock()
	tiktoken.SetBpeLoader(ld.ranks)

	return tokenizer.NewTikToken(enc.Name, enc.Specials, enc.NVocab)
}

// Auto loads pathOrName as a vocabulary file or directory, an encoding name
// or a model name, in that order.
func (ld *Loader) Auto(pathOrName string) (*tokenizer.BPE, error) {
	if _, err := os.Stat(pathOrName); err == nil {
		return ld.LoadPath(pathOrName)
	}
	if _, ok := Lookup(pathOrName); ok {
		return ld.Load(pathOrName)
	}
	if _, ok := EncodingForModel(pathOrName); ok {
		return ld.LoadForModel(pathOrName)
	}
	return nil, fmt.Errorf("failed to auto-load tokenizer from %q", pathOrName)
}

var (
	defaultLoader     *Loader
	defaultLoaderOnce sync.Once

	referenceMu sync.Mutex
)

func shared() *Loader {
	defaultLoaderOnce.Do(func() {
		defaultLoader = New()
	})
	return defaultLoader
}

// Load builds the encoder of a named encoding with the default loader.
func Load(name string) (*tokenizer.BPE, error) {
	return shared().Load(name)
}

// LoadPath builds an encoder from a file with the default loader.
func LoadPath(path string) (*tokenizer.BPE, error) {
	return shared().LoadPath(path)
}

// fallbackLoader tries each rank loader in turn.
type fallbackLoader []tiktoken.BpeLoader

func (f fallbackLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	var errs []error
	for _, l := range f {
		ranks, err := l.LoadTiktokenBpe(file)
		if err == nil {
			return ranks, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
