// Package vocabtest builds small byte-level vocabularies for tests.
package vocabtest

import (
	"testing"

	"github.com/born-ml/bpe/internal/vocab"
)

// ByteRanks returns a rank table holding every single byte at rank == byte value.
func ByteRanks() map[string]vocab.Rank {
	ranks := make(map[string]vocab.Rank, 256)
	for b := range 256 {
		ranks[string([]byte{byte(b)})] = vocab.Rank(b)
	}
	return ranks
}

// Config returns a vocabulary config with all 256 bytes at ranks 0-255 and
// merges appended at ranks 256, 257, ... in the given order.
func Config(merges ...string) vocab.Config {
	ranks := ByteRanks()
	next := vocab.Rank(256)
	for _, m := range merges {
		if _, ok := ranks[m]; ok {
			continue
		}
		ranks[m] = next
		next++
	}
	return vocab.Config{Name: "test", Ranks: ranks}
}

// New builds a vocabulary from Config(merges...) plus specials, whose ids are
// assigned after the last merge in map iteration-independent order.
func New(tb testing.TB, specials []string, merges ...string) *vocab.Vocabulary {
	tb.Helper()

	cfg := Config(merges...)
	next := vocab.Rank(len(cfg.Ranks))
	cfg.Specials = make(map[string]vocab.Rank, len(specials))
	for _, s := range specials {
		cfg.Specials[s] = next
		next++
	}

	v, err := vocab.New(cfg)
	if err != nil {
		tb.Fatalf("vocabtest: %v", err)
	}
	return v
}
