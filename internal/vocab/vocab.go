// Package vocab holds the immutable rank table a byte-level BPE encoder
// merges against.
//
// A Vocabulary maps byte strings to ranks (the rank doubles as the token id),
// the inverse id -> bytes table, and a set of special tokens that are matched
// atomically and never decomposed. It is built once by New and is safe for
// unsynchronized concurrent reads afterwards.
package vocab

import (
	"cmp"
	"fmt"
	"slices"
)

// Rank is both a merge priority and a token id. Lower ranks merge first.
type Rank = uint32

// Config is the raw material for a Vocabulary, usually produced by a loader.
type Config struct {
	Name     string
	Ranks    map[string]Rank // byte string -> rank
	Specials map[string]Rank // special literal -> id
}

// Vocabulary is a validated, read-only BPE rank table.
type Vocabulary struct {
	name string

	ranks  map[string]Rank
	tokens [][]byte // id -> bytes; nil where a special token owns the id

	specials     map[string]Rank
	specialBytes map[Rank][]byte
	specialOrder []string // longest first, then lexical

	maxTokenLen int
	maxValue    Rank
}

// New validates cfg and builds a Vocabulary.
//
// It fails with an error matching ErrVocabulary if two byte strings share a
// rank, if any single byte is missing, if the base id range has a hole that
// no special token fills, or if a special token collides with another id.
func New(cfg Config) (*Vocabulary, error) {
	if len(cfg.Ranks) == 0 {
		return nil, invalid("empty rank table")
	}

	var maxRank Rank
	for _, r := range cfg.Ranks {
		maxRank = max(maxRank, r)
	}
	if int(maxRank) >= len(cfg.Ranks)+len(cfg.Specials) {
		return nil, invalid("rank %d exceeds table size %d", maxRank, len(cfg.Ranks)+len(cfg.Specials))
	}

	v := &Vocabulary{
		name:         cfg.Name,
		ranks:        make(map[string]Rank, len(cfg.Ranks)),
		tokens:       make([][]byte, int(maxRank)+1),
		specials:     make(map[string]Rank, len(cfg.Specials)),
		specialBytes: make(map[Rank][]byte, len(cfg.Specials)),
		maxValue:     maxRank,
	}

	for s, r := range cfg.Ranks {
		if s == "" {
			return nil, invalid("empty byte string at rank %d", r)
		}
		if prev := v.tokens[r]; prev != nil {
			return nil, invalid("rank %d assigned to both %q and %q", r, prev, s)
		}
		v.ranks[s] = r
		v.tokens[r] = []byte(s)
		v.maxTokenLen = max(v.maxTokenLen, len(s))
	}

	for b := range 256 {
		if _, ok := v.ranks[string([]byte{byte(b)})]; !ok {
			return nil, invalid("byte 0x%02x has no rank", b)
		}
	}

	for s, id := range cfg.Specials {
		if s == "" {
			return nil, invalid("empty special token at id %d", id)
		}
		if int(id) < len(v.tokens) && v.tokens[id] != nil {
			return nil, invalid("special token %q collides with base token %q at id %d", s, v.tokens[id], id)
		}
		if prev, ok := v.specialBytes[id]; ok {
			return nil, invalid("id %d assigned to special tokens %q and %q", id, prev, s)
		}
		v.specials[s] = id
		v.specialBytes[id] = []byte(s)
		v.specialOrder = append(v.specialOrder, s)
		v.maxValue = max(v.maxValue, id)
	}

	for id, b := range v.tokens {
		if b == nil {
			if _, ok := v.specialBytes[Rank(id)]; !ok {
				return nil, invalid("id %d has no token", id)
			}
		}
	}

	slices.SortFunc(v.specialOrder, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	return v, nil
}

// Name returns the vocabulary name, e.g. "cl100k_base".
func (v *Vocabulary) Name() string {
	return v.name
}

// Rank returns the rank of b if it is a base vocabulary entry.
func (v *Vocabulary) Rank(b []byte) (Rank, bool) {
	r, ok := v.ranks[string(b)]
	return r, ok
}

// RankString is Rank for string input.
func (v *Vocabulary) RankString(s string) (Rank, bool) {
	r, ok := v.ranks[s]
	return r, ok
}

// MaxTokenLen returns the byte length of the longest base entry.
func (v *Vocabulary) MaxTokenLen() int {
	return v.maxTokenLen
}

// TokenBytes returns the bytes of a base or special token.
// The returned slice must not be modified.
func (v *Vocabulary) TokenBytes(id Rank) ([]byte, error) {
	if int(id) < len(v.tokens) {
		if b := v.tokens[id]; b != nil {
			return b, nil
		}
	}
	if b, ok := v.specialBytes[id]; ok {
		return b, nil
	}
	return nil, unknownID(id)
}

// Lookup returns the id of an exact base or special token.
func (v *Vocabulary) Lookup(b []byte) (Rank, error) {
	if r, ok := v.ranks[string(b)]; ok {
		return r, nil
	}
	if id, ok := v.specials[string(b)]; ok {
		return id, nil
	}
	return 0, unknownToken(b)
}

// SpecialID returns the id of a special token literal.
func (v *Vocabulary) SpecialID(literal string) (Rank, bool) {
	id, ok := v.specials[literal]
	return id, ok
}

// IsSpecial reports whether id belongs to a special token.
func (v *Vocabulary) IsSpecial(id Rank) bool {
	_, ok := v.specialBytes[id]
	return ok
}

// Specials returns the special token literals, longest first.
func (v *Vocabulary) Specials() []string {
	return slices.Clone(v.specialOrder)
}

// SpecialTokens returns a copy of the special literal -> id table.
func (v *Vocabulary) SpecialTokens() map[string]Rank {
	m := make(map[string]Rank, len(v.specials))
	for s, id := range v.specials {
		m[s] = id
	}
	return m
}

// Len returns the number of base (mergeable) entries.
func (v *Vocabulary) Len() int {
	return len(v.ranks)
}

// NVocab returns the number of valid ids, base plus special.
func (v *Vocabulary) NVocab() int {
	return len(v.ranks) + len(v.specials)
}

// MaxTokenValue returns the largest valid id.
func (v *Vocabulary) MaxTokenValue() Rank {
	return v.maxValue
}

// String implements fmt.Stringer.
func (v *Vocabulary) String() string {
	return fmt.Sprintf("%s (%d tokens, %d special)", v.name, len(v.ranks), len(v.specials))
}
