// Package pretokenize splits text into the chunks a BPE merge engine works
// on, keeping special tokens atomic.
//
// Merges never cross a chunk boundary, so the split must reproduce the
// boundaries the vocabulary was trained with. Each vocabulary family carries
// its own Rules; RuleSplitter implements them as an explicit classifier and
// RegexpSplitter covers arbitrary patterns.
package pretokenize

import (
	"iter"
	"strings"

	"github.com/born-ml/bpe/internal/vocab"
)

// Chunk is one pre-tokenization match. Special chunks carry their id and are
// never merged.
type Chunk struct {
	Text    string
	Special bool
	ID      vocab.Rank
}

type special struct {
	literal string
	id      vocab.Rank
}

// PreTokenizer isolates special tokens and splits the ordinary text between
// them. It holds no per-call state and is safe for concurrent use.
type PreTokenizer struct {
	splitter Splitter
	specials []special // longest first
}

// New returns a PreTokenizer. Literals are matched in the order given by
// order, which should list longer literals first so the longest match wins
// among literals starting at the same position.
func New(splitter Splitter, specials map[string]vocab.Rank, order []string) *PreTokenizer {
	p := &PreTokenizer{splitter: splitter}
	for _, lit := range order {
		if id, ok := specials[lit]; ok {
			p.specials = append(p.specials, special{literal: lit, id: id})
		}
	}
	return p
}

// Splitter returns the ordinary-text splitter.
func (p *PreTokenizer) Splitter() Splitter {
	return p.splitter
}

// Chunks scans text left to right. Ordinary chunks never extend into a
// special token, so a special literal always yields exactly one chunk.
func (p *PreTokenizer) Chunks(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		s := p.newScan(text)
		for pos := 0; pos < len(text); {
			start, sp, found := s.next(pos)
			if !found {
				start = len(text)
			}

			for piece := range p.splitter.Split(text[pos:start]) {
				if !yield(Chunk{Text: piece}) {
					return
				}
			}
			if !found {
				return
			}

			if !yield(Chunk{Text: sp.literal, Special: true, ID: sp.id}) {
				return
			}
			pos = start + len(sp.literal)
		}
	}
}

// Ordinary splits text without recognizing special tokens.
func (p *PreTokenizer) Ordinary(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for piece := range p.splitter.Split(text) {
			if !yield(Chunk{Text: piece}) {
				return
			}
		}
	}
}

// scan finds special literals in one text. Each literal remembers its next
// occurrence, so a literal is searched again only once the cursor passes it
// and a literal that no longer occurs is never searched again. Every literal
// thus walks the text once.
type scan struct {
	text     string
	specials []special
	offsets  []int // absolute offset, or notSearched / noMatch
}

const (
	notSearched = -2
	noMatch     = -1
)

func (p *PreTokenizer) newScan(text string) *scan {
	s := &scan{text: text, specials: p.specials, offsets: make([]int, len(p.specials))}
	for i := range s.offsets {
		s.offsets[i] = notSearched
	}
	return s
}

// next returns the earliest special literal at or after pos; among literals
// starting at the same offset the longest wins.
func (s *scan) next(pos int) (int, special, bool) {
	best, match := -1, special{}
	for i, sp := range s.specials {
		at := s.offsets[i]
		if at == noMatch {
			continue
		}
		if at < pos {
			at = noMatch
			if j := strings.Index(s.text[pos:], sp.literal); j >= 0 {
				at = pos + j
			}
			s.offsets[i] = at
			if at == noMatch {
				continue
			}
		}
		// Specials are ordered longest first, so a tie keeps the longer one.
		if best < 0 || at < best {
			best, match = at, sp
		}
	}
	return best, match, best >= 0
}
