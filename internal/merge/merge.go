// Package merge implements the byte pair merge loop for a single chunk.
//
// The working state is an arena of pieces indexed by the byte offset each
// piece started at, linked to their neighbours by index. Candidate pairs sit
// in a min-heap keyed by (rank, offset); each candidate remembers the
// version of both pieces it was scored against, so a merge never has to
// remove anything from the heap: outdated candidates are recognised and
// dropped when they surface. Every merge scores only the two pairs it
// creates, which keeps a chunk of n bytes at O(n log n) no matter how many
// pairs share a rank.
package merge

import (
	"cmp"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"

	"github.com/born-ml/bpe/internal/vocab"
)

// Ranker is the read-only view of a vocabulary the merge loop needs.
type Ranker interface {
	Rank(b []byte) (vocab.Rank, bool)
	MaxTokenLen() int
}

// piece is a run of input bytes currently treated as one symbol.
type piece struct {
	start, end int
	prev, next int // arena indexes, -1 at the edges
	version    uint32
}

// candidate is a scored adjacent pair.
type candidate struct {
	rank         vocab.Rank
	left, right  int
	leftVersion  uint32
	rightVersion uint32
}

func compareCandidates(a, b candidate) int {
	if c := cmp.Compare(a.rank, b.rank); c != 0 {
		return c
	}
	return cmp.Compare(a.left, b.left)
}

// Encode merges b down to token ids. Every single byte of b must have a rank.
func Encode(r Ranker, b []byte) []vocab.Rank {
	return AppendEncode(nil, r, b)
}

// AppendEncode is Encode appending to dst.
func AppendEncode(dst []vocab.Rank, r Ranker, b []byte) []vocab.Rank {
	switch len(b) {
	case 0:
		return dst
	case 1:
		id, _ := r.Rank(b)
		return append(dst, id)
	}

	s := newState(r, b)
	s.run()
	return s.appendIDs(dst)
}

type state struct {
	ranker Ranker
	input  []byte
	maxLen int

	pieces []piece
	queue  *heap.Heap[candidate]
}

func newState(r Ranker, b []byte) *state {
	s := &state{
		ranker: r,
		input:  b,
		maxLen: r.MaxTokenLen(),
		pieces: make([]piece, len(b)),
		queue:  heap.NewWith(compareCandidates),
	}

	for i := range s.pieces {
		s.pieces[i] = piece{start: i, end: i + 1, prev: i - 1, next: i + 1}
	}
	s.pieces[len(b)-1].next = -1

	return s
}

// score pushes the pair (left, right) if its concatenation is a token.
func (s *state) score(left, right int) {
	l, r := &s.pieces[left], &s.pieces[right]
	if r.end-l.start > s.maxLen {
		return
	}

	rank, ok := s.ranker.Rank(s.input[l.start:r.end])
	if !ok {
		return
	}

	s.queue.Push(candidate{
		rank:         rank,
		left:         left,
		right:        right,
		leftVersion:  l.version,
		rightVersion: r.version,
	})
}

func (s *state) run() {
	for i := range len(s.pieces) - 1 {
		s.score(i, i+1)
	}

	for !s.queue.Empty() {
		c, _ := s.queue.Pop()

		left, right := &s.pieces[c.left], &s.pieces[c.right]
		if left.version != c.leftVersion || right.version != c.rightVersion {
			continue
		}

		left.end = right.end
		left.next = right.next
		left.version++
		right.version++

		if left.next >= 0 {
			s.pieces[left.next].prev = c.left
		}
		if left.prev >= 0 {
			s.score(left.prev, c.left)
		}
		if left.next >= 0 {
			s.score(c.left, left.next)
		}
	}
}

func (s *state) appendIDs(dst []vocab.Rank) []vocab.Rank {
	for i := 0; i >= 0; i = s.pieces[i].next {
		p := s.pieces[i]
		// Every surviving piece is either a single byte or the product of a
		// merge that was looked up, so the lookup cannot miss.
		id, _ := s.ranker.Rank(s.input[p.start:p.end])
		dst = append(dst, id)
	}
	return dst
}
