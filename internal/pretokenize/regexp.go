package pretokenize

import (
	"fmt"
	"iter"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// RegexpSplitter splits with an arbitrary pattern. Loaders use it for
// vocabularies whose pattern has no Rules equivalent; text between matches
// is emitted as chunks of its own so no byte is ever dropped.
type RegexpSplitter struct {
	re *regexp2.Regexp
}

var _ Splitter = (*RegexpSplitter)(nil)

// NewRegexpSplitter compiles pattern with .NET-compatible semantics, which
// supports the lookahead used by tiktoken-style patterns.
func NewRegexpSplitter(pattern string) (*RegexpSplitter, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile split pattern: %w", err)
	}
	return &RegexpSplitter{re: re}, nil
}

// Split implements Splitter.
func (s *RegexpSplitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		// regexp2 reports rune positions; offsets maps them back to bytes.
		runes := make([]rune, 0, len(text))
		offsets := make([]int, 0, len(text)+1)
		for i := 0; i < len(text); {
			r, w := utf8.DecodeRuneInString(text[i:])
			runes = append(runes, r)
			offsets = append(offsets, i)
			i += w
		}
		offsets = append(offsets, len(text))

		var pos int
		m, _ := s.re.FindRunesMatch(runes)
		for ; m != nil; m, _ = s.re.FindNextMatch(m) {
			if m.Length == 0 {
				continue
			}
			start, end := offsets[m.Index], offsets[m.Index+m.Length]
			if start > pos {
				if !yield(text[pos:start]) {
					return
				}
			}
			if !yield(text[start:end]) {
				return
			}
			pos = end
		}

		if pos < len(text) {
			yield(text[pos:])
		}
	}
}
