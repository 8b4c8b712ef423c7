package pretokenize

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Splitter cuts ordinary text into chunks. The chunks concatenate to the
// input exactly.
type Splitter interface {
	Split(text string) iter.Seq[string]
}

// RuleSplitter is a hand-written classifier equivalent to Rules.Pattern.
// It works on the original bytes, so invalid UTF-8 is carried through
// unchanged (each bad byte classifies as punctuation).
type RuleSplitter struct {
	rules Rules
}

var _ Splitter = (*RuleSplitter)(nil)

// NewRuleSplitter returns a splitter for rules.
func NewRuleSplitter(rules Rules) *RuleSplitter {
	return &RuleSplitter{rules: rules}
}

// Rules returns the rules the splitter implements.
func (s *RuleSplitter) Rules() Rules {
	return s.rules
}

// Split implements Splitter.
func (s *RuleSplitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := 0; i < len(text); {
			end := s.next(text, i)
			if !yield(text[i:end]) {
				return
			}
			i = end
		}
	}
}

// next returns the end of the chunk starting at i. Alternatives are tried in
// the order the pattern lists them; the first that matches wins.
func (s *RuleSplitter) next(text string, i int) int {
	rs := &s.rules

	if rs.Contractions {
		if n := contraction(text, i, rs.FoldContractions); n > 0 {
			return i + n
		}
	}

	if rs.CaseSplit {
		if end, ok := s.casedWord(text, i, lowerTail); ok {
			return end
		}
		if end, ok := s.casedWord(text, i, upperHead); ok {
			return end
		}
	} else if end, ok := s.word(text, i); ok {
		return end
	}

	if end, ok := s.number(text, i); ok {
		return end
	}
	if end, ok := s.punct(text, i); ok {
		return end
	}
	if rs.NewlineRuns {
		if end, ok := newlineRun(text, i); ok {
			return end
		}
	}
	if end, ok := spaceRun(text, i); ok {
		return end
	}

	// Unreachable for any rule set above: every rune is a letter, number,
	// space or punctuation. Kept so the scan always advances.
	_, w := utf8.DecodeRuneInString(text[i:])
	return i + w
}

func (s *RuleSplitter) word(text string, i int) (int, bool) {
	if j, ok := s.prefix(text, i); ok && isLetterAt(text, j) {
		return runOf(text, j, unicode.IsLetter), true
	}
	if isLetterAt(text, i) {
		return runOf(text, i, unicode.IsLetter), true
	}
	return 0, false
}

// prefix reports where a letter run would start if text[i] is consumed as
// the optional leading character.
func (s *RuleSplitter) prefix(text string, i int) (int, bool) {
	r, w := utf8.DecodeRuneInString(text[i:])
	switch s.rules.WordPrefix {
	case PrefixSpace:
		return i + w, r == ' '
	case PrefixNonAlnum:
		return i + w, r != '\r' && r != '\n' && !unicode.IsLetter(r) && !unicode.IsNumber(r)
	default:
		return 0, false
	}
}

type casedShape int

const (
	// lowerTail is `[upper]*[lower]+`.
	lowerTail casedShape = iota
	// upperHead is `[upper]+[lower]*`.
	upperHead
)

func (s *RuleSplitter) casedWord(text string, i int, shape casedShape) (int, bool) {
	body := casedLowerTail
	if shape == upperHead {
		body = casedUpperHead
	}

	if j, ok := s.prefix(text, i); ok && j < len(text) {
		if end, ok := body(text, j); ok {
			return end + contractionSuffix(text, end, s.rules.FoldContractions), true
		}
	}
	if end, ok := body(text, i); ok {
		return end + contractionSuffix(text, end, s.rules.FoldContractions), true
	}
	return 0, false
}

func casedLowerTail(text string, p int) (int, bool) {
	q := runOf(text, p, isUpperClass)
	if r := runOf(text, q, isLowerClass); r > q {
		return r, true
	}

	// Give back upper-class runes until one that is also lower-class can
	// start the tail on its own.
	for k := q; k > p; {
		r, w := utf8.DecodeLastRuneInString(text[p:k])
		k -= w
		if isLowerClass(r) {
			return k + w, true
		}
	}
	return 0, false
}

func casedUpperHead(text string, p int) (int, bool) {
	q := runOf(text, p, isUpperClass)
	if q == p {
		return 0, false
	}
	return runOf(text, q, isLowerClass), true
}

func (s *RuleSplitter) number(text string, i int) (int, bool) {
	j := i
	if s.rules.DigitPrefixSpace && text[i] == ' ' && isNumberAt(text, i+1) {
		j = i + 1
	}
	if !isNumberAt(text, j) {
		return 0, false
	}

	n := 0
	for j < len(text) {
		r, w := utf8.DecodeRuneInString(text[j:])
		if !unicode.IsNumber(r) {
			break
		}
		j += w
		n++
		if s.rules.DigitRunMax > 0 && n == s.rules.DigitRunMax {
			break
		}
	}
	return j, true
}

func (s *RuleSplitter) punct(text string, i int) (int, bool) {
	j := i
	if text[i] == ' ' && isPunctAt(text, i+1) {
		j = i + 1
	}
	if !isPunctAt(text, j) {
		return 0, false
	}

	j = runOf(text, j, isPunct)
	if s.rules.PunctSuffix != "" {
		j = runOf(text, j, func(r rune) bool {
			return strings.ContainsRune(s.rules.PunctSuffix, r)
		})
	}
	return j, true
}

// newlineRun matches `\s*[\r\n]+`: the whitespace run up to and including
// its last line break.
func newlineRun(text string, i int) (int, bool) {
	end := -1
	for j := i; j < len(text); {
		r, w := utf8.DecodeRuneInString(text[j:])
		if !unicode.IsSpace(r) {
			break
		}
		j += w
		if r == '\r' || r == '\n' {
			end = j
		}
	}
	return end, end >= 0
}

// spaceRun matches `\s+(?!\S)|\s+`. A run followed by non-space text leaves
// its last rune behind so that rune can lead the next word.
func spaceRun(text string, i int) (int, bool) {
	j := runOf(text, i, unicode.IsSpace)
	if j == i {
		return 0, false
	}
	if j == len(text) {
		return j, true
	}
	_, w := utf8.DecodeLastRuneInString(text[i:j])
	if j-w > i {
		return j - w, true
	}
	return j, true
}

func contraction(text string, i int, fold bool) int {
	if text[i] != '\'' || i+1 >= len(text) {
		return 0
	}
	lower := func(c byte) byte {
		if fold && 'A' <= c && c <= 'Z' {
			return c + 'a' - 'A'
		}
		return c
	}

	switch lower(text[i+1]) {
	case 's', 't', 'm', 'd':
		return 2
	case 'r', 'v':
		if i+2 < len(text) && lower(text[i+2]) == 'e' {
			return 3
		}
	case 'l':
		if i+2 < len(text) && lower(text[i+2]) == 'l' {
			return 3
		}
	}
	return 0
}

func contractionSuffix(text string, i int, fold bool) int {
	if i >= len(text) {
		return 0
	}
	return contraction(text, i, fold)
}

func runOf(text string, i int, in func(rune) bool) int {
	for i < len(text) {
		r, w := utf8.DecodeRuneInString(text[i:])
		if !in(r) {
			break
		}
		i += w
	}
	return i
}

var (
	upperClass = []*unicode.RangeTable{unicode.Lu, unicode.Lt, unicode.Lm, unicode.Lo, unicode.M}
	lowerClass = []*unicode.RangeTable{unicode.Ll, unicode.Lm, unicode.Lo, unicode.M}
)

func isUpperClass(r rune) bool { return unicode.In(r, upperClass...) }
func isLowerClass(r rune) bool { return unicode.In(r, lowerClass...) }

func isPunct(r rune) bool {
	return !unicode.IsSpace(r) && !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

func isLetterAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsLetter(r)
}

func isNumberAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsNumber(r)
}

func isPunctAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isPunct(r)
}
