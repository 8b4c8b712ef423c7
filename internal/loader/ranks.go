package loader

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/born-ml/bpe/internal/vocab"
)

// maxRankLine bounds one line of a rank file.
const maxRankLine = 1 << 20

// ParseRankFile reads a .tiktoken rank table: one "<base64 token> <rank>"
// pair per line. Blank lines are skipped.
func ParseRankFile(r io.Reader) (map[string]vocab.Rank, error) {
	ranks := make(map[string]vocab.Rank)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRankLine)

	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}

		tokenField, rankField, ok := bytes.Cut(text, []byte{' '})
		if !ok {
			return nil, rankFileError(line, "expected \"<token> <rank>\"")
		}

		token := make([]byte, base64.StdEncoding.DecodedLen(len(tokenField)))
		n, err := base64.StdEncoding.Decode(token, tokenField)
		if err != nil {
			return nil, rankFileError(line, "bad token: %v", err)
		}

		rank, err := strconv.ParseUint(string(rankField), 10, 32)
		if err != nil {
			return nil, rankFileError(line, "bad rank: %v", err)
		}

		ranks[string(token[:n])] = vocab.Rank(rank)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rank file: %w", err)
	}

	return ranks, nil
}

// fromBpe converts a rank table in the form tiktoken-go loaders return.
func fromBpe(m map[string]int) (map[string]vocab.Rank, error) {
	ranks := make(map[string]vocab.Rank, len(m))
	for token, rank := range m {
		if rank < 0 || uint64(rank) > math.MaxUint32 {
			return nil, &vocab.Error{
				Kind:    vocab.ErrVocabulary,
				Token:   []byte(token),
				Details: fmt.Sprintf("rank %d out of range", rank),
			}
		}
		ranks[token] = vocab.Rank(rank)
	}
	return ranks, nil
}

func rankFileError(line int, format string, args ...any) error {
	return &vocab.Error{
		Kind:    vocab.ErrVocabulary,
		Details: fmt.Sprintf("rank file line %d: ", line) + fmt.Sprintf(format, args...),
	}
}
