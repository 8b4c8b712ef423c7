package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/bpe/internal/tokenizer"
)

func newEncodeCmd(a *app) *cobra.Command {
	var ordinary, count bool

	cmd := &cobra.Command{
		Use:   "encode <encoding|model|path> [text]",
		Short: "Encode text to token ids",
		Long:  "Encode text to token ids. Without a text argument, standard input is encoded.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := a.loader().Auto(args[0])
			if err != nil {
				return err
			}

			var text string
			if len(args) == 2 {
				text = args[1]
			} else {
				in, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				text = string(in)
			}

			var ids []tokenizer.Rank
			if ordinary {
				ids = enc.EncodeOrdinary(text)
			} else {
				ids = enc.Encode(text)
			}

			if count {
				fmt.Fprintln(cmd.OutOrStdout(), len(ids))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatIDs(ids))
			return nil
		},
	}

	cmd.Flags().BoolVar(&ordinary, "ordinary", false, "treat special token literals as plain text")
	cmd.Flags().BoolVar(&count, "count", false, "print only the number of tokens")
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <encoding|model|path> <id>...",
		Short: "Decode token ids to text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			enc, err := a.loader().Auto(args[0])
			if err != nil {
				return err
			}

			text, err := enc.DecodeString(ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func formatIDs(ids []tokenizer.Rank) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, " ")
}

// parseIDs accepts ids as separate arguments, comma separated, or both.
func parseIDs(args []string) ([]tokenizer.Rank, error) {
	var ids []tokenizer.Rank
	for _, arg := range args {
		for field := range strings.FieldsFuncSeq(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			id, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid token id %q", field)
			}
			ids = append(ids, tokenizer.Rank(id))
		}
	}
	return ids, nil
}
