package vocab

import (
	"errors"
	"fmt"
)

// Error categories. Every *Error matches exactly one of these via errors.Is.
var (
	ErrVocabulary     = errors.New("invalid vocabulary")
	ErrUnknownToken   = errors.New("unknown token")
	ErrUnknownTokenID = errors.New("unknown token id")
)

// Error provides detailed information about a vocabulary failure.
type Error struct {
	Kind    error  // One of ErrVocabulary, ErrUnknownToken, ErrUnknownTokenID
	Token   []byte // Token bytes involved, if any
	ID      Rank   // Token id involved, if HasID
	HasID   bool
	Details string // Additional details
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.HasID && e.Details != "":
		return fmt.Sprintf("%v: id %d: %s", e.Kind, e.ID, e.Details)
	case e.HasID:
		return fmt.Sprintf("%v: id %d", e.Kind, e.ID)
	case e.Token != nil && e.Details != "":
		return fmt.Sprintf("%v: %q: %s", e.Kind, e.Token, e.Details)
	case e.Token != nil:
		return fmt.Sprintf("%v: %q", e.Kind, e.Token)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Details)
	}
}

// Unwrap exposes the error category to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrVocabulary, Details: fmt.Sprintf(format, args...)}
}

func unknownID(id Rank) error {
	return &Error{Kind: ErrUnknownTokenID, ID: id, HasID: true}
}

func unknownToken(b []byte) error {
	return &Error{Kind: ErrUnknownToken, Token: append([]byte{}, b...)}
}
