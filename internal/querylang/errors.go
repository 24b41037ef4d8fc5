package querylang

import (
	"errors"
	"fmt"
)

// Syntax errors, reported for unconfirmed input.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidFormat   = errors.New("invalid format")
)

// Value admission errors.
var (
	ErrDuplicate     = errors.New("duplicate value")
	ErrContradiction = errors.New("contradicting value")
	ErrSingleSelect  = errors.New("field takes a single value")
	ErrWildcardToken = errors.New("wildcard token takes no values")
)

// SyntaxKind classifies a SyntaxError.
type SyntaxKind string

const (
	UnknownField    SyntaxKind = "unknown_field"
	InvalidOperator SyntaxKind = "invalid_operator"
	InvalidFormat   SyntaxKind = "invalid_format"
)

// SyntaxError is an advisory problem with in-progress input. It never blocks
// typing or committing other clauses.
type SyntaxError struct {
	Kind       SyntaxKind `json:"type"`
	Message    string     `json:"message"`
	Field      string     `json:"field,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"` // e.g. "did you mean status?"
}

func (e *SyntaxError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Suggestion)
	}
	return e.Message
}

func (e *SyntaxError) Unwrap() error {
	switch e.Kind {
	case UnknownField:
		return ErrUnknownField
	case InvalidOperator:
		return ErrInvalidOperator
	default:
		return ErrInvalidFormat
	}
}

func newSyntaxError(kind SyntaxKind, field, msgFmt string, args ...any) *SyntaxError {
	return &SyntaxError{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(msgFmt, args...),
	}
}

// ValueKind classifies a ValueError.
type ValueKind string

const (
	Duplicate     ValueKind = "duplicate"
	Contradiction ValueKind = "contradiction"
	SingleSelect  ValueKind = "single_select"
	WildcardToken ValueKind = "wildcard"
)

// ValueError explains why a value may not be added to a token.
type ValueError struct {
	Kind        ValueKind
	Message     string
	Conflicting *Value // the existing entry that blocks the add, if any
}

func (e *ValueError) Error() string {
	return e.Message
}

func (e *ValueError) Unwrap() error {
	switch e.Kind {
	case Duplicate:
		return ErrDuplicate
	case Contradiction:
		return ErrContradiction
	case WildcardToken:
		return ErrWildcardToken
	default:
		return ErrSingleSelect
	}
}

func newValueError(kind ValueKind, conflicting *Value, msgFmt string, args ...any) *ValueError {
	return &ValueError{
		Kind:        kind,
		Message:     fmt.Sprintf(msgFmt, args...),
		Conflicting: conflicting,
	}
}
