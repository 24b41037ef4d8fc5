package suggest

import (
	"errors"
	"fmt"
	"strings"

	"querybar/internal/schema"
)

// ErrMalformedAction is returned by Decode for text that Encode could not
// have produced.
var ErrMalformedAction = errors.New("malformed suggestion action")

// Action is what selecting a suggestion asks the editor to do. It is one of
// SelectField, SelectWildcard, SelectCompleteValue, SelectValue or
// SelectPreset.
type Action interface {
	isAction()
}

// SelectField starts a new token for Field. Operator is empty for the
// field's default operator.
type SelectField struct {
	Field    string
	Operator schema.Operator
}

// SelectWildcard turns the token for Field into a wildcard.
type SelectWildcard struct {
	Field string
}

// SelectCompleteValue picks a value that exactly matches what was typed.
type SelectCompleteValue struct {
	Field   string
	Value   string
	Negated bool
}

// SelectValue toggles a value on the token for Field.
type SelectValue struct {
	Field   string
	Value   string
	Negated bool
}

// SelectPreset applies a duration preset such as "<5min".
type SelectPreset struct {
	Field string
	Value string
}

func (SelectField) isAction()         {}
func (SelectWildcard) isAction()      {}
func (SelectCompleteValue) isAction() {}
func (SelectValue) isAction()         {}
func (SelectPreset) isAction()        {}

const (
	tagField    = "__field__"
	tagWildcard = "__wildcard__"
	tagComplete = "__complete__"
	tagValue    = "__value__"
	tagPreset   = "__preset__"

	sep = "__"
)

// Escaping "_" keeps the "__" separator unambiguous inside payloads.
var (
	escaper   = strings.NewReplacer("%", "%25", "_", "%5F")
	unescaper = strings.NewReplacer("%25", "%", "%5F", "_")
)

// Encode renders a as an opaque string. Decode(Encode(a)) returns a.
func Encode(a Action) string {
	switch a := a.(type) {
	case SelectField:
		return tagField + join(a.Field, string(a.Operator))
	case SelectWildcard:
		return tagWildcard + join(a.Field)
	case SelectCompleteValue:
		return tagComplete + join(a.Field, a.Value, flag(a.Negated))
	case SelectValue:
		return tagValue + join(a.Field, a.Value, flag(a.Negated))
	case SelectPreset:
		return tagPreset + join(a.Field, a.Value)
	}
	return ""
}

// Decode parses a string produced by Encode.
func Decode(s string) (Action, error) {
	tag, payload, ok := cutTag(s)
	if !ok {
		return nil, fmt.Errorf("%w: unknown tag in %q", ErrMalformedAction, s)
	}
	parts := strings.Split(payload, sep)
	for i := range parts {
		parts[i] = unescaper.Replace(parts[i])
	}

	want := map[string]int{
		tagField:    2,
		tagWildcard: 1,
		tagComplete: 3,
		tagValue:    3,
		tagPreset:   2,
	}[tag]
	if len(parts) != want {
		return nil, fmt.Errorf("%w: %q has %d parts, want %d", ErrMalformedAction, s, len(parts), want)
	}
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: %q has no field", ErrMalformedAction, s)
	}

	switch tag {
	case tagField:
		op := schema.Operator(parts[1])
		if op != "" && !op.Valid() {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedAction, s, schema.ErrUnknownOperator)
		}
		return SelectField{Field: parts[0], Operator: op}, nil
	case tagWildcard:
		return SelectWildcard{Field: parts[0]}, nil
	case tagPreset:
		return SelectPreset{Field: parts[0], Value: parts[1]}, nil
	}

	negated, err := parseFlag(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedAction, s, err)
	}
	if tag == tagComplete {
		return SelectCompleteValue{Field: parts[0], Value: parts[1], Negated: negated}, nil
	}
	return SelectValue{Field: parts[0], Value: parts[1], Negated: negated}, nil
}

func cutTag(s string) (tag, payload string, ok bool) {
	for _, tag := range []string{tagField, tagWildcard, tagComplete, tagValue, tagPreset} {
		if rest, found := strings.CutPrefix(s, tag); found {
			return tag, rest, true
		}
	}
	return "", "", false
}

func join(parts ...string) string {
	for i := range parts {
		parts[i] = escaper.Replace(parts[i])
	}
	return strings.Join(parts, sep)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("negation flag %q", s)
}
