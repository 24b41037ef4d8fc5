package querylang

import (
	"slices"

	"querybar/internal/schema"
)

// Value is one filter value. Negated values exclude rather than include.
type Value struct {
	Value   string `json:"value"`
	Negated bool   `json:"isNegated"`
}

// Equal reports whether both the text and the negation match.
func (v Value) Equal(o Value) bool {
	return v.Value == o.Value && v.Negated == o.Negated
}

// Opposite returns v with the negation flipped.
func (v Value) Opposite() Value {
	return Value{Value: v.Value, Negated: !v.Negated}
}

// String renders the value with its negation marker, unquoted.
func (v Value) String() string {
	if v.Negated {
		return "-" + v.Value
	}
	return v.Value
}

// Token is one parsed filter clause: a field, an operator, and either a set
// of values or the wildcard.
//
// Values keep insertion order and never hold two equal entries. A wildcard
// token has no values.
type Token struct {
	ID         string          `json:"id"`
	Key        string          `json:"key"`
	Operator   schema.Operator `json:"operator"`
	Values     []Value         `json:"values"`
	IsBuilding bool            `json:"isBuilding,omitempty"`
	IsWildcard bool            `json:"isWildcard"`
}

// Index returns the position of v in the token's values, or -1.
func (t Token) Index(v Value) int {
	return slices.IndexFunc(t.Values, v.Equal)
}

// HasValue reports whether v (with the same negation) is present.
func (t Token) HasValue(v Value) bool {
	return t.Index(v) >= 0
}

// Empty reports whether the token carries nothing: no values, no wildcard.
func (t Token) Empty() bool {
	return !t.IsWildcard && len(t.Values) == 0
}

// Valid reports whether the token may stay in a committed query.
// Building tokens are always valid; committed ones must not be empty.
func (t Token) Valid() bool {
	return t.IsBuilding || !t.Empty()
}

// Texts returns the raw value strings in order.
func (t Token) Texts() []string {
	out := make([]string, len(t.Values))
	for i, v := range t.Values {
		out[i] = v.Value
	}
	return out
}

// Clone returns a deep copy.
func (t Token) Clone() Token {
	c := t
	if t.Values != nil {
		c.Values = slices.Clone(t.Values)
	}
	return c
}

// Equivalent compares field, operator, wildcard flag and value set,
// ignoring id, value order and the building flag.
func (t Token) Equivalent(o Token) bool {
	if t.Key != o.Key || t.Operator != o.Operator || t.IsWildcard != o.IsWildcard {
		return false
	}
	if len(t.Values) != len(o.Values) {
		return false
	}
	for _, v := range t.Values {
		if !o.HasValue(v) {
			return false
		}
	}
	return true
}

// Prune drops committed empty tokens.
func Prune(tokens []Token) []Token {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t.Valid() {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the index of the token with id, or -1.
func Find(tokens []Token, id string) int {
	return slices.IndexFunc(tokens, func(t Token) bool { return t.ID == id })
}
