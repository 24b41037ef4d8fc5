package querylang

import (
	"errors"
	"slices"

	"querybar/internal/duration"
	"querybar/internal/schema"
)

// ValidateAddValue decides whether v may join existing for rule. It is pure;
// the caller applies the change. Checks run in order:
//
//  1. negation on a field that disallows it   -> contradiction
//  2. the same value with the same negation   -> duplicate
//  3. the same value with opposite negation   -> contradiction
//  4. a second positive value on a single-value field -> single_select
func ValidateAddValue(existing []Value, v Value, rule *schema.FieldRule) error {
	if v.Negated && !rule.AllowNegation {
		return newValueError(Contradiction, nil, "%s values cannot be negated", rule.Name)
	}
	for i := range existing {
		if existing[i].Equal(v) {
			c := existing[i]
			return newValueError(Duplicate, &c, "%s is already selected", v)
		}
	}
	for i := range existing {
		if existing[i].Equal(v.Opposite()) {
			c := existing[i]
			return newValueError(Contradiction, &c, "%s contradicts %s", v, c)
		}
	}
	if rule.IsSingleValue && !v.Negated {
		for i := range existing {
			if !existing[i].Negated {
				c := existing[i]
				return newValueError(SingleSelect, &c, "%s takes a single value; %s is already selected", rule.Name, c)
			}
		}
	}
	return nil
}

// Mode selects how Apply treats a value that is already present.
type Mode int

const (
	// Toggle removes a value that is already selected (suggestion clicks).
	Toggle Mode = iota
	// Add rejects a value that is already selected (typed literals).
	Add
)

// Outcome says what Apply did to the token.
type Outcome int

const (
	Unchanged Outcome = iota
	Added
	Removed
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Replaced:
		return "replaced"
	default:
		return "unchanged"
	}
}

// Change describes a successful Apply. Conflict is set when a contradicting
// value was swapped out rather than rejected.
type Change struct {
	Outcome  Outcome
	Conflict *ValueError
	Dropped  []Value // values displaced by the change
}

// preparer adjusts a token before validation, per value type.
type preparer func(t Token, v Value) (Token, []Value)

// preparers is the per-value-type policy table. Types without an entry use
// the plain validator path.
var preparers = map[schema.ValueType]preparer{
	schema.Range: prepareRange,
}

// Apply adds (or toggles) v on t according to rule and returns the new token.
// On error the returned token is t unchanged. Wildcard tokens reject every
// value.
//
// The policy is the same for every field type: optional per-type preparation,
// then ValidateAddValue, then contradiction resolution by replacement.
func Apply(t Token, v Value, rule *schema.FieldRule, mode Mode) (Token, Change, error) {
	if t.IsWildcard {
		return t, Change{}, newValueError(WildcardToken, nil,
			"%s already matches any value; remove it to pick specific values", rule.Name)
	}
	out := t.Clone()

	if mode == Toggle {
		if i := out.Index(v); i >= 0 {
			out.Values = slices.Delete(out.Values, i, i+1)
			return out, Change{Outcome: Removed, Dropped: []Value{v}}, nil
		}
	}

	var dropped []Value
	if prep, ok := preparers[rule.ValueType]; ok {
		out, dropped = prep(out, v)
	}

	err := ValidateAddValue(out.Values, v, rule)
	var ve *ValueError
	switch {
	case err == nil:
	case errors.As(err, &ve) && ve.Kind == Contradiction && ve.Conflicting != nil:
		i := out.Index(*ve.Conflicting)
		out.Values = slices.Delete(out.Values, i, i+1)
		dropped = append(dropped, *ve.Conflicting)
		out.Values = slices.Insert(out.Values, i, v)
		return out, Change{Outcome: Replaced, Conflict: ve, Dropped: dropped}, nil
	default:
		return t, Change{}, err
	}

	if !rule.AllowMultiSelect && !rule.IsSingleValue && len(out.Values) > 0 {
		dropped = append(dropped, out.Values...)
		out.Values = nil
	}
	out.Values = append(out.Values, v)

	if len(dropped) > 0 {
		return out, Change{Outcome: Replaced, Dropped: dropped}, nil
	}
	return out, Change{Outcome: Added}, nil
}

// Remove deletes v from t if present.
func Remove(t Token, v Value) Token {
	out := t.Clone()
	if i := out.Index(v); i >= 0 {
		out.Values = slices.Delete(out.Values, i, i+1)
	}
	return out
}

// ToWildcard turns t into a wildcard token, clearing its values.
func ToWildcard(t Token) Token {
	out := t.Clone()
	out.Values = nil
	out.IsWildcard = true
	out.Operator = schema.OpContains
	return out
}

// prepareRange keeps at most one comparison per side: a new ">" bound
// replaces any earlier ">" or ">=" bound, likewise for "<". Tokens written in
// operator form ("duration>5min") are rewritten to value form first so the
// bounds can coexist under ":".
func prepareRange(t Token, v Value) (Token, []Value) {
	c, ok := duration.ParseComparison(v.Value)
	if !ok {
		return t, nil
	}
	t = ValueForm(t)

	side := duration.Direction(c.Op)
	var dropped []Value
	kept := t.Values[:0]
	for _, existing := range t.Values {
		ec, ok := duration.ComparisonOf(t.Operator, existing.Value)
		if ok && duration.Direction(ec.Op) == side && !existing.Equal(v) {
			dropped = append(dropped, existing)
			continue
		}
		kept = append(kept, existing)
	}
	t.Values = kept
	return t, dropped
}

// ValueForm rewrites a token that carries its comparison in the operator
// ("duration>5min") into the ":" form that can hold both bounds
// ("duration:>5min"). Other tokens are returned as is.
func ValueForm(t Token) Token {
	if !t.Operator.IsComparison() {
		return t
	}
	out := t.Clone()
	for i, v := range out.Values {
		out.Values[i].Value = string(t.Operator) + v.Value
	}
	out.Operator = schema.OpContains
	return out
}
