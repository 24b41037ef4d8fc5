package querylang

import (
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"querybar/internal/duration"
	"querybar/internal/schema"
)

// blocked lists characters that never belong in a value outside quotes.
const blocked = "()[]{}<>;|&^$~\\`"

// maxSuggestDistance bounds the edit distance for "did you mean" hints.
const maxSuggestDistance = 2

// ValidateSyntax checks in-progress input and returns the first problem, or
// nil. It does not modify anything and accepts partial input: free text
// without a field prefix is allowed.
//
// Unlike Parse, which silently drops clauses with an unknown field,
// ValidateSyntax reports them as unknown_field.
func ValidateSyntax(s *schema.Schema, input string) *SyntaxError {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	for _, clause := range SplitClauses(input) {
		if err := validateClause(s, clause); err != nil {
			return err
		}
	}
	return nil
}

func validateClause(s *schema.Schema, clause string) *SyntaxError {
	key, op, rest, ok := SplitClause(clause)
	if !ok {
		// Bare value fragment.
		if _, ok := duration.ParseComparisons(clause); ok {
			return nil
		}
		if hasBlocked(clause) {
			return newSyntaxError(InvalidFormat, "", "%q contains characters that are not allowed", clause)
		}
		return nil
	}

	rule, ok := s.Lookup(key)
	if !ok {
		err := newSyntaxError(UnknownField, key, "unknown field %q", key)
		if near := NearestField(s, key); near != "" {
			err.Suggestion = "did you mean " + near + "?"
		}
		return err
	}

	if rest == Wildcard && op == schema.OpContains {
		return nil
	}
	if !rule.AllowsOperator(op) {
		return newSyntaxError(InvalidOperator, rule.Name,
			"operator %q is not valid for %s; use one of: %s", op, rule.Name, rule.OperatorList())
	}

	switch rule.ValueType {
	case schema.Range:
		return validateRange(rule, op, rest)
	case schema.Number:
		if err := validateNumbers(rule, rest); err != nil {
			return err
		}
	}

	if hasBlocked(rest) {
		return newSyntaxError(InvalidFormat, rule.Name, "value for %s contains characters that are not allowed", rule.Name)
	}
	return nil
}

// validateRange checks duration values. With a comparison operator each value
// is a plain literal ("duration>5min"); with ":" each value is a comparison
// or a literal ("duration:>5min,<10min").
func validateRange(rule *schema.FieldRule, op schema.Operator, rest string) *SyntaxError {
	for _, piece := range splitValues(rest) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if op.IsComparison() {
			if _, ok := duration.Parse(piece); !ok {
				return newSyntaxError(InvalidFormat, rule.Name, "%q is not a duration (try 30s, 5min, 2h)", piece)
			}
			continue
		}
		if _, ok := duration.ParseComparison(piece); ok {
			continue
		}
		if _, ok := duration.Parse(piece); ok {
			continue
		}
		return newSyntaxError(InvalidFormat, rule.Name, "%q is not a duration comparison (try <30s, >5min)", piece)
	}
	return nil
}

func validateNumbers(rule *schema.FieldRule, rest string) *SyntaxError {
	for _, piece := range splitValues(rest) {
		text, _ := splitNegation(strings.TrimSpace(piece))
		text = unquote(text)
		if text == "" {
			continue
		}
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return newSyntaxError(InvalidFormat, rule.Name, "%q is not a number", text)
		}
	}
	return nil
}

func hasBlocked(s string) bool {
	return strings.ContainsAny(outsideQuotes(s), blocked)
}

// NearestField returns the field whose name or label is closest to key,
// within maxSuggestDistance edits.
func NearestField(s *schema.Schema, key string) string {
	key = strings.ToLower(key)
	best, bestDist := "", maxSuggestDistance+1
	for _, r := range s.Rules() {
		for _, candidate := range []string{r.Name, r.Label} {
			d := levenshtein.ComputeDistance(key, strings.ToLower(candidate))
			if d < bestDist {
				best, bestDist = r.Name, d
			}
		}
	}
	return best
}
