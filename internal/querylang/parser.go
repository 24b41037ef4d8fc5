package querylang

import (
	"strings"

	"querybar/internal/schema"
)

// Wildcard is the value text meaning "any value of this field".
const Wildcard = "*"

// ParseResult is the outcome of a best-effort parse.
type ParseResult struct {
	Tokens  []Token
	Dropped []string // clauses that produced no token
}

// Parse converts query text into tokens. Parsing never fails: clauses with an
// unknown field, no operator, or no usable value are silently dropped.
func Parse(s *schema.Schema, ids IDGenerator, text string) []Token {
	return ParseDetailed(s, ids, text).Tokens
}

// ParseDetailed is Parse that also reports which clauses were dropped.
func ParseDetailed(s *schema.Schema, ids IDGenerator, text string) ParseResult {
	var res ParseResult
	for _, clause := range SplitClauses(text) {
		tok, ok := parseClause(s, ids, clause)
		if !ok {
			res.Dropped = append(res.Dropped, clause)
			continue
		}
		res.Tokens = append(res.Tokens, tok)
	}
	return res
}

func parseClause(s *schema.Schema, ids IDGenerator, clause string) (Token, bool) {
	key, op, rest, ok := SplitClause(clause)
	if !ok {
		return Token{}, false
	}
	rule, ok := s.Lookup(key)
	if !ok {
		return Token{}, false
	}

	if rest == Wildcard {
		return Token{
			ID:         ids.NextID(),
			Key:        rule.Name,
			Operator:   schema.OpContains,
			IsWildcard: true,
		}, true
	}

	values := ParseValues(rule, rest)
	if len(values) == 0 {
		return Token{}, false
	}
	return Token{
		ID:       ids.NextID(),
		Key:      rule.Name,
		Operator: op,
		Values:   values,
	}, true
}

// ParseValues reads a comma-separated value list for rule. Enum values are
// normalised to their canonical spelling; unknown literals are kept as
// typed. Empty entries and repeats are skipped.
func ParseValues(rule *schema.FieldRule, rest string) []Value {
	var out []Value
	for _, piece := range splitValues(rest) {
		v, ok := parseValue(rule, piece)
		if !ok {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func parseValue(rule *schema.FieldRule, piece string) (Value, bool) {
	text, negated := splitNegation(strings.TrimSpace(piece))
	text = unquote(text)
	if text == "" {
		return Value{}, false
	}
	if canonical, ok := rule.MatchEnum(text); ok {
		text = canonical
	}
	return Value{Value: text, Negated: negated}, true
}
