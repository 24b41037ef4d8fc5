package querylang

import (
	"querybar/internal/schema"
)

// SpanRole identifies a syntax highlighting role.
type SpanRole string

const (
	RoleKey        SpanRole = "key"
	RoleOperator   SpanRole = "operator"
	RoleCompareOp  SpanRole = "compare-op"
	RoleValue      SpanRole = "value"
	RoleQuoted     SpanRole = "quoted"
	RoleNegation   SpanRole = "negation"
	RoleStar       SpanRole = "star"
	RoleComma      SpanRole = "comma"
	RoleSeparator  SpanRole = "separator"
	RoleText       SpanRole = "text"
	RoleWhitespace SpanRole = "whitespace"
	RoleError      SpanRole = "error"
)

// Span is a highlighted text span.
type Span struct {
	Text string   `json:"text"`
	Role SpanRole `json:"role"`
}

// Highlight splits query text into spans for display. Concatenating the
// span texts gives back input exactly. A clause that fails syntax
// validation against s is one error span.
func Highlight(s *schema.Schema, input string) []Span {
	var spans []Span
	pos := 0
	for pos < len(input) {
		ch := input[pos]
		switch {
		case isSpace(ch):
			end := pos
			for end < len(input) && isSpace(input[end]) {
				end++
			}
			spans = append(spans, Span{input[pos:end], RoleWhitespace})
			pos = end
		case ch == '+':
			spans = append(spans, Span{"+", RoleSeparator})
			pos++
		default:
			end := clauseEnd(input, pos)
			spans = append(spans, clauseSpans(s, input[pos:end])...)
			pos = end
		}
	}
	return spans
}

// clauseEnd returns the index of the first unquoted separator at or after
// start, or len(input).
func clauseEnd(input string, start int) int {
	inQuote, escaped := false, false
	for i := start; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case inQuote && ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = !inQuote
		case !inQuote && (isSpace(ch) || ch == '+'):
			return i
		}
	}
	return len(input)
}

func clauseSpans(s *schema.Schema, clause string) []Span {
	if err := validateClause(s, clause); err != nil {
		return []Span{{clause, RoleError}}
	}
	key, op, rest, ok := SplitClause(clause)
	if !ok {
		return []Span{{clause, RoleText}}
	}

	opRole := RoleOperator
	if op.IsComparison() {
		opRole = RoleCompareOp
	}
	spans := []Span{{key, RoleKey}, {string(op), opRole}}
	if rest == Wildcard {
		return append(spans, Span{rest, RoleStar})
	}
	for i, piece := range splitValues(rest) {
		if i > 0 {
			spans = append(spans, Span{",", RoleComma})
		}
		spans = append(spans, valueSpans(piece)...)
	}
	return spans
}

func valueSpans(piece string) []Span {
	var spans []Span
	text, negated := splitNegation(piece)
	if negated {
		spans = append(spans, Span{piece[:1], RoleNegation})
	}
	switch {
	case text == "":
	case text[0] == '"':
		spans = append(spans, Span{text, RoleQuoted})
	default:
		spans = append(spans, Span{text, RoleValue})
	}
	return spans
}

// HasError reports whether any span is an error.
func HasError(spans []Span) bool {
	for _, sp := range spans {
		if sp.Role == RoleError {
			return true
		}
	}
	return false
}
