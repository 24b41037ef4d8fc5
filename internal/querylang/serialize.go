package querylang

import (
	"strings"
)

// ClauseSeparator joins serialized clauses.
const ClauseSeparator = " + "

// Serialize converts tokens back into canonical query text. Empty tokens are
// skipped; wildcard tokens render as "key:*".
func Serialize(tokens []Token) string {
	clauses := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if c := SerializeToken(t); c != "" {
			clauses = append(clauses, c)
		}
	}
	return strings.Join(clauses, ClauseSeparator)
}

// SerializeToken renders a single clause, or "" for an empty token.
func SerializeToken(t Token) string {
	if t.IsWildcard {
		return t.Key + ":" + Wildcard
	}
	if len(t.Values) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(t.Key)
	sb.WriteString(string(t.Operator))
	for i, v := range t.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		if v.Negated {
			sb.WriteByte('-')
		}
		sb.WriteString(QuoteValue(v.Value))
	}
	return sb.String()
}

// QuoteValue quotes v when it would not survive a parse as a bare word:
// separators, commas, quotes, backslashes, a leading negation marker, or the
// wildcard itself.
func QuoteValue(v string) string {
	if !needsQuote(v) {
		return v
	}
	var sb strings.Builder
	sb.Grow(len(v) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(v); i++ {
		ch := v[i]
		if ch == '"' || ch == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(ch)
	}
	sb.WriteByte('"')
	return sb.String()
}

func needsQuote(v string) bool {
	if v == Wildcard {
		return true
	}
	if v != "" && (v[0] == '-' || v[0] == '!') {
		return true
	}
	for i := 0; i < len(v); i++ {
		switch ch := v[i]; {
		case isSpace(ch), ch == '+', ch == ',', ch == '"', ch == '\\':
			return true
		}
	}
	return false
}
