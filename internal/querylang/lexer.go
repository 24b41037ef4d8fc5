package querylang

import (
	"strings"

	"querybar/internal/schema"
)

// Query text is a list of clauses separated by whitespace or "+":
//
//	query  = clause { ( ws | [ws] "+" [ws] ) clause }
//	clause = word operator rest
//	rest   = "*" | value { "," value }
//	value  = [ "-" | "!" ] ( bare | '"' escaped '"' )
//
// Separators inside double quotes do not split. Backslash escapes the next
// character inside quotes.

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isWordChar(ch byte) bool {
	return ch == '_' || ch == '.' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

// splitOutsideQuotes splits s at every byte for which sep returns true,
// ignoring bytes inside double quotes. Empty pieces are kept.
func splitOutsideQuotes(s string, sep func(byte) bool) []string {
	var parts []string
	inQuote := false
	escaped := false
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inQuote {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inQuote = false
			}
			continue
		}
		if ch == '"' {
			inQuote = true
			continue
		}
		if sep(ch) {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// SplitClauses breaks query text into clause strings. Empty clauses are dropped.
func SplitClauses(text string) []string {
	raw := splitOutsideQuotes(text, func(ch byte) bool { return isSpace(ch) || ch == '+' })
	out := raw[:0]
	for _, c := range raw {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitValues breaks the value part of a clause at unquoted commas.
func splitValues(rest string) []string {
	return splitOutsideQuotes(rest, func(ch byte) bool { return ch == ',' })
}

// SplitClause matches "<word><operator><rest>". The operator is the longest
// symbol from the alphabet found right after the word.
func SplitClause(clause string) (key string, op schema.Operator, rest string, ok bool) {
	i := 0
	for i < len(clause) && isWordChar(clause[i]) {
		i++
	}
	if i == 0 {
		return "", "", "", false
	}
	for _, candidate := range schema.Operators {
		if strings.HasPrefix(clause[i:], string(candidate)) {
			return clause[:i], candidate, clause[i+len(candidate):], true
		}
	}
	return "", "", "", false
}

// unquote strips one level of surrounding double quotes and resolves
// backslash escapes. An unterminated quote keeps everything after it.
func unquote(s string) string {
	if len(s) == 0 || s[0] != '"' {
		return s
	}
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' && i+1 < len(s) {
			i++
			sb.WriteByte(s[i])
			continue
		}
		if ch == '"' {
			return sb.String()
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// outsideQuotes returns s with quoted sections removed, for character checks.
func outsideQuotes(s string) string {
	var sb strings.Builder
	inQuote := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inQuote && ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = !inQuote
		case !inQuote:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// splitNegation strips a leading "-" or "!" negation marker.
func splitNegation(s string) (string, bool) {
	if len(s) > 0 && (s[0] == '-' || s[0] == '!') {
		return s[1:], true
	}
	return s, false
}

// SplitFragment splits a value list that is still being typed into the
// finished part before the last unquoted comma and the trailing fragment.
// The fragment comes back without its negation marker or quotes.
func SplitFragment(rest string) (done, fragment string, negated bool) {
	pieces := splitValues(rest)
	last := pieces[len(pieces)-1]
	done = strings.Join(pieces[:len(pieces)-1], ",")
	text, negated := splitNegation(strings.TrimSpace(last))
	return done, unquote(text), negated
}
