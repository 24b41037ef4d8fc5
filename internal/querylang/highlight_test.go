package querylang

import (
	"slices"
	"strings"
	"testing"

	"querybar/internal/schema"
)

func spanTexts(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func spanRoles(spans []Span) []string {
	roles := make([]string, len(spans))
	for i, s := range spans {
		roles[i] = string(s.Role)
	}
	return roles
}

func TestHighlight_Roundtrip(t *testing.T) {
	inputs := []string{
		"",
		"failed",
		"status:failed",
		"status:-failed,running + duration>5min",
		`branch:"feature/a b",-main`,
		"duration:>5min,<10min",
		"branch:*",
		"  status:success  +  attempt>=2 ",
		"stauts:failed",
		`workflow:"unterminated`,
		"status:",
	}
	s := schema.Default()
	for _, input := range inputs {
		got := spanTexts(Highlight(s, input))
		if got != input {
			t.Errorf("roundtrip failed for %q:\n  got:  %q\n  want: %q", input, got, input)
		}
	}
}

func TestHighlight_Roles(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"status:failed", []string{"key", "operator", "value"}},
		{"status:-failed,running", []string{"key", "operator", "negation", "value", "comma", "value"}},
		{"duration>5min", []string{"key", "compare-op", "value"}},
		{"branch:*", []string{"key", "operator", "star"}},
		{`branch:"a b"`, []string{"key", "operator", "quoted"}},
		{"status:failed + branch:main", []string{"key", "operator", "value", "whitespace", "separator", "whitespace", "key", "operator", "value"}},
		{"failed", []string{"text"}},
		{"stauts:failed", []string{"error"}},
		{"duration>soon", []string{"error"}},
		{"attempt>two", []string{"error"}},
	}
	s := schema.Default()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := spanRoles(Highlight(s, tt.input))
			if !slices.Equal(got, tt.want) {
				t.Errorf("roles: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHighlight_QuotedSeparators(t *testing.T) {
	spans := Highlight(schema.Default(), `branch:"a + b" + status:failed`)
	if spans[2].Text != `"a + b"` || spans[2].Role != RoleQuoted {
		t.Errorf("quoted value split: %+v", spans)
	}
}

func TestHasError(t *testing.T) {
	s := schema.Default()
	if HasError(Highlight(s, "status:failed")) {
		t.Error("valid query reported as error")
	}
	if !HasError(Highlight(s, "status:failed bogus:x")) {
		t.Error("unknown field not reported")
	}
}
