package querylang

import (
	"testing"

	"querybar/internal/schema"
)

func parse(t *testing.T, text string) []Token {
	t.Helper()
	return Parse(schema.Default(), NewCounter(""), text)
}

func vals(pairs ...any) []Value {
	var out []Value
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Value{Value: pairs[i].(string), Negated: pairs[i+1].(bool)})
	}
	return out
}

func assertTokens(t *testing.T, got, want []Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equivalent(want[i]) {
			t.Errorf("token %d = %+v, want %+v", i, got[i], want[i])
		}
		for j := range want[i].Values {
			if got[i].Values[j] != want[i].Values[j] {
				t.Errorf("token %d value %d = %+v, want %+v", i, j, got[i].Values[j], want[i].Values[j])
			}
		}
	}
}

func TestParseScenarioStatusAndDuration(t *testing.T) {
	got := parse(t, "status:success,failed + duration>5min")
	assertTokens(t, got, []Token{
		{Key: "status", Operator: schema.OpContains, Values: vals("success", false, "failed", false)},
		{Key: "duration", Operator: schema.OpGreater, Values: vals("5min", false)},
	})
}

func TestParseWildcard(t *testing.T) {
	got := parse(t, "repository:*")
	if len(got) != 1 {
		t.Fatalf("expected 1 token, got %d", len(got))
	}
	tok := got[0]
	if tok.Key != "repository" || !tok.IsWildcard || len(tok.Values) != 0 {
		t.Errorf("unexpected wildcard token: %+v", tok)
	}
	if s := Serialize(got); s != "repository:*" {
		t.Errorf("Serialize = %q, want repository:*", s)
	}
}

func TestParseUnknownFieldDropped(t *testing.T) {
	res := ParseDetailed(schema.Default(), NewCounter(""), "bogusfield:foo status:failed")
	if len(res.Tokens) != 1 || res.Tokens[0].Key != "status" {
		t.Fatalf("expected only the status token, got %+v", res.Tokens)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "bogusfield:foo" {
		t.Errorf("Dropped = %v", res.Dropped)
	}
	if got := parse(t, "bogusfield:foo"); len(got) != 0 {
		t.Errorf("expected no tokens, got %+v", got)
	}
}

func TestParseClauses(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Token
	}{
		{
			name: "negation dash and bang",
			in:   "status:-failed,!cancelled",
			want: []Token{{Key: "status", Operator: ":", Values: vals("failed", true, "cancelled", true)}},
		},
		{
			name: "enum casing normalised",
			in:   "Status:SUCCESS",
			want: []Token{{Key: "status", Operator: ":", Values: vals("success", false)}},
		},
		{
			name: "label lookup",
			in:   "event:push",
			want: []Token{{Key: "trigger", Operator: ":", Values: vals("push", false)}},
		},
		{
			name: "literal kept as typed",
			in:   "branch:Feature/X",
			want: []Token{{Key: "branch", Operator: ":", Values: vals("Feature/X", false)}},
		},
		{
			name: "quoted value with separators",
			in:   `workflow:"build and test",deploy`,
			want: []Token{{Key: "workflow", Operator: ":", Values: vals("build and test", false, "deploy", false)}},
		},
		{
			name: "escaped quote",
			in:   `branch:"a\"b"`,
			want: []Token{{Key: "branch", Operator: ":", Values: vals(`a"b`, false)}},
		},
		{
			name: "plus without spaces",
			in:   "status:success+branch:main",
			want: []Token{
				{Key: "status", Operator: ":", Values: vals("success", false)},
				{Key: "branch", Operator: ":", Values: vals("main", false)},
			},
		},
		{
			name: "whitespace separated",
			in:   "  status:success   branch:main  ",
			want: []Token{
				{Key: "status", Operator: ":", Values: vals("success", false)},
				{Key: "branch", Operator: ":", Values: vals("main", false)},
			},
		},
		{
			name: "longest operator",
			in:   "attempt>=2 repository!=core",
			want: []Token{
				{Key: "attempt", Operator: ">=", Values: vals("2", false)},
				{Key: "repository", Operator: "!=", Values: vals("core", false)},
			},
		},
		{
			name: "empty value clause dropped",
			in:   "status: branch:,, status:- branch:main",
			want: []Token{{Key: "branch", Operator: ":", Values: vals("main", false)}},
		},
		{
			name: "repeated values collapsed",
			in:   "status:success,SUCCESS,-success",
			want: []Token{{Key: "status", Operator: ":", Values: vals("success", false, "success", true)}},
		},
		{
			name: "duration range in values",
			in:   "duration:>5min,<10min",
			want: []Token{{Key: "duration", Operator: ":", Values: vals(">5min", false, "<10min", false)}},
		},
		{
			name: "no operator dropped",
			in:   "hello status",
			want: nil,
		},
		{
			name: "quoted star is a value",
			in:   `branch:"*"`,
			want: []Token{{Key: "branch", Operator: ":", Values: vals("*", false)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, parse(t, tt.in), tt.want)
		})
	}
}

func TestParseAssignsUniqueIDs(t *testing.T) {
	got := parse(t, "status:success status:failed branch:main")
	seen := map[string]bool{}
	for _, tok := range got {
		if tok.ID == "" || seen[tok.ID] {
			t.Fatalf("duplicate or empty id in %+v", got)
		}
		seen[tok.ID] = true
	}
}

func TestSplitClause(t *testing.T) {
	tests := []struct {
		in     string
		key    string
		op     schema.Operator
		rest   string
		wantOK bool
	}{
		{"status:success", "status", ":", "success", true},
		{"duration>=5min", "duration", ">=", "5min", true},
		{"a!=b", "a", "!=", "b", true},
		{"a=", "a", "=", "", true},
		{":x", "", "", "", false},
		{"plain", "", "", "", false},
	}
	for _, tt := range tests {
		key, op, rest, ok := SplitClause(tt.in)
		if ok != tt.wantOK || key != tt.key || op != tt.op || rest != tt.rest {
			t.Errorf("SplitClause(%q) = %q %q %q %v", tt.in, key, op, rest, ok)
		}
	}
}
