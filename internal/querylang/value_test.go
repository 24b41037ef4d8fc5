package querylang

import (
	"errors"
	"testing"

	"querybar/internal/schema"
)

func rule(t *testing.T, name string) *schema.FieldRule {
	t.Helper()
	r, ok := schema.Default().Lookup(name)
	if !ok {
		t.Fatalf("no rule %q", name)
	}
	return r
}

func TestValidateAddValue(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		existing    []Value
		add         Value
		wantKind    ValueKind
		conflicting *Value
	}{
		{
			name:  "accept first",
			field: "status",
			add:   Value{Value: "success"},
		},
		{
			name:        "duplicate",
			field:       "status",
			existing:    vals("success", false),
			add:         Value{Value: "success"},
			wantKind:    Duplicate,
			conflicting: &Value{Value: "success"},
		},
		{
			name:        "contradiction with negated",
			field:       "status",
			existing:    vals("failed", true),
			add:         Value{Value: "failed"},
			wantKind:    Contradiction,
			conflicting: &Value{Value: "failed", Negated: true},
		},
		{
			name:     "negation not allowed",
			field:    "duration",
			add:      Value{Value: "<5min", Negated: true},
			wantKind: Contradiction,
		},
		{
			name:        "single select",
			field:       "environment",
			existing:    vals("production", false),
			add:         Value{Value: "staging"},
			wantKind:    SingleSelect,
			conflicting: &Value{Value: "production"},
		},
		{
			name:     "single select allows negated",
			field:    "environment",
			existing: vals("production", false),
			add:      Value{Value: "staging", Negated: true},
		},
		{
			name:     "single select first positive after negated",
			field:    "environment",
			existing: vals("staging", true),
			add:      Value{Value: "production"},
		},
		{
			name:        "negation checked before duplicate",
			field:       "author",
			existing:    vals("octocat", true),
			add:         Value{Value: "octocat", Negated: true},
			wantKind:    Contradiction,
			conflicting: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.existing)
			err := ValidateAddValue(tt.existing, tt.add, rule(t, tt.field))
			if len(tt.existing) != before {
				t.Fatal("validator must not mutate existing values")
			}
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValueError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValueError, got %v", err)
			}
			if ve.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ve.Kind, tt.wantKind)
			}
			switch {
			case tt.conflicting == nil && ve.Conflicting != nil:
				t.Errorf("unexpected conflicting %+v", ve.Conflicting)
			case tt.conflicting != nil && (ve.Conflicting == nil || *ve.Conflicting != *tt.conflicting):
				t.Errorf("conflicting = %+v, want %+v", ve.Conflicting, tt.conflicting)
			}
		})
	}
}

func TestValueErrorSentinels(t *testing.T) {
	r := rule(t, "status")
	err := ValidateAddValue(vals("success", false), Value{Value: "success"}, r)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	err = ValidateAddValue(vals("success", true), Value{Value: "success"}, r)
	if !errors.Is(err, ErrContradiction) {
		t.Errorf("expected ErrContradiction, got %v", err)
	}
	err = ValidateAddValue(vals("staging", false), Value{Value: "production"}, rule(t, "environment"))
	if !errors.Is(err, ErrSingleSelect) {
		t.Errorf("expected ErrSingleSelect, got %v", err)
	}
}

func TestApplyToggle(t *testing.T) {
	r := rule(t, "status")
	tok := Token{Key: "status", Operator: ":"}

	tok, ch, err := Apply(tok, Value{Value: "success"}, r, Toggle)
	if err != nil || ch.Outcome != Added || len(tok.Values) != 1 {
		t.Fatalf("first toggle: %+v %+v %v", tok, ch, err)
	}
	tok, ch, err = Apply(tok, Value{Value: "success"}, r, Toggle)
	if err != nil || ch.Outcome != Removed || len(tok.Values) != 0 {
		t.Fatalf("second toggle should remove: %+v %+v %v", tok, ch, err)
	}
}

func TestApplyAddRejectsDuplicate(t *testing.T) {
	r := rule(t, "status")
	tok := Token{Key: "status", Operator: ":", Values: vals("success", false)}

	got, _, err := Apply(tok, Value{Value: "success"}, r, Add)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if len(got.Values) != 1 {
		t.Errorf("values length changed: %+v", got.Values)
	}
}

func TestApplyReplacesContradiction(t *testing.T) {
	r := rule(t, "status")
	tok := Token{Key: "status", Operator: ":", Values: vals("running", false, "failed", true)}

	got, ch, err := Apply(tok, Value{Value: "failed"}, r, Toggle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Outcome != Replaced || ch.Conflict == nil || ch.Conflict.Kind != Contradiction {
		t.Fatalf("change = %+v", ch)
	}
	want := vals("running", false, "failed", false)
	if len(got.Values) != 2 || got.Values[0] != want[0] || got.Values[1] != want[1] {
		t.Errorf("values = %+v, want %+v", got.Values, want)
	}
	if tok.Values[1] != (Value{Value: "failed", Negated: true}) {
		t.Error("input token must not be mutated")
	}
}

func TestApplyRejectsSingleSelect(t *testing.T) {
	r := rule(t, "environment")
	tok := Token{Key: "environment", Operator: ":", Values: vals("production", false)}
	if _, _, err := Apply(tok, Value{Value: "staging"}, r, Toggle); !errors.Is(err, ErrSingleSelect) {
		t.Errorf("expected single_select, got %v", err)
	}
}

func TestApplyDurationReplacesSameSide(t *testing.T) {
	r := rule(t, "duration")
	tok := Token{Key: "duration", Operator: ":", Values: vals(">5min", false, "<30min", false)}

	got, ch, err := Apply(tok, Value{Value: ">10min"}, r, Toggle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Outcome != Replaced || len(ch.Dropped) != 1 || ch.Dropped[0].Value != ">5min" {
		t.Errorf("change = %+v", ch)
	}
	if len(got.Values) != 2 || got.Values[0].Value != "<30min" || got.Values[1].Value != ">10min" {
		t.Errorf("values = %+v", got.Values)
	}

	got, _, err = Apply(got, Value{Value: "<=1h"}, r, Toggle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Values) != 2 || got.Values[0].Value != ">10min" || got.Values[1].Value != "<=1h" {
		t.Errorf("values = %+v", got.Values)
	}
}

func TestApplyDurationOperatorFormNormalised(t *testing.T) {
	r := rule(t, "duration")
	tok := Token{Key: "duration", Operator: ">", Values: vals("5min", false)}

	got, _, err := Apply(tok, Value{Value: "<10min"}, r, Add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Operator != schema.OpContains {
		t.Errorf("operator = %q, want :", got.Operator)
	}
	if s := SerializeToken(got); s != "duration:>5min,<10min" {
		t.Errorf("serialized = %q", s)
	}
}

func TestApplyRejectsWildcard(t *testing.T) {
	r := rule(t, "repository")
	tok := Token{Key: "repository", Operator: ":", IsWildcard: true}
	for _, mode := range []Mode{Add, Toggle} {
		got, _, err := Apply(tok, Value{Value: "core"}, r, mode)
		if !errors.Is(err, ErrWildcardToken) {
			t.Fatalf("mode %v: err = %v, want ErrWildcardToken", mode, err)
		}
		if !got.IsWildcard || len(got.Values) != 0 {
			t.Errorf("mode %v: token changed: %+v", mode, got)
		}
	}
}

func TestToWildcardClearsValues(t *testing.T) {
	tok := Token{Key: "status", Operator: "!=", Values: vals("success", false, "failed", true)}
	got := ToWildcard(tok)
	if !got.IsWildcard || len(got.Values) != 0 {
		t.Errorf("got %+v", got)
	}
	if len(tok.Values) != 2 {
		t.Error("input token must not be mutated")
	}
}

func TestApplySingleChoiceReplaces(t *testing.T) {
	s := schema.MustNew(schema.FieldRule{
		Name:      "region",
		Operators: []schema.Operator{schema.OpContains},
		ValueType: schema.Enum,
		EnumValues: []string{
			"eu", "us",
		},
	})
	r, _ := s.Lookup("region")
	tok := Token{Key: "region", Operator: ":", Values: vals("eu", false)}
	got, ch, err := Apply(tok, Value{Value: "us"}, r, Toggle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Outcome != Replaced || len(got.Values) != 1 || got.Values[0].Value != "us" {
		t.Errorf("got %+v %+v", got, ch)
	}
}
