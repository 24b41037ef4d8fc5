package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLookupCaseInsensitive(t *testing.T) {
	s := Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"name lower", "status", FieldStatus},
		{"name upper", "STATUS", FieldStatus},
		{"label", "Event", FieldTrigger},
		{"label lower", "actor", FieldAuthor},
		{"padded", "  branch ", FieldBranch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := s.Lookup(tt.in)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.in)
			}
			if r.Name != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.in, r.Name, tt.want)
			}
		})
	}

	if _, ok := s.Lookup("bogusfield"); ok {
		t.Error("expected bogusfield to be unknown")
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(
		FieldRule{Name: "a", Operators: []Operator{OpContains}, ValueType: Text},
		FieldRule{Name: "A", Operators: []Operator{OpContains}, ValueType: Text},
	)
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestNewValidatesRules(t *testing.T) {
	tests := []struct {
		name string
		rule FieldRule
		want error
	}{
		{"empty name", FieldRule{Operators: []Operator{OpContains}, ValueType: Text}, ErrEmptyName},
		{"no operators", FieldRule{Name: "x", ValueType: Text}, ErrNoOperators},
		{"bad operator", FieldRule{Name: "x", Operators: []Operator{"=~"}, ValueType: Text}, ErrUnknownOperator},
		{"bad type", FieldRule{Name: "x", Operators: []Operator{OpContains}, ValueType: "blob"}, ErrUnknownValueType},
		{"enum without values", FieldRule{Name: "x", Operators: []Operator{OpContains}, ValueType: Enum}, ErrEnumWithoutValues},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.rule); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLabelDefaultsToName(t *testing.T) {
	s := MustNew(FieldRule{Name: "host", Operators: []Operator{OpContains}, ValueType: Text})
	r, _ := s.Lookup("host")
	if r.Label != "host" {
		t.Errorf("label = %q, want host", r.Label)
	}
}

func TestMatchEnum(t *testing.T) {
	r, _ := Default().Lookup(FieldStatus)
	got, ok := r.MatchEnum("FAILED")
	if !ok || got != "failed" {
		t.Errorf("MatchEnum(FAILED) = %q, %v", got, ok)
	}
	if _, ok := r.MatchEnum("fail"); ok {
		t.Error("partial value should not match")
	}
}

func TestOperatorsLongestFirst(t *testing.T) {
	seen := map[Operator]int{}
	for i, op := range Operators {
		seen[op] = i
	}
	if seen[OpGreaterEqual] > seen[OpGreater] || seen[OpLessEqual] > seen[OpLess] || seen[OpNotEqual] > seen[OpEqual] {
		t.Errorf("two-character operators must precede their prefixes: %v", Operators)
	}
}

func TestDecodeYAMLAndJSON(t *testing.T) {
	yamlDoc := []byte(`fields:
  - name: level
    label: Level
    operators: [":", "!="]
    valueType: enum
    enumValues: [debug, info, error]
    allowMultiSelect: true
    allowNegation: true
`)
	s, err := Decode(yamlDoc, ".yaml")
	if err != nil {
		t.Fatalf("Decode yaml: %v", err)
	}
	r, ok := s.Lookup("LEVEL")
	if !ok || len(r.EnumValues) != 3 || !r.AllowsOperator(OpNotEqual) {
		t.Fatalf("unexpected rule: %+v", r)
	}

	jsonDoc := []byte(`{"fields":[{"name":"host","operators":[":"],"valueType":"text"}]}`)
	s, err = Decode(jsonDoc, ".json")
	if err != nil {
		t.Fatalf("Decode json: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 field, got %d", s.Len())
	}

	if _, err := Decode(jsonDoc, ".toml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Encode(Default())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s, err := Decode(data, ".yaml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Len() != Default().Len() {
		t.Errorf("field count = %d, want %d", s.Len(), Default().Len())
	}
}

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeFile(t, path, "fields:\n  - name: a\n    operators: [\":\"]\n    valueType: text\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	reloaded := make(chan *Schema, 4)
	w.OnReload(func(s *Schema) { reloaded <- s })

	writeFile(t, path, "fields:\n  - name: a\n    operators: [\":\"]\n    valueType: text\n  - name: b\n    operators: [\":\"]\n    valueType: text\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-reloaded:
			if s.Len() == 2 {
				if _, ok := w.Current().Lookup("b"); !ok {
					t.Fatal("current schema missing reloaded field")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatcherKeepsPreviousOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeFile(t, path, "fields:\n  - name: a\n    operators: [\":\"]\n    valueType: text\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeFile(t, path, "fields: [")
	if err := w.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if _, ok := w.Current().Lookup("a"); !ok {
		t.Error("previous schema should stay in effect")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
