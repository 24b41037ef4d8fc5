// Package schema defines the filterable fields of a query: which operators a
// field accepts, what its values look like, and how many it may carry.
//
// A Schema is immutable once built. Lookups are case-insensitive against both
// the field name and its display label.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Operator is a comparison symbol between a field and its values.
type Operator string

const (
	OpContains     Operator = ":"
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
)

// Operators is the full operator alphabet, longest symbols first.
// Prefix matching walks it in order so ">=" wins over ">".
var Operators = []Operator{
	OpNotEqual,
	OpGreaterEqual,
	OpLessEqual,
	OpContains,
	OpGreater,
	OpLess,
	OpEqual,
}

// IsComparison reports whether op orders values (> < >= <=).
func (op Operator) IsComparison() bool {
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Valid reports whether op belongs to the operator alphabet.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// ValueType describes the domain of a field's values.
type ValueType string

const (
	Enum   ValueType = "enum"
	Text   ValueType = "text"
	Number ValueType = "number"
	Range  ValueType = "range"
)

// Schema errors.
var (
	ErrEmptyName         = errors.New("field name is empty")
	ErrDuplicateField    = errors.New("duplicate field")
	ErrUnknownOperator   = errors.New("unknown operator")
	ErrNoOperators       = errors.New("field has no operators")
	ErrUnknownValueType  = errors.New("unknown value type")
	ErrEnumWithoutValues = errors.New("enum field has no values")
)

// FieldRule describes one filterable field.
type FieldRule struct {
	Name             string     `json:"name" yaml:"name"`
	Label            string     `json:"label" yaml:"label"`
	Operators        []Operator `json:"operators" yaml:"operators"`
	ValueType        ValueType  `json:"valueType" yaml:"valueType"`
	EnumValues       []string   `json:"enumValues,omitempty" yaml:"enumValues,omitempty"`
	AllowMultiSelect bool       `json:"allowMultiSelect" yaml:"allowMultiSelect"`
	AllowNegation    bool       `json:"allowNegation" yaml:"allowNegation"`
	IsSingleValue    bool       `json:"isSingleValue" yaml:"isSingleValue"`
}

// AllowsOperator reports whether op is legal for the field.
func (r *FieldRule) AllowsOperator(op Operator) bool {
	for _, o := range r.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// MatchEnum matches v case-insensitively against the enum values and returns
// the canonical spelling.
func (r *FieldRule) MatchEnum(v string) (string, bool) {
	for _, ev := range r.EnumValues {
		if strings.EqualFold(ev, v) {
			return ev, true
		}
	}
	return "", false
}

// HasEnum reports whether the field offers a fixed value list.
func (r *FieldRule) HasEnum() bool {
	return r.ValueType == Enum && len(r.EnumValues) > 0
}

// DefaultOperator is the operator a freshly selected field starts with.
func (r *FieldRule) DefaultOperator() Operator {
	if r.AllowsOperator(OpContains) || len(r.Operators) == 0 {
		return OpContains
	}
	return r.Operators[0]
}

// OperatorList renders the allowed operators for messages.
func (r *FieldRule) OperatorList() string {
	ops := make([]string, len(r.Operators))
	for i, op := range r.Operators {
		ops[i] = string(op)
	}
	return strings.Join(ops, ", ")
}

func (r *FieldRule) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Operators) == 0 {
		return fmt.Errorf("%s: %w", r.Name, ErrNoOperators)
	}
	for _, op := range r.Operators {
		if !op.Valid() {
			return fmt.Errorf("%s: %w: %q", r.Name, ErrUnknownOperator, op)
		}
	}
	switch r.ValueType {
	case Enum:
		if len(r.EnumValues) == 0 {
			return fmt.Errorf("%s: %w", r.Name, ErrEnumWithoutValues)
		}
	case Text, Number, Range:
	default:
		return fmt.Errorf("%s: %w: %q", r.Name, ErrUnknownValueType, r.ValueType)
	}
	return nil
}

// Schema is an ordered, immutable set of field rules.
type Schema struct {
	rules []FieldRule
	index map[string]int // lowercased name and label -> rule index
}

// New builds a Schema. Names must be unique case-insensitively.
// Labels default to the name when empty.
func New(rules ...FieldRule) (*Schema, error) {
	s := &Schema{
		rules: make([]FieldRule, 0, len(rules)),
		index: make(map[string]int, 2*len(rules)),
	}
	names := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(r.Name)
		if names[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, r.Name)
		}
		names[key] = true

		if r.Label == "" {
			r.Label = r.Name
		}
		r.Operators = append([]Operator(nil), r.Operators...)
		r.EnumValues = append([]string(nil), r.EnumValues...)
		s.rules = append(s.rules, r)
	}

	// Names take precedence over labels when a label collides with another
	// field's name.
	for i, r := range s.rules {
		s.index[strings.ToLower(r.Name)] = i
	}
	for i, r := range s.rules {
		key := strings.ToLower(r.Label)
		if _, taken := s.index[key]; !taken {
			s.index[key] = i
		}
	}
	return s, nil
}

// MustNew is New that panics on error. Intended for static tables.
func MustNew(rules ...FieldRule) *Schema {
	s, err := New(rules...)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup finds a rule by name or label, ignoring case.
func (s *Schema) Lookup(name string) (*FieldRule, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return &s.rules[i], true
}

// Rules returns the rules in schema order. The slice is a copy.
func (s *Schema) Rules() []FieldRule {
	if s == nil {
		return nil
	}
	out := make([]FieldRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Name
	}
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Provider hands out the schema currently in effect.
type Provider interface {
	Current() *Schema
}

type staticProvider struct{ s *Schema }

func (p staticProvider) Current() *Schema { return p.s }

// Static returns a Provider that always yields s.
func Static(s *Schema) Provider {
	return staticProvider{s: s}
}
