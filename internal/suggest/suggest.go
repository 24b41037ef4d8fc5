// Package suggest produces the dropdown items for the query bar: fields to
// filter on, values for a field, duration presets and wildcards.
//
// Generate is pure. The caller supplies everything it depends on (the
// tokens, the token being edited, value counts and recent durations) so the
// same request always yields the same list.
package suggest

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"querybar/internal/duration"
	"querybar/internal/querylang"
	"querybar/internal/schema"
)

// Kind classifies a suggestion.
type Kind string

const (
	KindField         Kind = "field"
	KindValue         Kind = "value"
	KindOperator      Kind = "operator"
	KindComplete      Kind = "complete"
	KindWildcard      Kind = "wildcard"
	KindCustom        Kind = "custom"
	KindPreset        Kind = "preset"
	KindSectionHeader Kind = "section-header"
)

// Limits for the plain-text branch.
const (
	maxFieldMatches = 4
	maxPlainText    = 8
	maxEmptyFields  = 6
)

const (
	recentHeader = "Recent"
	commonHeader = "Common"
)

// Suggestion is one dropdown item.
type Suggestion struct {
	Kind     Kind            `json:"type"`
	Field    string          `json:"field,omitempty"`
	Operator schema.Operator `json:"operator,omitempty"`
	Value    string          `json:"value,omitempty"`
	Label    string          `json:"label"`
	Negated  bool            `json:"isNegated,omitempty"`
	Selected bool            `json:"selected,omitempty"`
	Count    int             `json:"count,omitempty"`
}

// Action maps the suggestion to the editor action it triggers. Section
// headers have none.
func (s Suggestion) Action() (Action, bool) {
	switch s.Kind {
	case KindField, KindOperator:
		return SelectField{Field: s.Field, Operator: s.Operator}, true
	case KindWildcard:
		return SelectWildcard{Field: s.Field}, true
	case KindComplete:
		return SelectCompleteValue{Field: s.Field, Value: s.Value, Negated: s.Negated}, true
	case KindValue, KindCustom:
		return SelectValue{Field: s.Field, Value: s.Value, Negated: s.Negated}, true
	case KindPreset:
		return SelectPreset{Field: s.Field, Value: s.Value}, true
	}
	return nil, false
}

// Key is a stable identifier for the item, usable as a dispatch value.
func (s Suggestion) Key() string {
	if a, ok := s.Action(); ok {
		return Encode(a)
	}
	return "__" + string(s.Kind) + sep + escaper.Replace(s.Label)
}

// Preview is the clause text the suggestion stands for, e.g. "status:-failed".
func (s Suggestion) Preview() string {
	switch s.Kind {
	case KindField, KindOperator:
		return s.Field + string(s.Operator)
	case KindWildcard:
		return s.Field + ":" + querylang.Wildcard
	case KindSectionHeader:
		return s.Label
	}
	v := querylang.QuoteValue(s.Value)
	if s.Negated {
		v = "-" + v
	}
	return s.Field + ":" + v
}

// isValueKind reports whether the item carries a value that pinning and the
// negate-all modifier apply to.
func (s Suggestion) isValueKind() bool {
	return s.Kind == KindValue || s.Kind == KindComplete || s.Kind == KindPreset
}

// pinKey identifies a value item regardless of its negation or selection,
// which change while the dropdown is open.
func (s Suggestion) pinKey() string {
	return s.Field + "\x1f" + s.Value
}

// Request is the input to Generate.
type Request struct {
	// Input is the raw text in the input box. While a token is being
	// edited it holds the value being typed.
	Input string
	// Tokens are the committed tokens.
	Tokens []querylang.Token
	// Editing is the token being edited, or nil.
	Editing *querylang.Token
	// ValueCounts holds known values per field with their frequency.
	ValueCounts map[string]map[string]int
	// RecentDurations are recently used duration comparisons, newest first.
	RecentDurations []string
	// StableOrder pins the order of value items, see PinOrder.
	StableOrder []string
	// NegateAll forces unselected values into their negated form.
	NegateAll bool
}

// Generate returns the ordered suggestions for req.
func Generate(s *schema.Schema, req Request) []Suggestion {
	var out []Suggestion
	switch {
	case req.Editing != nil:
		out = editing(s, req)
	default:
		if key, op, rest, ok := querylang.SplitClause(strings.TrimSpace(req.Input)); ok {
			out = withPrefix(s, req, key, op, rest)
		} else {
			out = plainText(s, req)
		}
	}

	if req.NegateAll {
		out = negateAll(s, out)
	}
	if len(req.StableOrder) > 0 {
		out = applyPins(out, req.StableOrder)
	}
	if req.Editing == nil {
		out = slices.DeleteFunc(out, func(sg Suggestion) bool {
			return sg.Kind == KindPreset || sg.Kind == KindSectionHeader
		})
	}
	return out
}

// PinOrder captures the order of value items so later calls can keep them
// from moving while the user is selecting.
func PinOrder(suggestions []Suggestion) []string {
	var keys []string
	for _, sg := range suggestions {
		if sg.isValueKind() {
			keys = append(keys, sg.pinKey())
		}
	}
	return keys
}

// editing suggests values for the token being edited.
func editing(s *schema.Schema, req Request) []Suggestion {
	tok := req.Editing
	rule, ok := s.Lookup(tok.Key)
	if !ok {
		return nil
	}
	// A wildcard token takes no values until it is removed and recreated.
	if tok.IsWildcard {
		return []Suggestion{wildcardItem(rule, true)}
	}

	input := strings.TrimSpace(req.Input)
	if key, _, rest, ok := querylang.SplitClause(input); ok {
		if r, found := s.Lookup(key); found && r.Name == rule.Name {
			input = rest
		}
	}
	_, fragment, negTyped := querylang.SplitFragment(input)
	negTyped = negTyped && rule.AllowNegation

	var out []Suggestion
	switch {
	case rule.ValueType == schema.Range:
		out = durationItems(rule, tok, input, req.RecentDurations)
	case rule.HasEnum():
		out = enumItems(rule, tok, fragment, negTyped, req.ValueCounts[rule.Name])
	default:
		out = literalItems(rule, tok, fragment, negTyped, req.ValueCounts[rule.Name])
	}

	if len(tok.Values) == 0 || input == querylang.Wildcard {
		out = append(out, wildcardItem(rule, tok.IsWildcard))
	}
	return out
}

func enumItems(rule *schema.FieldRule, tok *querylang.Token, fragment string, negTyped bool, counts map[string]int) []Suggestion {
	var out []Suggestion
	for _, ev := range rule.EnumValues {
		if !matches(ev, fragment) {
			continue
		}
		pos := querylang.Value{Value: ev}
		neg := pos.Opposite()
		item := Suggestion{Kind: KindValue, Field: rule.Name, Value: ev, Label: ev, Count: counts[ev]}
		switch {
		case tok.HasValue(neg):
			item.Negated, item.Selected = true, true
			item.Label = neg.String()
		case tok.HasValue(pos):
			item.Selected = true
		}
		out = append(out, item)
		if negTyped && !item.Selected {
			out = append(out, Suggestion{Kind: KindValue, Field: rule.Name, Value: ev, Label: neg.String(), Negated: true, Count: counts[ev]})
		}
	}
	return out
}

func durationItems(rule *schema.FieldRule, tok *querylang.Token, input string, recent []string) []Suggestion {
	var out []Suggestion
	if c, ok := duration.ParseComparison(input); ok {
		out = append(out, Suggestion{
			Kind:     KindCustom,
			Field:    rule.Name,
			Value:    c.Raw,
			Label:    rule.Label + " " + c.Raw,
			Selected: tok.HasValue(querylang.Value{Value: c.Raw}),
		})
	}

	preset := func(v string) Suggestion {
		return Suggestion{
			Kind:     KindPreset,
			Field:    rule.Name,
			Value:    v,
			Label:    v,
			Selected: tok.HasValue(querylang.Value{Value: v}),
		}
	}
	filter := func(v string) bool {
		return input == "" || strings.HasPrefix(strings.ToLower(v), strings.ToLower(input))
	}

	seen := map[string]bool{}
	var recentItems []Suggestion
	for _, v := range recent {
		if _, ok := duration.ParseComparison(v); !ok || seen[v] {
			continue
		}
		seen[v] = true
		if filter(v) {
			recentItems = append(recentItems, preset(v))
		}
	}
	if len(recentItems) > 0 {
		out = append(out, Suggestion{Kind: KindSectionHeader, Label: recentHeader})
		out = append(out, recentItems...)
	}

	var common []Suggestion
	for _, v := range duration.Presets {
		if !seen[v] && filter(v) {
			common = append(common, preset(v))
		}
	}
	if len(common) > 0 {
		out = append(out, Suggestion{Kind: KindSectionHeader, Label: commonHeader})
		out = append(out, common...)
	}
	return out
}

// literalItems serves text and number fields: an "add literal" item for the
// typed text, the token's own values, then known values by frequency.
func literalItems(rule *schema.FieldRule, tok *querylang.Token, fragment string, negTyped bool, counts map[string]int) []Suggestion {
	var out []Suggestion
	if fragment != "" && fragment != querylang.Wildcard && literalOK(rule, fragment) {
		v := querylang.Value{Value: fragment, Negated: negTyped}
		if !tok.HasValue(v) {
			out = append(out, Suggestion{Kind: KindCustom, Field: rule.Name, Value: fragment, Negated: negTyped, Label: "Add " + strconv.Quote(v.String())})
		}
	}

	shown := map[string]bool{}
	for _, v := range tok.Values {
		shown[v.Value] = true
		if !matches(v.Value, fragment) {
			continue
		}
		out = append(out, Suggestion{Kind: KindValue, Field: rule.Name, Value: v.Value, Label: v.String(), Negated: v.Negated, Selected: true, Count: counts[v.Value]})
	}
	for _, kv := range byCount(counts) {
		if shown[kv.value] || !matches(kv.value, fragment) {
			continue
		}
		out = append(out, Suggestion{Kind: KindValue, Field: rule.Name, Value: kv.value, Label: kv.value, Negated: negTyped, Count: kv.count})
	}
	return out
}

// withPrefix handles "field<op>value" typed without an editing token.
func withPrefix(s *schema.Schema, req Request, key string, op schema.Operator, rest string) []Suggestion {
	rule, ok := s.Lookup(key)
	if !ok {
		return nil
	}
	if !rule.AllowsOperator(op) && !(rest == querylang.Wildcard && op == schema.OpContains) {
		return operatorItems(rule)
	}

	done, fragment, neg := querylang.SplitFragment(rest)
	neg = neg && rule.AllowNegation
	counts := req.ValueCounts[rule.Name]

	var complete, values []Suggestion
	exact := false
	for _, ev := range rule.EnumValues {
		if !matches(ev, fragment) {
			continue
		}
		item := Suggestion{Kind: KindValue, Field: rule.Name, Operator: op, Value: ev, Negated: neg, Count: counts[ev]}
		item.Label = querylang.Value{Value: ev, Negated: neg}.String()
		if strings.EqualFold(ev, fragment) {
			exact = true
			item.Kind = KindComplete
			complete = append(complete, item)
			continue
		}
		values = append(values, item)
	}
	if !rule.HasEnum() {
		for _, kv := range byCount(counts) {
			if !matches(kv.value, fragment) {
				continue
			}
			if kv.value == fragment {
				exact = true
			}
			values = append(values, Suggestion{Kind: KindValue, Field: rule.Name, Operator: op, Value: kv.value, Label: kv.value, Negated: neg, Count: kv.count})
		}
	}

	out := append(complete, values...)
	if fragment != "" && fragment != querylang.Wildcard && !exact && customOK(rule, op, done, fragment) {
		v := querylang.Value{Value: fragment, Negated: neg}
		out = append(out, Suggestion{Kind: KindCustom, Field: rule.Name, Operator: op, Value: fragment, Negated: neg, Label: "Add " + strconv.Quote(v.String())})
	}
	return append(out, wildcardItem(rule, false))
}

func customOK(rule *schema.FieldRule, op schema.Operator, done, fragment string) bool {
	if rule.ValueType != schema.Range {
		return literalOK(rule, fragment)
	}
	if op.IsComparison() {
		_, ok := duration.Parse(fragment)
		return ok
	}
	all := fragment
	if done != "" {
		all = done + "," + fragment
	}
	_, ok := duration.ParseComparisons(all)
	return ok
}

func literalOK(rule *schema.FieldRule, text string) bool {
	switch rule.ValueType {
	case schema.Number:
		_, err := strconv.ParseFloat(text, 64)
		return err == nil
	case schema.Range:
		_, ok := duration.ParseComparison(text)
		return ok
	}
	return true
}

func operatorItems(rule *schema.FieldRule) []Suggestion {
	out := make([]Suggestion, 0, len(rule.Operators))
	for _, op := range rule.Operators {
		out = append(out, Suggestion{Kind: KindOperator, Field: rule.Name, Operator: op, Label: rule.Name + string(op)})
	}
	return out
}

// plainText handles input without a field prefix: matching fields first,
// then values from any field.
func plainText(s *schema.Schema, req Request) []Suggestion {
	used := map[string]bool{}
	for _, t := range req.Tokens {
		used[strings.ToLower(t.Key)] = true
	}
	var unused []schema.FieldRule
	for _, r := range s.Rules() {
		if !used[strings.ToLower(r.Name)] {
			unused = append(unused, r)
		}
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		out := make([]Suggestion, 0, maxEmptyFields)
		for _, r := range unused {
			if len(out) == maxEmptyFields {
				break
			}
			out = append(out, fieldItem(r))
		}
		return out
	}

	text, neg := input, false
	if input[0] == '-' || input[0] == '!' {
		text, neg = input[1:], true
	}

	var out []Suggestion
	if !neg {
		out = matchingFields(s, unused, text)
	}

	seen := map[string]bool{}
	add := func(sg Suggestion) bool {
		if len(out) >= maxPlainText {
			return false
		}
		if p := sg.Preview(); !seen[p] {
			seen[p] = true
			out = append(out, sg)
		}
		return true
	}

	if c, ok := duration.ParseComparison(input); ok {
		for _, r := range s.Rules() {
			if r.ValueType == schema.Range {
				add(Suggestion{Kind: KindCustom, Field: r.Name, Value: c.Raw, Label: r.Label + " " + c.Raw})
			}
		}
	}

	for _, r := range s.Rules() {
		negated := neg && r.AllowNegation
		if neg && !r.AllowNegation {
			continue
		}
		for _, ev := range r.EnumValues {
			if text == "" || !matches(ev, text) {
				continue
			}
			label := querylang.Value{Value: ev, Negated: negated}.String()
			if !add(Suggestion{Kind: KindValue, Field: r.Name, Value: ev, Negated: negated, Label: r.Label + ": " + label, Count: req.ValueCounts[r.Name][ev]}) {
				return out
			}
		}
	}
	return out
}

// matchingFields ranks fields whose name or label starts with text, then
// those containing it. With no match at all it falls back to the nearest
// name by edit distance.
func matchingFields(s *schema.Schema, unused []schema.FieldRule, text string) []Suggestion {
	lower := strings.ToLower(text)
	var prefix, contains []Suggestion
	for _, r := range unused {
		name, label := strings.ToLower(r.Name), strings.ToLower(r.Label)
		switch {
		case strings.HasPrefix(name, lower) || strings.HasPrefix(label, lower):
			prefix = append(prefix, fieldItem(r))
		case strings.Contains(name, lower) || strings.Contains(label, lower):
			contains = append(contains, fieldItem(r))
		}
	}
	out := append(prefix, contains...)
	if len(out) == 0 {
		if near := querylang.NearestField(s, text); near != "" {
			for _, r := range unused {
				if r.Name == near {
					out = append(out, fieldItem(r))
				}
			}
		}
	}
	if len(out) > maxFieldMatches {
		out = out[:maxFieldMatches]
	}
	return out
}

func fieldItem(r schema.FieldRule) Suggestion {
	return Suggestion{Kind: KindField, Field: r.Name, Label: r.Label}
}

func wildcardItem(rule *schema.FieldRule, selected bool) Suggestion {
	return Suggestion{Kind: KindWildcard, Field: rule.Name, Value: querylang.Wildcard, Label: "Any " + strings.ToLower(rule.Label), Selected: selected}
}

// negateAll drops unselected negated variants whose positive form is also
// listed, then flips every remaining unselected value item to its negated
// form. Negated items without a positive twin stay as they are.
func negateAll(s *schema.Schema, items []Suggestion) []Suggestion {
	positive := make(map[string]bool)
	for _, sg := range items {
		if sg.isValueKind() && !sg.Negated {
			positive[sg.pinKey()] = true
		}
	}
	out := items[:0:0]
	for _, sg := range items {
		if sg.isValueKind() && sg.Negated && !sg.Selected && positive[sg.pinKey()] {
			continue
		}
		if sg.isValueKind() && !sg.Selected && !sg.Negated {
			if r, ok := s.Lookup(sg.Field); ok && r.AllowNegation {
				pos := querylang.Value{Value: sg.Value}.String()
				neg := querylang.Value{Value: sg.Value, Negated: true}.String()
				sg.Negated = true
				if prefix, ok := strings.CutSuffix(sg.Label, pos); ok {
					sg.Label = prefix + neg
				} else {
					sg.Label = neg
				}
			}
		}
		out = append(out, sg)
	}
	return out
}

// applyPins reorders value items to follow pins. Other items keep their
// positions; unpinned value items follow the pinned ones.
func applyPins(items []Suggestion, pins []string) []Suggestion {
	rank := make(map[string]int, len(pins))
	for i, k := range pins {
		if _, ok := rank[k]; !ok {
			rank[k] = i
		}
	}
	var slots []int
	var values []Suggestion
	for i, sg := range items {
		if sg.isValueKind() {
			slots = append(slots, i)
			values = append(values, sg)
		}
	}
	slices.SortStableFunc(values, func(a, b Suggestion) int {
		ra, oka := rank[a.pinKey()]
		rb, okb := rank[b.pinKey()]
		switch {
		case oka && okb:
			return cmp.Compare(ra, rb)
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
	out := slices.Clone(items)
	for i, slot := range slots {
		out[slot] = values[i]
	}
	return out
}

func matches(candidate, fragment string) bool {
	return fragment == "" || strings.Contains(strings.ToLower(candidate), strings.ToLower(fragment))
}

type valueCount struct {
	value string
	count int
}

// byCount orders counts by frequency, then alphabetically.
func byCount(counts map[string]int) []valueCount {
	out := make([]valueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, valueCount{v, n})
	}
	slices.SortFunc(out, func(a, b valueCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.value, b.value)
	})
	return out
}
