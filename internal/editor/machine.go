package editor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"querybar/internal/duration"
	"querybar/internal/querylang"
	"querybar/internal/schema"
	"querybar/internal/suggest"
)

// Effects lists the side effects a transition asks for. Reduce never
// performs them itself.
type Effects struct {
	ScheduleBlur bool
	CancelBlur   bool
	ScheduleHint bool
	// Committed holds the duration comparisons of tokens that were just
	// committed, for the recent-durations list.
	Committed []string
	// Pruned counts tokens dropped because they finalised empty.
	Pruned int
	// ParseFailed is set when leaving free-text mode was refused.
	ParseFailed bool
}

// Machine holds what transitions depend on besides the state itself.
type Machine struct {
	Schema          *schema.Schema
	IDs             querylang.IDGenerator
	RecentDurations []string
	ValueCounts     map[string]map[string]int
}

// Reduce returns the state after ev. st is not modified.
func (m Machine) Reduce(st State, ev Event) (State, Effects) {
	st = st.Clone()
	var fx Effects

	switch ev := ev.(type) {
	case Focus:
		m.cancelBlur(&st, &fx)
		if st.FreeText {
			break
		}
		if st.Mode == Idle {
			st.Mode = Browsing
		}
		st.DropdownOpen = true

	case Blur:
		if st.Mode == Idle {
			break
		}
		st.BlurPending = true
		st.blurSeq++
		fx.ScheduleBlur = true

	case BlurTimeout:
		// A focus or a later blur in the meantime superseded this one.
		if !st.BlurPending || (ev.Seq != 0 && ev.Seq != st.blurSeq) {
			break
		}
		st.BlurPending = false
		if st.Mode == Editing {
			st.Input = ""
			st.SyntaxErr = nil
		}
		m.finalize(&st, &fx)
		st.Mode = Idle
		st.DropdownOpen = false

	case Input:
		if st.FreeText {
			break
		}
		st.Input = ev.Text
		if st.Mode == Idle {
			st.Mode = Browsing
		}
		st.DropdownOpen = true
		st.SyntaxErr = m.validate(st)

	case Select:
		if st.FreeText {
			break
		}
		m.selectAction(&st, &fx, ev.Action)

	case ClickToken:
		m.clickToken(&st, &fx, ev.ID)

	case RemoveToken:
		m.removeToken(&st, ev.ID)

	case Key:
		if st.FreeText {
			// Escape still blurs and closes; the free-text value stays.
			if ev.Name == KeyEscape {
				m.cancelBlur(&st, &fx)
				st.Mode = Idle
				st.DropdownOpen = false
			}
			break
		}
		m.key(&st, &fx, ev.Name)

	case SetModifier:
		st.NegateAll = ev.Negate

	case SetBounds:
		m.setBounds(&st, ev.Bounds)

	case ToggleFreeText:
		m.toggleFreeText(&st, &fx)

	case FreeTextInput:
		if st.FreeText {
			st.FreeTextValue = ev.Text
			st.ParseErr = ""
		}

	case AcceptFreeText:
		if st.FreeText {
			res := querylang.ParseDetailed(m.Schema, m.IDs, st.FreeTextValue)
			st.Tokens = res.Tokens
			st.FreeText = false
			st.ParseErr = ""
		}

	case HintExpired:
		if st.Hint != nil && (ev.Seq == 0 || ev.Seq == st.Hint.Seq) {
			st.Hint = nil
		}

	case SetQuery:
		st.Tokens = querylang.Parse(m.Schema, m.IDs, ev.Text)
		st.EditingID = ""
		st.StableOrder = nil
		st.Bounds = duration.Full()
		if st.Mode == Editing {
			st.Mode = Browsing
			st.Input = ""
			st.SyntaxErr = nil
		}
		if st.FreeText {
			st.FreeTextValue = ev.Text
			st.ParseErr = ""
		}
	}
	return st, fx
}

// Suggestions computes the dropdown for st. A closed dropdown and
// free-text mode have none.
func (m Machine) Suggestions(st State) []suggest.Suggestion {
	if st.FreeText || !st.DropdownOpen {
		return nil
	}
	return suggest.Generate(m.Schema, m.request(st))
}

func (m Machine) request(st State) suggest.Request {
	req := suggest.Request{
		Input:           st.Input,
		Tokens:          st.Tokens,
		ValueCounts:     m.ValueCounts,
		RecentDurations: m.RecentDurations,
		StableOrder:     st.StableOrder,
		NegateAll:       st.NegateAll,
	}
	if tok, ok := st.Editing(); ok {
		req.Editing = &tok
	}
	return req
}

func (m Machine) cancelBlur(st *State, fx *Effects) {
	if st.BlurPending {
		fx.CancelBlur = true
	}
	st.BlurPending = false
}

func (m Machine) validate(st State) *querylang.SyntaxError {
	if strings.TrimSpace(st.Input) == "" {
		return nil
	}
	if tok, ok := st.Editing(); ok {
		return querylang.ValidateSyntax(m.Schema, tok.Key+string(tok.Operator)+st.Input)
	}
	return querylang.ValidateSyntax(m.Schema, st.Input)
}

// finalize commits the token being edited, pruning it when empty, and
// leaves editing mode.
func (m Machine) finalize(st *State, fx *Effects) {
	if i := st.editingIndex(); i >= 0 {
		tok := st.Tokens[i]
		tok.IsBuilding = false
		if tok.Empty() {
			st.Tokens = slices.Delete(st.Tokens, i, i+1)
			fx.Pruned++
		} else {
			st.Tokens[i] = tok
			fx.Committed = append(fx.Committed, m.comparisons(tok)...)
		}
	}
	st.EditingID = ""
	st.StableOrder = nil
	st.Bounds = duration.Full()
	if st.Mode == Editing {
		st.Mode = Browsing
	}
}

// comparisons returns the duration comparisons of a range token.
func (m Machine) comparisons(tok querylang.Token) []string {
	rule, ok := m.Schema.Lookup(tok.Key)
	if !ok || rule.ValueType != schema.Range {
		return nil
	}
	var out []string
	for _, v := range tok.Values {
		if c, ok := duration.ComparisonOf(tok.Operator, v.Value); ok {
			out = append(out, c.Raw)
		}
	}
	return out
}

func (m Machine) beginEditing(st *State, id string) {
	st.EditingID = id
	st.Mode = Editing
	st.DropdownOpen = true
	st.Input = ""
	st.SyntaxErr = nil
	st.Bounds = duration.Full()

	i := st.editingIndex()
	if rule, ok := m.Schema.Lookup(st.Tokens[i].Key); ok && rule.ValueType == schema.Range {
		tok := querylang.ValueForm(st.Tokens[i])
		st.Tokens[i] = tok
		st.Bounds = duration.BoundsOf(tok.Operator, tok.Texts())
	}

	st.StableOrder = nil
	st.StableOrder = suggest.PinOrder(suggest.Generate(m.Schema, m.request(*st)))
}

func (m Machine) selectAction(st *State, fx *Effects, a suggest.Action) {
	switch a := a.(type) {
	case suggest.SelectField:
		rule, ok := m.Schema.Lookup(a.Field)
		if !ok {
			return
		}
		m.finalize(st, fx)
		op := a.Operator
		if op == "" || !rule.AllowsOperator(op) {
			op = rule.DefaultOperator()
		}
		tok := querylang.Token{ID: m.IDs.NextID(), Key: rule.Name, Operator: op, IsBuilding: true}
		st.Tokens = append(st.Tokens, tok)
		m.beginEditing(st, tok.ID)

	case suggest.SelectWildcard:
		rule, ok := m.Schema.Lookup(a.Field)
		if !ok {
			return
		}
		if i := st.editingIndex(); i >= 0 && st.Tokens[i].Key == rule.Name {
			st.Tokens[i] = querylang.ToWildcard(st.Tokens[i])
		} else {
			m.finalize(st, fx)
			st.Tokens = append(st.Tokens, querylang.Token{
				ID:         m.IDs.NextID(),
				Key:        rule.Name,
				Operator:   schema.OpContains,
				IsWildcard: true,
			})
		}
		m.finalize(st, fx)
		st.Input = ""
		st.SyntaxErr = nil
		st.Mode = Browsing

	case suggest.SelectValue:
		m.addValue(st, fx, a.Field, querylang.Value{Value: a.Value, Negated: a.Negated})
	case suggest.SelectCompleteValue:
		m.addValue(st, fx, a.Field, querylang.Value{Value: a.Value, Negated: a.Negated})
	case suggest.SelectPreset:
		m.addValue(st, fx, a.Field, querylang.Value{Value: a.Value})
	}
}

// addValue toggles v on the token being edited, or, while browsing,
// completes the typed clause into a committed token.
func (m Machine) addValue(st *State, fx *Effects, field string, v querylang.Value) {
	rule, ok := m.Schema.Lookup(field)
	if !ok {
		return
	}

	if i := st.editingIndex(); i >= 0 && st.Tokens[i].Key == rule.Name {
		tok, ch, err := querylang.Apply(st.Tokens[i], v, rule, querylang.Toggle)
		if err != nil {
			m.hint(st, fx, rule.Name, v, err, "")
			return
		}
		st.Tokens[i] = tok
		m.conflictHint(st, fx, rule.Name, v, ch)
		st.Input = ""
		st.SyntaxErr = nil
		if rule.ValueType == schema.Range {
			st.Bounds = duration.BoundsOf(tok.Operator, tok.Texts())
		}
		return
	}

	base, at := m.baseToken(*st, rule)
	tok, ch, err := querylang.Apply(base, v, rule, querylang.Toggle)
	if err != nil {
		m.hint(st, fx, rule.Name, v, err, "")
		return
	}
	m.finalize(st, fx)
	m.conflictHint(st, fx, rule.Name, v, ch)
	tok.IsBuilding = false
	if at >= 0 {
		at = querylang.Find(st.Tokens, tok.ID)
	}
	switch {
	case at >= 0 && tok.Empty():
		st.Tokens = slices.Delete(st.Tokens, at, at+1)
	case at >= 0:
		st.Tokens[at] = tok
	case !tok.Empty():
		st.Tokens = append(st.Tokens, tok)
		fx.Committed = append(fx.Committed, m.comparisons(tok)...)
	}
	st.Input = ""
	st.SyntaxErr = nil
	if st.Mode == Idle {
		st.Mode = Browsing
	}
}

// baseToken picks the token a browsing selection applies to: the clause
// being typed when its field matches, else an existing token for the field
// with the default operator, else a fresh one. at is the index of an
// existing token, or -1.
func (m Machine) baseToken(st State, rule *schema.FieldRule) (tok querylang.Token, at int) {
	if key, op, rest, ok := querylang.SplitClause(strings.TrimSpace(st.Input)); ok {
		if r, found := m.Schema.Lookup(key); found && r.Name == rule.Name {
			if !rule.AllowsOperator(op) {
				op = rule.DefaultOperator()
			}
			done, _, _ := querylang.SplitFragment(rest)
			return querylang.Token{
				ID:       m.IDs.NextID(),
				Key:      rule.Name,
				Operator: op,
				Values:   querylang.ParseValues(rule, done),
			}, -1
		}
	}
	for i, t := range st.Tokens {
		if t.Key == rule.Name && !t.IsWildcard && t.ID != st.EditingID && t.Operator == rule.DefaultOperator() {
			return t, i
		}
	}
	return querylang.Token{ID: m.IDs.NextID(), Key: rule.Name, Operator: rule.DefaultOperator()}, -1
}

func (m Machine) conflictHint(st *State, fx *Effects, field string, v querylang.Value, ch querylang.Change) {
	if ch.Conflict == nil || ch.Conflict.Conflicting == nil {
		return
	}
	msg := fmt.Sprintf("replaced %s with %s", ch.Conflict.Conflicting, v)
	m.hint(st, fx, field, v, ch.Conflict, msg)
}

// hint shows err as a transient hint. msg overrides the error text.
func (m Machine) hint(st *State, fx *Effects, field string, v querylang.Value, err error, msg string) {
	var ve *querylang.ValueError
	if !errors.As(err, &ve) {
		return
	}
	if msg == "" {
		msg = ve.Message
	}
	st.hintSeq++
	st.Hint = &Hint{Message: msg, Kind: ve.Kind, Field: field, Value: v, Seq: st.hintSeq}
	fx.ScheduleHint = true
}

func (m Machine) clickToken(st *State, fx *Effects, id string) {
	if st.FreeText || querylang.Find(st.Tokens, id) < 0 {
		return
	}
	m.cancelBlur(st, fx)
	if st.EditingID == id {
		st.Mode = Editing
		st.DropdownOpen = true
		return
	}
	m.finalize(st, fx)
	if querylang.Find(st.Tokens, id) < 0 {
		return
	}
	m.beginEditing(st, id)
}

func (m Machine) removeToken(st *State, id string) {
	i := querylang.Find(st.Tokens, id)
	if i < 0 {
		return
	}
	st.Tokens = slices.Delete(st.Tokens, i, i+1)
	if st.EditingID == id {
		st.EditingID = ""
		st.StableOrder = nil
		st.Bounds = duration.Full()
		st.Input = ""
		st.SyntaxErr = nil
		st.Mode = Browsing
	}
}

func (m Machine) key(st *State, fx *Effects, name KeyName) {
	switch name {
	case KeyEscape:
		m.finalize(st, fx)
		m.cancelBlur(st, fx)
		st.Input = ""
		st.SyntaxErr = nil
		st.Mode = Idle
		st.DropdownOpen = false

	case KeyTab, KeyComma, KeySemicolon:
		if st.Mode == Editing {
			m.addTyped(st, fx)
			m.finalize(st, fx)
			st.Input = ""
			st.SyntaxErr = nil
			st.DropdownOpen = true
			return
		}
		if name == KeyTab {
			m.commitTyped(st, fx)
		}

	case KeyEnter:
		if st.Mode == Editing {
			if strings.TrimSpace(st.Input) != "" {
				m.addTyped(st, fx)
				return
			}
			m.finalize(st, fx)
			st.DropdownOpen = true
			return
		}
		m.commitTyped(st, fx)

	case KeyBackspace:
		if st.Input != "" {
			return
		}
		switch st.Mode {
		case Editing:
			i := st.editingIndex()
			if i < 0 {
				return
			}
			tok := st.Tokens[i]
			if n := len(tok.Values); n > 0 {
				tok = querylang.Remove(tok, tok.Values[n-1])
				st.Tokens[i] = tok
				if rule, ok := m.Schema.Lookup(tok.Key); ok && rule.ValueType == schema.Range {
					st.Bounds = duration.BoundsOf(tok.Operator, tok.Texts())
				}
			}
		case Browsing:
			if n := len(st.Tokens); n > 0 {
				st.Tokens = st.Tokens[:n-1]
			}
		}
	}
}

// addTyped adds the literal values typed while editing a token. Input with a
// syntax error is left in place.
func (m Machine) addTyped(st *State, fx *Effects) {
	i := st.editingIndex()
	text := strings.TrimSpace(st.Input)
	if i < 0 || text == "" || st.SyntaxErr != nil {
		return
	}
	tok := st.Tokens[i]
	rule, ok := m.Schema.Lookup(tok.Key)
	if !ok {
		return
	}
	if text == querylang.Wildcard {
		tok = querylang.ToWildcard(tok)
	} else {
		for _, v := range querylang.ParseValues(rule, text) {
			next, ch, err := querylang.Apply(tok, v, rule, querylang.Add)
			if err != nil {
				m.hint(st, fx, rule.Name, v, err, "")
				continue
			}
			m.conflictHint(st, fx, rule.Name, v, ch)
			tok = next
		}
	}
	st.Tokens[i] = tok
	st.Input = ""
	if rule.ValueType == schema.Range {
		st.Bounds = duration.BoundsOf(tok.Operator, tok.Texts())
	}
}

// commitTyped turns clauses typed while browsing into tokens. Clauses that
// do not parse stay in the input.
func (m Machine) commitTyped(st *State, fx *Effects) {
	text := strings.TrimSpace(st.Input)
	if text == "" || st.SyntaxErr != nil {
		return
	}
	res := querylang.ParseDetailed(m.Schema, m.IDs, text)
	for _, tok := range res.Tokens {
		fx.Committed = append(fx.Committed, m.comparisons(tok)...)
	}
	st.Tokens = append(st.Tokens, res.Tokens...)
	st.Input = strings.Join(res.Dropped, " ")
	st.SyntaxErr = m.validate(*st)
}

func (m Machine) setBounds(st *State, b duration.Bounds) {
	i := st.editingIndex()
	if i < 0 {
		return
	}
	rule, ok := m.Schema.Lookup(st.Tokens[i].Key)
	if !ok || rule.ValueType != schema.Range || st.Tokens[i].IsWildcard {
		return
	}
	b = b.Clamp()
	tok := querylang.ValueForm(st.Tokens[i])
	texts := duration.ApplyBounds(tok.Operator, tok.Texts(), b)
	tok.Values = make([]querylang.Value, len(texts))
	for j, text := range texts {
		tok.Values[j] = querylang.Value{Value: text}
	}
	st.Tokens[i] = tok
	st.Bounds = b
}

// toggleFreeText enters free-text mode, or leaves it when the text parses
// completely. On failure the tokens are kept and ParseErr is set; the
// caller may AcceptFreeText to take the partial result.
func (m Machine) toggleFreeText(st *State, fx *Effects) {
	if !st.FreeText {
		m.finalize(st, fx)
		st.FreeText = true
		st.FreeTextValue = querylang.Serialize(st.Tokens)
		st.ParseErr = ""
		st.Input = ""
		st.SyntaxErr = nil
		st.Mode = Idle
		st.DropdownOpen = false
		return
	}

	res := querylang.ParseDetailed(m.Schema, m.IDs, st.FreeTextValue)
	if len(res.Dropped) > 0 {
		quoted := make([]string, len(res.Dropped))
		for i, d := range res.Dropped {
			quoted[i] = fmt.Sprintf("%q", d)
		}
		st.ParseErr = "could not parse " + strings.Join(quoted, ", ")
		fx.ParseFailed = true
		return
	}
	st.Tokens = res.Tokens
	st.FreeText = false
	st.ParseErr = ""
}
