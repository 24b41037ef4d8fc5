package editor

import (
	"slices"
	"testing"
	"time"

	"querybar/internal/duration"
	"querybar/internal/querylang"
	"querybar/internal/schema"
	"querybar/internal/suggest"
)

func newMachine() Machine {
	return Machine{Schema: schema.Default(), IDs: querylang.NewCounter("t")}
}

func stateOf(m Machine, query string) State {
	return NewState(querylang.Parse(m.Schema, m.IDs, query))
}

// reduce applies events in order and merges their effects.
func reduce(m Machine, st State, events ...Event) (State, Effects) {
	var all Effects
	for _, ev := range events {
		var fx Effects
		st, fx = m.Reduce(st, ev)
		all.ScheduleBlur = all.ScheduleBlur || fx.ScheduleBlur
		all.CancelBlur = all.CancelBlur || fx.CancelBlur
		all.ScheduleHint = all.ScheduleHint || fx.ScheduleHint
		all.ParseFailed = all.ParseFailed || fx.ParseFailed
		all.Committed = append(all.Committed, fx.Committed...)
		all.Pruned += fx.Pruned
	}
	return st, all
}

func selectField(field string) Event {
	return Select{Action: suggest.SelectField{Field: field}}
}

func selectValue(field, value string, negated bool) Event {
	return Select{Action: suggest.SelectValue{Field: field, Value: value, Negated: negated}}
}

func TestFocusOpensDropdown(t *testing.T) {
	m := newMachine()
	st, _ := m.Reduce(NewState(nil), Focus{})
	if st.Mode != Browsing || !st.DropdownOpen {
		t.Errorf("mode = %s, dropdown = %v", st.Mode, st.DropdownOpen)
	}
}

func TestSelectFieldStartsEditing(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("status"))

	if st.Mode != Editing {
		t.Fatalf("mode = %s, want editing", st.Mode)
	}
	tok, ok := st.Editing()
	if !ok || tok.Key != "status" || tok.Operator != schema.OpContains || !tok.IsBuilding {
		t.Fatalf("editing token = %+v", tok)
	}
	if len(st.StableOrder) != 6 {
		t.Errorf("stable order should pin the six status values, got %v", st.StableOrder)
	}
	if st.Query() != "" {
		t.Errorf("an empty building token must not serialize, got %q", st.Query())
	}
}

func TestSelectValueToggles(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("status"), selectValue("status", "success", false))
	if tok, _ := st.Editing(); len(tok.Values) != 1 {
		t.Fatalf("values = %+v", tok.Values)
	}
	if st.Mode != Editing {
		t.Errorf("value selection keeps editing, got %s", st.Mode)
	}

	st, _ = m.Reduce(st, selectValue("status", "success", false))
	if tok, _ := st.Editing(); len(tok.Values) != 0 {
		t.Errorf("second selection should remove, values = %+v", tok.Values)
	}
}

func TestTabCommitsAndPrunes(t *testing.T) {
	m := newMachine()
	st, fx := reduce(m, NewState(nil), Focus{}, selectField("status"), Key{Name: KeyTab})
	if st.Mode != Browsing || st.Input != "" || !st.DropdownOpen {
		t.Errorf("after tab: mode %s, input %q, dropdown %v", st.Mode, st.Input, st.DropdownOpen)
	}
	if len(st.Tokens) != 0 || fx.Pruned != 1 {
		t.Errorf("empty token should be pruned: %+v (pruned %d)", st.Tokens, fx.Pruned)
	}

	st, _ = reduce(m, st, selectField("status"), selectValue("status", "failed", false), Key{Name: KeySemicolon})
	if len(st.Tokens) != 1 || st.Tokens[0].IsBuilding || st.EditingID != "" {
		t.Errorf("token should be committed: %+v", st.Tokens)
	}
	if st.Query() != "status:failed" {
		t.Errorf("query = %q", st.Query())
	}
}

func TestEscapeGoesIdleKeepingValues(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil),
		Focus{}, selectField("status"), selectValue("status", "running", false), Input{Text: "pen"}, Key{Name: KeyEscape})
	if st.Mode != Idle || st.DropdownOpen {
		t.Errorf("mode = %s, dropdown = %v", st.Mode, st.DropdownOpen)
	}
	if st.Input != "" {
		t.Errorf("raw input should be discarded, got %q", st.Input)
	}
	if st.Query() != "status:running" {
		t.Errorf("query = %q", st.Query())
	}
}

func TestBlurGrace(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("branch"))

	st, fx := m.Reduce(st, Blur{})
	if !fx.ScheduleBlur || !st.BlurPending {
		t.Fatal("blur should schedule the grace timer")
	}
	seq := st.blurSeq

	st, fx = m.Reduce(st, Focus{})
	if !fx.CancelBlur || st.BlurPending {
		t.Fatal("focus should cancel the pending blur")
	}
	st, _ = m.Reduce(st, BlurTimeout{Seq: seq})
	if st.Mode != Editing {
		t.Fatalf("cancelled blur must not finalize, mode = %s", st.Mode)
	}

	st, _ = m.Reduce(st, Blur{})
	stale := BlurTimeout{Seq: seq}
	st, _ = m.Reduce(st, stale)
	if st.Mode != Editing {
		t.Fatal("timeout of an older blur must be ignored")
	}

	st, fx = m.Reduce(st, BlurTimeout{Seq: st.blurSeq})
	if st.Mode != Idle || st.DropdownOpen || len(st.Tokens) != 0 || fx.Pruned != 1 {
		t.Errorf("after blur timeout: mode %s, tokens %+v, pruned %d", st.Mode, st.Tokens, fx.Pruned)
	}
}

func TestContradictionReplacedWithHint(t *testing.T) {
	m := newMachine()
	st, fx := reduce(m, NewState(nil), Focus{}, selectField("status"),
		selectValue("status", "failed", true),
		selectValue("status", "failed", false))

	tok, _ := st.Editing()
	if len(tok.Values) != 1 || tok.Values[0] != (querylang.Value{Value: "failed"}) {
		t.Fatalf("values = %+v", tok.Values)
	}
	if st.Hint == nil || st.Hint.Kind != querylang.Contradiction || !fx.ScheduleHint {
		t.Fatalf("hint = %+v", st.Hint)
	}
	if st.Hint.Message != "replaced -failed with failed" {
		t.Errorf("hint message = %q", st.Hint.Message)
	}
}

func TestSingleSelectRejected(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("environment"),
		selectValue("environment", "production", false),
		selectValue("environment", "staging", false))

	tok, _ := st.Editing()
	if len(tok.Values) != 1 || tok.Values[0].Value != "production" {
		t.Errorf("values = %+v", tok.Values)
	}
	if st.Hint == nil || st.Hint.Kind != querylang.SingleSelect {
		t.Errorf("hint = %+v", st.Hint)
	}
}

func TestHintExpiry(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("environment"),
		selectValue("environment", "production", false),
		selectValue("environment", "staging", false))
	first := st.Hint.Seq

	st, _ = m.Reduce(st, selectValue("environment", "development", false))
	st, _ = m.Reduce(st, HintExpired{Seq: first})
	if st.Hint == nil {
		t.Fatal("expiry of an older hint must not clear the new one")
	}
	st, _ = m.Reduce(st, HintExpired{Seq: st.Hint.Seq})
	if st.Hint != nil {
		t.Errorf("hint should be cleared, got %+v", st.Hint)
	}
}

func TestTypedLiteral(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("branch"), Input{Text: "Feature/X"}, Key{Name: KeyComma})
	if st.Query() != "branch:Feature/X" || st.Mode != Browsing {
		t.Fatalf("query = %q, mode = %s", st.Query(), st.Mode)
	}

	id := st.Tokens[0].ID
	st, _ = reduce(m, st, ClickToken{ID: id}, Input{Text: "Feature/X"}, Key{Name: KeyEnter})
	if st.Hint == nil || st.Hint.Kind != querylang.Duplicate {
		t.Errorf("typed duplicate should hint, got %+v", st.Hint)
	}
	if tok, _ := st.Editing(); len(tok.Values) != 1 {
		t.Errorf("values = %+v", tok.Values)
	}
	if st.Mode != Editing {
		t.Errorf("enter with text stays editing, got %s", st.Mode)
	}
}

func TestTypedSyntaxErrorNotAdded(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("duration"), Input{Text: "<soon"})
	if st.SyntaxErr == nil || st.SyntaxErr.Kind != querylang.InvalidFormat {
		t.Fatalf("syntax error = %v", st.SyntaxErr)
	}
	st, _ = m.Reduce(st, Key{Name: KeyEnter})
	if tok, _ := st.Editing(); len(tok.Values) != 0 {
		t.Errorf("invalid text must not be added: %+v", tok.Values)
	}
}

func TestBrowsingCommitsTypedClauses(t *testing.T) {
	m := newMachine()
	st, fx := reduce(m, NewState(nil), Focus{}, Input{Text: "status:success duration>5min"}, Key{Name: KeyEnter})
	if len(st.Tokens) != 2 || st.Input != "" {
		t.Fatalf("tokens = %+v, input = %q", st.Tokens, st.Input)
	}
	equalStrings(t, "committed", fx.Committed, []string{">5min"})

	st, _ = reduce(m, NewState(nil), Focus{}, Input{Text: "status:success bogus:x"}, Key{Name: KeyTab})
	if st.SyntaxErr == nil || st.SyntaxErr.Kind != querylang.UnknownField {
		t.Fatalf("syntax error = %v", st.SyntaxErr)
	}
	if len(st.Tokens) != 0 || st.Input != "status:success bogus:x" {
		t.Errorf("input with errors stays uncommitted: %+v %q", st.Tokens, st.Input)
	}
}

func TestBrowsingSelectCompletesClause(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, Input{Text: "status:success,fa"}, selectValue("status", "failed", false))
	if st.Query() != "status:success,failed" || st.Input != "" || st.Mode != Browsing {
		t.Errorf("query = %q, input = %q, mode = %s", st.Query(), st.Input, st.Mode)
	}

	st = stateOf(m, "status:success")
	st, _ = reduce(m, st, Focus{}, Input{Text: "fail"}, selectValue("status", "failed", false))
	if len(st.Tokens) != 1 || st.Query() != "status:success,failed" {
		t.Errorf("value should join the existing token: %q", st.Query())
	}

	st, _ = reduce(m, st, Input{Text: "duration:>30s,<5m"}, selectValue("duration", "<5m", false))
	if st.Query() != "status:success,failed + duration:>30s,<5m" {
		t.Errorf("query = %q", st.Query())
	}
}

func TestDurationBounds(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "duration>5min")
	st, _ = reduce(m, st, Focus{}, ClickToken{ID: st.Tokens[0].ID})

	if st.Bounds != (duration.Bounds{Min: 5 * time.Minute, Max: duration.Ceiling}) {
		t.Fatalf("bounds = %+v", st.Bounds)
	}
	if tok, _ := st.Editing(); tok.Operator != schema.OpContains || tok.Values[0].Value != ">5min" {
		t.Fatalf("token should be in value form: %+v", tok)
	}

	st, _ = m.Reduce(st, SetBounds{Bounds: duration.Bounds{Min: time.Minute, Max: 10 * time.Minute}})
	st, fx := m.Reduce(st, Key{Name: KeyEscape})
	if st.Query() != "duration:>1min,<10min" {
		t.Errorf("query = %q", st.Query())
	}
	equalStrings(t, "committed", fx.Committed, []string{">1min", "<10min"})

	st, _ = reduce(m, st, ClickToken{ID: st.Tokens[0].ID}, SetBounds{Bounds: duration.Full()}, Key{Name: KeyTab})
	if len(st.Tokens) != 0 {
		t.Errorf("full range leaves no values and the token is pruned: %+v", st.Tokens)
	}
}

func TestDurationPresetReplacesSameSide(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("duration"),
		Select{Action: suggest.SelectPreset{Field: "duration", Value: ">5min"}},
		Select{Action: suggest.SelectPreset{Field: "duration", Value: "<10min"}},
		Select{Action: suggest.SelectPreset{Field: "duration", Value: ">10min"}})
	tok, _ := st.Editing()
	equalStrings(t, "values", tok.Texts(), []string{"<10min", ">10min"})
	if st.Bounds.Min != 10*time.Minute || st.Bounds.Max != 10*time.Minute {
		t.Errorf("bounds = %+v", st.Bounds)
	}
}

func TestBackspace(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "status:success,failed branch:main")
	st, _ = reduce(m, st, Focus{}, ClickToken{ID: st.Tokens[0].ID}, Key{Name: KeyBackspace})
	equalStrings(t, "values", st.Tokens[0].Texts(), []string{"success"})

	st, _ = reduce(m, st, Key{Name: KeyEscape}, Focus{}, Key{Name: KeyBackspace})
	if st.Query() != "status:success" {
		t.Errorf("backspace while browsing removes the last token, query = %q", st.Query())
	}

	st, _ = reduce(m, st, Input{Text: "x"}, Key{Name: KeyBackspace})
	if len(st.Tokens) != 1 {
		t.Error("backspace with text in the input must not remove tokens")
	}
}

func TestWildcardSelection(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("repository"),
		selectValue("repository", "core", false),
		Select{Action: suggest.SelectWildcard{Field: "repository"}})
	if st.Query() != "repository:*" || st.Mode != Browsing {
		t.Errorf("query = %q, mode = %s", st.Query(), st.Mode)
	}
	if !st.Tokens[0].IsWildcard || len(st.Tokens[0].Values) != 0 {
		t.Errorf("token = %+v", st.Tokens[0])
	}
}

func TestRemoveEditingToken(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("status"), selectValue("status", "failed", false))
	st, _ = m.Reduce(st, RemoveToken{ID: st.EditingID})
	if len(st.Tokens) != 0 || st.Mode != Browsing || st.EditingID != "" {
		t.Errorf("state = %+v", st)
	}
}

func TestFreeTextRoundTrip(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "status:success + duration>5min")
	st, _ = m.Reduce(st, ToggleFreeText{})
	if !st.FreeText || st.FreeTextValue != "status:success + duration>5min" {
		t.Fatalf("free text = %v %q", st.FreeText, st.FreeTextValue)
	}
	st, _ = reduce(m, st, FreeTextInput{Text: "branch:main"}, ToggleFreeText{})
	if st.FreeText || st.Query() != "branch:main" {
		t.Errorf("free text = %v, query = %q", st.FreeText, st.Query())
	}
}

func TestFreeTextFailureKeepsTokens(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "status:success")
	st, fx := reduce(m, st, ToggleFreeText{}, FreeTextInput{Text: "status:failed bogus"}, ToggleFreeText{})
	if !fx.ParseFailed || !st.FreeText {
		t.Fatal("unparseable text should keep free-text mode")
	}
	if st.ParseErr != `could not parse "bogus"` {
		t.Errorf("ParseErr = %q", st.ParseErr)
	}
	if st.Query() != "status:success" {
		t.Errorf("prior tokens must be kept, query = %q", st.Query())
	}

	st, _ = m.Reduce(st, AcceptFreeText{})
	if st.FreeText || st.Query() != "status:failed" || st.ParseErr != "" {
		t.Errorf("accept: free text %v, query %q, err %q", st.FreeText, st.Query(), st.ParseErr)
	}
}

func TestSetQueryLeavesEditing(t *testing.T) {
	m := newMachine()
	st, _ := reduce(m, NewState(nil), Focus{}, selectField("status"), SetQuery{Text: "branch:main"})
	if st.Mode != Browsing || st.EditingID != "" || st.Query() != "branch:main" {
		t.Errorf("state = %+v", st)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "status:success")
	st, _ = reduce(m, st, Focus{}, ClickToken{ID: st.Tokens[0].ID})
	before := st.Clone()
	_, _ = m.Reduce(st, selectValue("status", "failed", false))
	if !slices.EqualFunc(st.Tokens, before.Tokens, func(a, b querylang.Token) bool {
		return a.ID == b.ID && slices.Equal(a.Values, b.Values)
	}) {
		t.Error("Reduce modified its input state")
	}
}

func TestMachineSuggestions(t *testing.T) {
	m := newMachine()
	if got := m.Suggestions(NewState(nil)); got != nil {
		t.Errorf("closed dropdown has no suggestions, got %d", len(got))
	}
	st, _ := m.Reduce(NewState(nil), Focus{})
	if got := m.Suggestions(st); len(got) != 6 {
		t.Errorf("got %d suggestions, want 6 fields", len(got))
	}
}

func TestParseKey(t *testing.T) {
	for in, want := range map[string]KeyName{"Tab": KeyTab, ",": KeyComma, "esc": KeyEscape, " enter ": KeyEnter} {
		got, err := ParseKey(in)
		if err != nil || got != want {
			t.Errorf("ParseKey(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKey("f13"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func equalStrings(t *testing.T, what string, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func TestWildcardTokenKeepsWildcard(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "status:*")
	st, fx := reduce(m, st, Focus{}, ClickToken{ID: st.Tokens[0].ID}, selectValue("status", "success", false))

	if st.Query() != "status:*" || !st.Tokens[0].IsWildcard || len(st.Tokens[0].Values) != 0 {
		t.Fatalf("query = %q, token = %+v", st.Query(), st.Tokens[0])
	}
	if st.Hint == nil || st.Hint.Kind != querylang.WildcardToken || !fx.ScheduleHint {
		t.Errorf("hint = %+v", st.Hint)
	}

	got := suggest.Generate(m.Schema, m.request(st))
	if len(got) != 1 || got[0].Kind != suggest.KindWildcard || !got[0].Selected {
		t.Errorf("suggestions = %+v", got)
	}
}

func TestWildcardDurationIgnoresBounds(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "duration:*")
	st, _ = reduce(m, st, Focus{}, ClickToken{ID: st.Tokens[0].ID},
		SetBounds{Bounds: duration.Bounds{Min: 30 * time.Second}})
	if st.Query() != "duration:*" {
		t.Errorf("query = %q", st.Query())
	}
}

func TestEscapeInFreeText(t *testing.T) {
	m := newMachine()
	st := stateOf(m, "status:failed")
	st, _ = reduce(m, st, Focus{}, Blur{}, ToggleFreeText{}, FreeTextInput{Text: "status:failed + branch:main"})
	if !st.BlurPending {
		t.Fatal("blur should still be pending")
	}

	st, fx := m.Reduce(st, Key{Name: KeyEscape})
	if st.BlurPending || !fx.CancelBlur {
		t.Errorf("escape should cancel the pending blur: pending=%v cancel=%v", st.BlurPending, fx.CancelBlur)
	}
	if st.Mode != Idle || st.DropdownOpen {
		t.Errorf("mode = %s, dropdown = %v", st.Mode, st.DropdownOpen)
	}
	if !st.FreeText || st.FreeTextValue != "status:failed + branch:main" {
		t.Errorf("free text = %v %q", st.FreeText, st.FreeTextValue)
	}
}
