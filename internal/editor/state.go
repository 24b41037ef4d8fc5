// Package editor is the token-edit state machine behind the query bar.
//
// All widget state lives in one State value. Machine.Reduce computes the
// next State for an Event without side effects; Session owns a State,
// serialises events, and runs the timers and callbacks that Reduce asks for.
package editor

import (
	"slices"

	"querybar/internal/duration"
	"querybar/internal/querylang"
)

// Mode is the coarse state of the widget.
type Mode int

const (
	// Idle: no token targeted, dropdown closed.
	Idle Mode = iota
	// Browsing: dropdown open, suggesting fields and values.
	Browsing
	// Editing: one token is the target of value changes.
	Editing
)

func (m Mode) String() string {
	switch m {
	case Browsing:
		return "browsing"
	case Editing:
		return "editing"
	default:
		return "idle"
	}
}

// Hint is a transient message about a rejected or adjusted value.
type Hint struct {
	Message string
	Kind    querylang.ValueKind
	Field   string
	Value   querylang.Value
	Seq     int // matches the HintExpired event that clears it
}

// State is everything one query bar needs to render and react.
type State struct {
	Tokens       []querylang.Token
	Input        string
	EditingID    string
	Mode         Mode
	DropdownOpen bool
	Bounds       duration.Bounds // slider window of the duration token being edited
	SyntaxErr    *querylang.SyntaxError
	StableOrder  []string
	Hint         *Hint
	NegateAll    bool
	BlurPending  bool

	FreeText      bool
	FreeTextValue string
	ParseErr      string

	hintSeq int
	blurSeq int
}

// NewState returns an idle state holding tokens.
func NewState(tokens []querylang.Token) State {
	return State{Tokens: tokens, Bounds: duration.Full()}
}

// Clone returns a deep copy.
func (st State) Clone() State {
	c := st
	c.Tokens = make([]querylang.Token, len(st.Tokens))
	for i, t := range st.Tokens {
		c.Tokens[i] = t.Clone()
	}
	c.StableOrder = slices.Clone(st.StableOrder)
	if st.SyntaxErr != nil {
		e := *st.SyntaxErr
		c.SyntaxErr = &e
	}
	if st.Hint != nil {
		h := *st.Hint
		c.Hint = &h
	}
	return c
}

// Editing returns the token being edited.
func (st State) Editing() (querylang.Token, bool) {
	if i := st.editingIndex(); i >= 0 {
		return st.Tokens[i], true
	}
	return querylang.Token{}, false
}

// Query is the text form of the tokens.
func (st State) Query() string {
	return querylang.Serialize(st.Tokens)
}

func (st State) editingIndex() int {
	if st.EditingID == "" {
		return -1
	}
	return querylang.Find(st.Tokens, st.EditingID)
}
