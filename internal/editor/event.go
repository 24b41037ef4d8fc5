package editor

import (
	"fmt"
	"strings"

	"querybar/internal/duration"
	"querybar/internal/suggest"
)

// Event is an input to the state machine.
type Event interface {
	isEvent()
}

type (
	// Focus: the input gained focus.
	Focus struct{}
	// Blur: the input lost focus. Finalisation waits for the grace period.
	Blur struct{}
	// BlurTimeout: the grace period of the blur with the same sequence
	// number elapsed.
	BlurTimeout struct{ Seq int }
	// Input: the raw text in the input box changed.
	Input struct{ Text string }
	// Select: a suggestion was chosen.
	Select struct{ Action suggest.Action }
	// ClickToken: a committed token was clicked for editing.
	ClickToken struct{ ID string }
	// RemoveToken: a token's remove control was used.
	RemoveToken struct{ ID string }
	// Key: a special key was pressed.
	Key struct{ Name KeyName }
	// SetModifier: the negate-all modifier key was pressed or released.
	SetModifier struct{ Negate bool }
	// SetBounds: the duration slider moved.
	SetBounds struct{ Bounds duration.Bounds }
	// ToggleFreeText switches between token and free-text editing.
	ToggleFreeText struct{}
	// FreeTextInput: the free-text box changed.
	FreeTextInput struct{ Text string }
	// AcceptFreeText leaves free-text mode keeping whatever parsed.
	AcceptFreeText struct{}
	// HintExpired clears the hint with the same sequence number.
	HintExpired struct{ Seq int }
	// SetQuery replaces all tokens from query text.
	SetQuery struct{ Text string }
)

func (Focus) isEvent()          {}
func (Blur) isEvent()           {}
func (BlurTimeout) isEvent()    {}
func (Input) isEvent()          {}
func (Select) isEvent()         {}
func (ClickToken) isEvent()     {}
func (RemoveToken) isEvent()    {}
func (Key) isEvent()            {}
func (SetModifier) isEvent()    {}
func (SetBounds) isEvent()      {}
func (ToggleFreeText) isEvent() {}
func (FreeTextInput) isEvent()  {}
func (AcceptFreeText) isEvent() {}
func (HintExpired) isEvent()    {}
func (SetQuery) isEvent()       {}

// KeyName names a key the state machine reacts to.
type KeyName string

const (
	KeyTab       KeyName = "tab"
	KeyComma     KeyName = "comma"
	KeySemicolon KeyName = "semicolon"
	KeyEnter     KeyName = "enter"
	KeyEscape    KeyName = "escape"
	KeyBackspace KeyName = "backspace"
)

var keyAliases = map[string]KeyName{
	"tab":       KeyTab,
	"comma":     KeyComma,
	",":         KeyComma,
	"semicolon": KeySemicolon,
	";":         KeySemicolon,
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"escape":    KeyEscape,
	"esc":       KeyEscape,
	"backspace": KeyBackspace,
	"bs":        KeyBackspace,
}

// ParseKey resolves a key name such as "tab", "esc" or ",".
func ParseKey(name string) (KeyName, error) {
	if k, ok := keyAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown key %q", name)
}
