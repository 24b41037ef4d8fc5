package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"querybar/internal/duration"
	"querybar/internal/editor"
	"querybar/internal/suggest"
)

var errUsage = errors.New("usage")

// execute runs a single command. Returns true if the REPL should exit.
func (r *REPL) execute(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	var err error
	switch strings.ToLower(cmd) {
	case "help", "?":
		var out strings.Builder
		r.cmdHelp(&out)
		r.page(out.String())
		return false
	case "focus":
		r.sess.Dispatch(editor.Focus{})
	case "blur":
		r.sess.Dispatch(editor.Blur{})
	case "type":
		r.sess.Dispatch(editor.Input{Text: rest})
	case "select":
		err = r.cmdSelect(args)
	case "click":
		err = r.cmdToken(args, func(id string) editor.Event { return editor.ClickToken{ID: id} })
	case "remove":
		err = r.cmdToken(args, func(id string) editor.Event { return editor.RemoveToken{ID: id} })
	case "key":
		err = r.cmdKey(args)
	case "negate":
		err = r.cmdNegate(args)
	case "range":
		err = r.cmdRange(args)
	case "freetext":
		r.cmdFreeText(rest)
	case "accept":
		r.sess.Dispatch(editor.AcceptFreeText{})
	case "set":
		r.sess.SetValue(rest)
	case "show":
	case "suggest":
		var out strings.Builder
		r.renderSuggestions(&out, r.sess.Suggestions())
		r.page(out.String())
		return false
	case "wait":
		err = r.cmdWait(ctx)
	case "exit", "quit":
		return true
	default:
		r.printf("Unknown command: %s. Type 'help' for commands.\n", cmd)
		return false
	}

	if err != nil {
		r.printf("Error: %v\n", err)
		return false
	}
	var out strings.Builder
	r.render(&out)
	r.printf("%s", out.String())
	return false
}

func (r *REPL) cmdHelp(out *strings.Builder) {
	out.WriteString(`Commands:
  help                     Show this help
  focus                    Focus the input
  blur                     Blur the input (finalises after the grace period)
  type <text>              Replace the raw input text
  select <n>               Choose suggestion n
  click <n>                Edit token n
  remove <n>               Remove token n
  key <name>               Press tab, comma, semicolon, enter, escape or backspace
  negate on|off            Hold or release the negate-all modifier
  range <min> <max>        Move the duration slider ("-" leaves a side open)
  freetext [text]          Toggle free-text mode, or set its text
  accept                   Leave free-text mode keeping what parsed
  set <query>              Replace the value from outside
  show                     Print the current state
  suggest                  List the current suggestions
  wait                     Wait for a timer (blur grace, hint expiry)
  exit                     Exit the REPL

Examples:
  focus
  type stat
  select 1
  type -fail
  key enter
  range 30s 5min
  set status:failed + duration>5min
`)
}

func (r *REPL) cmdSelect(args []string) error {
	n, err := index(args)
	if err != nil {
		return err
	}
	items := selectables(r.sess.Suggestions())
	if n > len(items) {
		return fmt.Errorf("no suggestion %d (%d shown)", n, len(items))
	}
	a, _ := items[n-1].Action()
	r.sess.Dispatch(editor.Select{Action: a})
	return nil
}

func (r *REPL) cmdToken(args []string, event func(id string) editor.Event) error {
	n, err := index(args)
	if err != nil {
		return err
	}
	tokens := r.sess.State().Tokens
	if n > len(tokens) {
		return fmt.Errorf("no token %d (%d present)", n, len(tokens))
	}
	r.sess.Dispatch(event(tokens[n-1].ID))
	return nil
}

func (r *REPL) cmdKey(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: key <name>", errUsage)
	}
	k, err := editor.ParseKey(args[0])
	if err != nil {
		return err
	}
	r.sess.Dispatch(editor.Key{Name: k})
	return nil
}

func (r *REPL) cmdNegate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: negate on|off", errUsage)
	}
	var on bool
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("%w: negate on|off", errUsage)
	}
	r.sess.Dispatch(editor.SetModifier{Negate: on})
	return nil
}

func (r *REPL) cmdRange(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: range <min> <max>", errUsage)
	}
	lo, err := bound(args[0], 0)
	if err != nil {
		return err
	}
	hi, err := bound(args[1], duration.Ceiling)
	if err != nil {
		return err
	}
	r.sess.Dispatch(editor.SetBounds{Bounds: duration.Bounds{Min: lo, Max: hi}})
	return nil
}

func bound(s string, open time.Duration) (time.Duration, error) {
	if s == "-" {
		return open, nil
	}
	d, ok := duration.Parse(s)
	if !ok {
		return 0, fmt.Errorf("%q is not a duration (try 30s, 5min, 2h)", s)
	}
	return d, nil
}

func (r *REPL) cmdFreeText(text string) {
	if text == "" {
		r.sess.Dispatch(editor.ToggleFreeText{})
		return
	}
	if !r.sess.State().FreeText {
		r.sess.Dispatch(editor.ToggleFreeText{})
	}
	r.sess.Dispatch(editor.FreeTextInput{Text: text})
}

// cmdWait blocks until the session changes on its own, for example when
// the blur grace period or a hint runs out.
func (r *REPL) cmdWait(ctx context.Context) error {
	ch := r.sess.Changed()
	timer := time.NewTimer(r.waitTimeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return fmt.Errorf("nothing happened within %s", r.waitTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func index(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected a number", errUsage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a positive number", args[0])
	}
	return n, nil
}

// selectables drops section headers, which have no action.
func selectables(items []suggest.Suggestion) []suggest.Suggestion {
	out := make([]suggest.Suggestion, 0, len(items))
	for _, it := range items {
		if _, ok := it.Action(); ok {
			out = append(out, it)
		}
	}
	return out
}
