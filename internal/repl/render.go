package repl

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"querybar/internal/duration"
	"querybar/internal/querylang"
	"querybar/internal/schema"
	"querybar/internal/suggest"
)

func displayQuery(q string) string {
	if q == "" {
		return "(empty)"
	}
	return q
}

// render prints the state the widget would show.
func (r *REPL) render(out *strings.Builder) {
	st := r.sess.State()

	fmt.Fprintf(out, "query: %s\n", displayQuery(st.Query()))
	if len(st.Tokens) > 0 {
		parts := make([]string, len(st.Tokens))
		for i, tok := range st.Tokens {
			mark := ""
			if tok.ID == st.EditingID {
				mark = "*"
			}
			parts[i] = fmt.Sprintf("[%d]%s %s", i+1, mark, tokenText(tok))
		}
		fmt.Fprintf(out, "tokens: %s\n", strings.Join(parts, "  "))
	}

	if st.FreeText {
		const label = "free text: "
		out.WriteString(label + st.FreeTextValue + "\n")
		if marks := errorMarks(r.sess.Schema(), st.FreeTextValue); marks != "" {
			out.WriteString(strings.Repeat(" ", len(label)) + marks + "\n")
		}
		if st.ParseErr != "" {
			fmt.Fprintf(out, "error: %s (accept keeps what parsed)\n", st.ParseErr)
		}
		return
	}

	line := "mode: " + st.Mode.String()
	if st.Input != "" {
		line += fmt.Sprintf("  input: %q", st.Input)
	}
	if st.NegateAll {
		line += "  negate: on"
	}
	if st.BlurPending {
		line += "  (blur pending)"
	}
	out.WriteString(line + "\n")

	if st.SyntaxErr != nil {
		fmt.Fprintf(out, "error: %s\n", st.SyntaxErr)
	}
	if st.Hint != nil {
		fmt.Fprintf(out, "hint: %s\n", st.Hint.Message)
	}
	if tok, ok := st.Editing(); ok && r.isRange(tok.Key) {
		fmt.Fprintf(out, "range: %s\n", boundsText(st.Bounds))
	}
	if st.DropdownOpen {
		r.renderSuggestions(out, r.sess.Suggestions())
	}
}

// errorMarks underlines the clauses of text that do not validate, or
// returns "" when all do.
func errorMarks(s *schema.Schema, text string) string {
	spans := querylang.Highlight(s, text)
	if !querylang.HasError(spans) {
		return ""
	}
	var sb strings.Builder
	for _, sp := range spans {
		mark := " "
		if sp.Role == querylang.RoleError {
			mark = "^"
		}
		sb.WriteString(strings.Repeat(mark, len(sp.Text)))
	}
	return strings.TrimRight(sb.String(), " ")
}

func (r *REPL) isRange(field string) bool {
	rule, ok := r.sess.Schema().Lookup(field)
	return ok && rule.ValueType == schema.Range
}

func tokenText(tok querylang.Token) string {
	if s := querylang.SerializeToken(tok); s != "" {
		return s
	}
	return tok.Key + string(tok.Operator) + "..."
}

func boundsText(b duration.Bounds) string {
	lo, hi := "0", "any"
	if b.Min > 0 {
		lo = duration.Format(b.Min)
	}
	if b.Max < duration.Ceiling {
		hi = duration.Format(b.Max)
	}
	return lo + " .. " + hi
}

// renderSuggestions numbers the selectable items; section headers are
// printed unnumbered.
func (r *REPL) renderSuggestions(out *strings.Builder, items []suggest.Suggestion) {
	if len(items) == 0 {
		out.WriteString("no suggestions\n")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	n := 0
	for _, it := range items {
		if it.Kind == suggest.KindSectionHeader {
			fmt.Fprintf(tw, "\t-- %s --\t\t\n", it.Label)
			continue
		}
		n++
		var flags []string
		if it.Selected {
			flags = append(flags, "selected")
		}
		if it.Count > 0 {
			flags = append(flags, fmt.Sprintf("%d runs", it.Count))
		}
		fmt.Fprintf(tw, "%3d\t%s\t%s\t%s\n", n, it.Kind, it.Preview(), strings.Join(flags, ", "))
	}
	_ = tw.Flush()
}
