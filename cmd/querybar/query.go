package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"querybar/internal/querylang"
	"querybar/internal/schema"
)

var errHighlight = errors.New("query has clauses that do not validate")

func newParseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a query into tokens",
		Long:  "Parse a query into tokens. Clauses that do not parse are listed as dropped; parsing itself never fails.",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			res := querylang.ParseDetailed(e.schema.Current(), e.ids(), text)

			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(struct {
					Tokens  []querylang.Token `json:"tokens"`
					Dropped []string          `json:"dropped"`
					Query   string            `json:"query"`
				}{nonNil(res.Tokens), nonNil(res.Dropped), querylang.Serialize(res.Tokens)})
			}

			var rows [][]string
			for _, tok := range res.Tokens {
				values := "*"
				if !tok.IsWildcard {
					parts := make([]string, len(tok.Values))
					for i, v := range tok.Values {
						parts[i] = v.String()
					}
					values = strings.Join(parts, ", ")
				}
				rows = append(rows, []string{tok.ID, tok.Key, string(tok.Operator), values})
			}
			p.table([]string{"ID", "FIELD", "OP", "VALUES"}, rows)
			for _, d := range res.Dropped {
				p.line("dropped: %q", d)
			}
			return nil
		}),
	}
}

func newFormatCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "format <query>",
		Short: "Print a query in canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			tokens := querylang.Parse(e.schema.Current(), e.ids(), strings.Join(args, " "))
			p := newPrinter(cmd)
			q := querylang.Serialize(tokens)
			if p.isJSON() {
				return p.json(map[string]string{"query": q})
			}
			p.line("%s", q)
			return nil
		}),
	}
}

func newValidateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <input>",
		Short: "Check query input for syntax errors, or check a value against a query",
		Long: `Check query input for syntax errors.

With --field and --add, the argument is an existing query instead, and the
command reports whether the value may be added to that field's token.`,
		Example: `  querybar validate 'stauts:failed'
  querybar validate --field status --add -failed 'status:failed'`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			field, _ := cmd.Flags().GetString("field")
			add, _ := cmd.Flags().GetString("add")
			text := strings.Join(args, " ")
			if field != "" || add != "" {
				return validateValue(cmd, e.schema.Current(), e.ids(), text, field, add)
			}
			return validateSyntax(cmd, e.schema.Current(), text)
		}),
	}
	cmd.Flags().String("field", "", "field whose token receives the value")
	cmd.Flags().String("add", "", "value to add, with a leading - to negate")
	return cmd
}

func validateSyntax(cmd *cobra.Command, s *schema.Schema, text string) error {
	p := newPrinter(cmd)
	serr := querylang.ValidateSyntax(s, text)
	if p.isJSON() {
		if err := p.json(struct {
			Valid bool                   `json:"valid"`
			Error *querylang.SyntaxError `json:"error,omitempty"`
		}{serr == nil, serr}); err != nil {
			return err
		}
	} else if serr == nil {
		p.line("ok")
	}
	if serr != nil {
		return serr
	}
	return nil
}

func validateValue(cmd *cobra.Command, s *schema.Schema, ids querylang.IDGenerator, query, field, add string) error {
	if field == "" || add == "" {
		return fmt.Errorf("--field and --add go together")
	}
	rule, ok := s.Lookup(field)
	if !ok {
		return fmt.Errorf("%w: %q", querylang.ErrUnknownField, field)
	}
	values := querylang.ParseValues(rule, add)
	if len(values) != 1 {
		return fmt.Errorf("%q is not a single %s value", add, rule.Name)
	}
	v := values[0]

	var verr error
	tok := querylang.Token{Key: rule.Name, Operator: rule.DefaultOperator()}
	for _, t := range querylang.Parse(s, ids, query) {
		if t.Key == rule.Name {
			tok = t
			break
		}
	}
	if tok.IsWildcard {
		// Apply rejects every value on a wildcard token.
		_, _, verr = querylang.Apply(tok, v, rule, querylang.Add)
	} else {
		verr = querylang.ValidateAddValue(tok.Values, v, rule)
	}
	p := newPrinter(cmd)
	if p.isJSON() {
		out := struct {
			Valid       bool             `json:"valid"`
			Kind        string           `json:"type,omitempty"`
			Message     string           `json:"message,omitempty"`
			Conflicting *querylang.Value `json:"conflicting,omitempty"`
		}{Valid: verr == nil}
		if ve, ok := verr.(*querylang.ValueError); ok {
			out.Kind, out.Message, out.Conflicting = string(ve.Kind), ve.Message, ve.Conflicting
		}
		if err := p.json(out); err != nil {
			return err
		}
	} else if verr == nil {
		p.line("ok: %s may be added to %s", v, rule.Name)
	}
	return verr
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func newHighlightCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "highlight <query>",
		Short: "Split a query into highlighted spans",
		Long:  "Split a query into highlighted spans. Clauses that fail validation come back as error spans and make the command fail.",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			spans := querylang.Highlight(e.schema.Current(), strings.Join(args, " "))
			p := newPrinter(cmd)
			if p.isJSON() {
				if err := p.json(nonNil(spans)); err != nil {
					return err
				}
			} else {
				var rows [][]string
				for _, sp := range spans {
					if sp.Role == querylang.RoleWhitespace {
						continue
					}
					rows = append(rows, []string{string(sp.Role), sp.Text})
				}
				p.table([]string{"ROLE", "TEXT"}, rows)
			}
			if querylang.HasError(spans) {
				return errHighlight
			}
			return nil
		}),
	}
}
