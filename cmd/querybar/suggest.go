package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"querybar/internal/querylang"
	"querybar/internal/schema"
	"querybar/internal/suggest"
)

func newSuggestCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [input]",
		Short: "List dropdown suggestions for input",
		Long: `List the dropdown suggestions for the text in the input box.

--query holds the tokens already committed. --edit names a field whose
token is being edited; its existing token from --query is used when there
is one. Recent durations come from the recent store.`,
		Example: `  querybar suggest stat
  querybar suggest --query 'status:failed' --edit status
  querybar suggest --edit duration '>4'
  querybar suggest --edit branch --counts branch=main:40,branch=dev:3 ma`,
		Args: cobra.MaximumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			edit, _ := cmd.Flags().GetString("edit")
			negate, _ := cmd.Flags().GetBool("negate")
			countSpecs, _ := cmd.Flags().GetStringSlice("counts")

			s := e.schema.Current()
			counts, err := parseCounts(s, countSpecs)
			if err != nil {
				return err
			}
			req := suggest.Request{
				Tokens:          querylang.Parse(s, e.ids(), query),
				ValueCounts:     counts,
				RecentDurations: e.recentDurations(cmd.Context()),
				NegateAll:       negate,
			}
			if len(args) == 1 {
				req.Input = args[0]
			}
			if edit != "" {
				tok, rest, err := editingToken(s, e.ids(), req.Tokens, edit)
				if err != nil {
					return err
				}
				req.Editing = &tok
				req.Tokens = rest
			}
			return printSuggestions(newPrinter(cmd), suggest.Generate(s, req))
		}),
	}
	cmd.Flags().String("query", "", "committed query")
	cmd.Flags().String("edit", "", "field being edited")
	cmd.Flags().Bool("negate", false, "hold the negate-all modifier")
	cmd.Flags().StringSlice("counts", nil, "known values as field=value[:count]")
	return cmd
}

// editingToken takes the token for field out of tokens, or starts a new one.
func editingToken(s *schema.Schema, ids querylang.IDGenerator, tokens []querylang.Token, field string) (querylang.Token, []querylang.Token, error) {
	rule, ok := s.Lookup(field)
	if !ok {
		return querylang.Token{}, nil, fmt.Errorf("%w: %q", querylang.ErrUnknownField, field)
	}
	for i, tok := range tokens {
		if tok.Key == rule.Name {
			tok.IsBuilding = true
			rest := append(tokens[:i:i], tokens[i+1:]...)
			return tok, rest, nil
		}
	}
	tok := querylang.Token{ID: ids.NextID(), Key: rule.Name, Operator: rule.DefaultOperator(), IsBuilding: true}
	return tok, tokens, nil
}

// parseCounts reads "field=value[:count]" specs. A missing count means 1.
func parseCounts(s *schema.Schema, entries []string) (map[string]map[string]int, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]int)
	for _, entry := range entries {
		field, rest, ok := strings.Cut(entry, "=")
		if !ok || rest == "" {
			return nil, fmt.Errorf("count %q: want field=value[:count]", entry)
		}
		rule, ok := s.Lookup(field)
		if !ok {
			return nil, fmt.Errorf("count %q: %w", entry, querylang.ErrUnknownField)
		}
		value, n := rest, 1
		if i := strings.LastIndexByte(rest, ':'); i > 0 {
			c, err := strconv.Atoi(rest[i+1:])
			if err != nil || c < 0 {
				return nil, fmt.Errorf("count %q: bad count %q", entry, rest[i+1:])
			}
			value, n = rest[:i], c
		}
		if out[rule.Name] == nil {
			out[rule.Name] = make(map[string]int)
		}
		out[rule.Name][value] += n
	}
	return out, nil
}

func printSuggestions(p *printer, items []suggest.Suggestion) error {
	if p.isJSON() {
		type item struct {
			suggest.Suggestion
			Key string `json:"key"`
		}
		out := make([]item, len(items))
		for i, it := range items {
			out[i] = item{it, it.Key()}
		}
		return p.json(out)
	}
	if len(items) == 0 {
		p.line("no suggestions")
		return nil
	}
	var rows [][]string
	n := 0
	for _, it := range items {
		if it.Kind == suggest.KindSectionHeader {
			rows = append(rows, []string{"", "--", it.Label, "", ""})
			continue
		}
		n++
		var flags []string
		if it.Selected {
			flags = append(flags, "selected")
		}
		if it.Count > 0 {
			flags = append(flags, strconv.Itoa(it.Count))
		}
		rows = append(rows, []string{strconv.Itoa(n), string(it.Kind), it.Preview(), it.Label, strings.Join(flags, ",")})
	}
	p.table([]string{"#", "KIND", "CLAUSE", "LABEL", "FLAGS"}, rows)
	return nil
}
