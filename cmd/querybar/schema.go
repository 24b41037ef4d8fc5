package main

import (
	"strings"

	"github.com/spf13/cobra"

	"querybar/internal/schema"
)

func newSchemaCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the field schema in effect",
		Long:  "Show the field schema in effect. --yaml prints a document that can be edited and passed back with --schema.",
		Args:  cobra.NoArgs,
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			s := e.schema.Current()
			p := newPrinter(cmd)

			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				out, err := schema.Encode(s)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if p.isJSON() {
				return p.json(map[string]any{"fields": s.Rules()})
			}

			var rows [][]string
			for _, r := range s.Rules() {
				ops := make([]string, len(r.Operators))
				for i, op := range r.Operators {
					ops[i] = string(op)
				}
				rows = append(rows, []string{
					r.Name, r.Label, string(r.ValueType),
					strings.Join(ops, " "), ruleFlags(r), strings.Join(r.EnumValues, ","),
				})
			}
			p.table([]string{"NAME", "LABEL", "TYPE", "OPERATORS", "FLAGS", "VALUES"}, rows)
			return nil
		}),
	}
	cmd.Flags().Bool("yaml", false, "print as a YAML schema document")
	return cmd
}

func ruleFlags(r schema.FieldRule) string {
	var flags []string
	if r.AllowMultiSelect {
		flags = append(flags, "multi")
	}
	if r.AllowNegation {
		flags = append(flags, "negate")
	}
	if r.IsSingleValue {
		flags = append(flags, "single")
	}
	return strings.Join(flags, ",")
}
