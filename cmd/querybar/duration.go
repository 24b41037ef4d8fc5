package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"querybar/internal/duration"
)

func newDurationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duration",
		Short: "Duration literal helpers",
	}
	cmd.AddCommand(newDurationParseCmd(), newDurationFormatCmd())
	return cmd
}

func newDurationParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <literal>",
		Short:   "Parse a duration literal or comparison",
		Example: "  querybar duration parse 1.5h\n  querybar duration parse '>=5min'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			var op string
			d, ok := duration.Parse(text)
			if !ok {
				c, cok := duration.ParseComparison(text)
				if !cok {
					return fmt.Errorf("%q is not a duration (try 30s, 5min, 1.5h, >5min)", text)
				}
				op, d = string(c.Op), c.Duration
			}

			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(struct {
					Input        string `json:"input"`
					Operator     string `json:"operator,omitempty"`
					Milliseconds int64  `json:"milliseconds"`
					Display      string `json:"display"`
					Literal      string `json:"literal"`
				}{text, op, d.Milliseconds(), duration.Format(d), duration.Literal(d)})
			}
			pairs := [][2]string{{"Input", text}}
			if op != "" {
				pairs = append(pairs, [2]string{"Operator", op})
			}
			pairs = append(pairs,
				[2]string{"Milliseconds", strconv.FormatInt(d.Milliseconds(), 10)},
				[2]string{"Display", duration.Format(d)},
				[2]string{"Literal", duration.Literal(d)},
			)
			p.kv(pairs)
			return nil
		},
	}
}

func newDurationFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "format <milliseconds|go-duration>",
		Short:   "Format a duration for display",
		Example: "  querybar duration format 90000\n  querybar duration format 1h30m",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d time.Duration
			if ms, err := strconv.ParseInt(args[0], 10, 64); err == nil {
				d = time.Duration(ms) * time.Millisecond
			} else {
				pd, perr := time.ParseDuration(args[0])
				if perr != nil {
					return fmt.Errorf("%q is neither milliseconds nor a Go duration", args[0])
				}
				d = pd
			}
			if d < 0 {
				return fmt.Errorf("negative duration %s", args[0])
			}

			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(map[string]string{"display": duration.Format(d), "literal": duration.Literal(d)})
			}
			p.line("%s", duration.Format(d))
			return nil
		},
	}
}
