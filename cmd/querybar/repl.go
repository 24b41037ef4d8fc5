package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"querybar/internal/editor"
	"querybar/internal/repl"
)

func newReplCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [query]",
		Short: "Drive an interactive query bar session",
		Long: `Drive an interactive query bar session.

Each line is one event (focus, type, select, key tab, ...). The state is
printed after every command; run 'help' inside the REPL for the list.
Committed duration filters are kept in the recent store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			rec, err := e.openRecent(ctx)
			if err != nil {
				return err
			}
			prompt, _ := cmd.Flags().GetBool("prompt")

			ec := editor.Config{
				Schema:       e.schema,
				IDs:          e.ids(),
				Logger:       e.logger,
				BlurGrace:    e.settings.Editor.BlurGrace,
				HintDuration: e.settings.Editor.HintDuration,
			}
			if len(args) == 1 {
				ec.Value = args[0]
			}
			r := repl.New(repl.Config{
				Editor: ec,
				Recent: rec,
				In:     cmd.InOrStdin(),
				Out:    cmd.OutOrStdout(),
				Logger: e.logger,
				Prompt: prompt,
			})
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}),
	}
	cmd.Flags().Bool("prompt", false, "always print the prompt, even when input is not a terminal")
	return cmd
}
