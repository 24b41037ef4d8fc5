// Command querybar drives the query bar engine from the command line.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"querybar/internal/logging"
)

var version = "dev"

func main() {
	// Create base logger with ComponentFilterHandler for dynamic log level control.
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug, // Allow all levels; filtering done by ComponentFilterHandler
	})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)

	rootCmd := newRootCmd(filterHandler, os.Stdin, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Log records go through filter, whose
// levels are set from the resolved settings before each command runs.
func newRootCmd(filter *logging.ComponentFilterHandler, in io.Reader, out io.Writer) *cobra.Command {
	logger := slog.New(filter)

	rootCmd := &cobra.Command{
		Use:           "querybar",
		Short:         "Structured query bar engine",
		Long:          "Parse, format, validate and complete field:value queries, or drive an interactive query bar session.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().String("home", "", "home directory (default: platform config dir)")
	rootCmd.PersistentFlags().String("config", "", "settings file (default: <home>/config.yaml)")
	rootCmd.PersistentFlags().String("schema", "", "schema file, YAML or JSON (default: <home>/schema.yaml if present, else built-in)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSlice("debug", nil, "components to log at debug level (e.g. editor,schema)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")

	env := &env{logger: logger, filter: filter}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(
		newParseCmd(env),
		newFormatCmd(env),
		newValidateCmd(env),
		newHighlightCmd(env),
		newSuggestCmd(env),
		newDurationCmd(),
		newSchemaCmd(env),
		newReplCmd(env),
		versionCmd,
	)
	return rootCmd
}
