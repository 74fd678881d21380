// Package cli implements the agent-tools subcommands.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// loggerFromCmd builds the slog logger for one command invocation.
// The --verbose persistent flag raises the level to Debug.
func loggerFromCmd(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, err := cmd.Root().PersistentFlags().GetBool("verbose"); err == nil && verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
