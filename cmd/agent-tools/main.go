package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/cli"
	"github.com/clawinfra/agent-tools/internal/config"
)

// Set via ldflags at build time.
var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agent-tools",
		Short: "Discover and run vision tool wrappers for agents",
		Long: `agent-tools provides wrapper clients for external vision APIs
(Venice AI, Ollama Cloud) plus a registry for discovering which
wrappers are configured in the current environment.`,
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Root().PersistentFlags().GetString("env-file")
			if envFile != "" {
				return config.LoadDotenv(envFile)
			}
			return config.LoadDotenvFromCwd()
		},
	}

	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.PersistentFlags().String("env-file", "", "Load environment variables from this file")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("agent-tools version %s\n", version))

	root.AddCommand(cli.NewListCmd())
	root.AddCommand(cli.NewJSONCmd())
	root.AddCommand(cli.NewCheckCmd())
	root.AddCommand(cli.NewAnalyzeCmd())
	root.AddCommand(cli.NewMonitorCmd())

	return root
}
