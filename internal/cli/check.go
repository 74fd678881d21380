package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/registry"
)

// NewCheckCmd creates the "check" subcommand. It exits non-zero when
// any registered tool is missing its environment configuration.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify environment configuration for every tool",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "🔍 Environment Check")
	fmt.Fprintln(out)

	allOK := true
	for _, d := range registry.Default().List(false) {
		for _, key := range d.RequiresEnv {
			value := os.Getenv(key)
			if value != "" {
				fmt.Fprintf(out, "  ✅ %s: %s\n", key, maskValue(value))
				fmt.Fprintf(out, "     → %s ready\n", d.Name)
			} else {
				fmt.Fprintf(out, "  ❌ %s: not set\n", key)
				fmt.Fprintf(out, "     → %s unavailable\n", d.Name)
				allOK = false
			}
			fmt.Fprintln(out)
		}
	}

	if !allOK {
		return exitError(1, "environment check failed")
	}
	return nil
}

// maskValue keeps enough of a value to recognize it without printing
// a whole credential.
func maskValue(value string) string {
	if len(value) > 12 {
		return value[:12] + "..."
	}
	return value
}
