package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/registry"
)

// NewListCmd creates the "list" subcommand.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered tools and their availability",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	cmd.Flags().Bool("available", false, "Only show tools that are currently configured")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	onlyAvailable, _ := cmd.Flags().GetBool("available")
	out := cmd.OutOrStdout()

	reg := registry.Default()
	tools := reg.List(onlyAvailable)

	fmt.Fprintf(out, "🛠️  Agent tools (%d registered, %d shown)\n\n", len(reg.Names()), len(tools))

	for _, d := range tools {
		marker := "❌"
		if d.Available() {
			marker = "✅"
		}
		fmt.Fprintf(out, "%s %s\n", marker, d.Name)
		fmt.Fprintf(out, "   %s\n", d.Description)
		fmt.Fprintf(out, "   Client:   %s\n", d.Client)
		fmt.Fprintf(out, "   Requires: %s\n\n", strings.Join(d.RequiresEnv, ", "))
	}

	return nil
}
