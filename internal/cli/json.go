package cli

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewJSONCmd creates the "json" subcommand: a machine-readable
// discovery dump for calling programs.
func NewJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "json",
		Short: "Dump tool discovery data as JSON",
		Args:  cobra.NoArgs,
		RunE:  runJSON,
	}
}

func runJSON(cmd *cobra.Command, _ []string) error {
	summary := registry.Default().Discover()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode discovery summary: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
