package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/config"
	"github.com/clawinfra/agent-tools/internal/registry"
	"github.com/clawinfra/agent-tools/internal/vision"
)

const defaultPrompt = "Describe this image in detail"

// NewAnalyzeCmd creates the "analyze" subcommand.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image> [prompt]",
		Short: "Analyze an image with a configured vision tool",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runAnalyze,
	}

	cmd.Flags().String("tool", "", `Tool identifier, e.g. "vision.ollama" (default: first available)`)
	cmd.Flags().Bool("all", false, "Run every available tool sequentially and compare")
	cmd.Flags().String("model", "", "Override the provider's default model")
	cmd.Flags().Int("max-tokens", 0, "Cap the response length")
	cmd.Flags().Duration("timeout", 3*time.Minute, "Deadline for each provider call")
	cmd.Flags().String("defaults", "", "Path to an agent-tools.toml with per-tool defaults")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	prompt := defaultPrompt
	if len(args) == 2 {
		prompt = args[1]
	}

	toolName, _ := cmd.Flags().GetString("tool")
	all, _ := cmd.Flags().GetBool("all")
	model, _ := cmd.Flags().GetString("model")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	defaultsPath, _ := cmd.Flags().GetString("defaults")

	out := cmd.OutOrStdout()
	logger := loggerFromCmd(cmd)

	defaults, err := config.LoadDefaults(defaultsPath)
	if err != nil {
		return err
	}

	reg := registry.Default()
	var descriptors []*registry.Descriptor
	switch {
	case all:
		descriptors = reg.List(true)
		if len(descriptors) == 0 {
			return exitError(1, "no tools available; run 'agent-tools check'")
		}
	case toolName != "":
		d, err := reg.Get(toolName)
		if err != nil {
			return err
		}
		descriptors = []*registry.Descriptor{d}
	default:
		available := reg.List(true)
		if len(available) == 0 {
			return exitError(1, "no tools available; run 'agent-tools check'")
		}
		descriptors = available[:1]
	}

	fmt.Fprintf(out, "Analyzing: %s\n", imagePath)
	fmt.Fprintf(out, "Prompt: %s\n", prompt)

	failures := 0
	for _, d := range descriptors {
		fmt.Fprintf(out, "%s\n", strings.Repeat("=", 60))

		client, err := d.New(logger)
		if err != nil {
			failures++
			fmt.Fprintf(out, "[%s] failed: %v\n", d.Name, err)
			continue
		}

		req := vision.Request{
			ImagePath: imagePath,
			Prompt:    prompt,
			Model:     model,
			MaxTokens: maxTokens,
		}
		applyDefaults(&req, d.Name, defaults)

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		result, err := client.AnalyzeImage(ctx, req)
		cancel()
		if err != nil {
			failures++
			fmt.Fprintf(out, "[%s] failed: %v\n", d.Name, err)
			continue
		}

		fmt.Fprintf(out, "[%s | %s]\n\n", d.Name, result.Model)
		fmt.Fprintln(out, result.Description)
		fmt.Fprintf(out, "\n(tokens: %d in, %d out)\n", result.PromptTokens, result.CompletionTokens)
	}

	if failures == len(descriptors) {
		return exitError(1, "all tools failed")
	}
	return nil
}

// applyDefaults fills unset request fields from the defaults file.
func applyDefaults(req *vision.Request, toolName string, defaults *config.Defaults) {
	suffix := toolName[strings.LastIndex(toolName, ".")+1:]
	d, ok := defaults.Vision[suffix]
	if !ok {
		return
	}
	if req.Model == "" {
		req.Model = d.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = d.MaxTokens
	}
}
