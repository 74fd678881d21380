package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/config"
	"github.com/clawinfra/agent-tools/internal/monitor"
)

const watchInterval = 30 * time.Second

// NewMonitorCmd creates the "monitor" subcommand.
func NewMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check sub-agent sessions for hung, stalled, or crashed agents",
		Args:  cobra.NoArgs,
		RunE:  runMonitor,
	}

	cmd.Flags().Bool("watch", false, "Continuous monitoring mode (refreshes every 30s)")
	cmd.Flags().Bool("subagents-only", false, "Show only isolated (spawned) sub-agents")
	cmd.Flags().Bool("channels-only", false, "Show only channel sessions (kind: group)")
	cmd.Flags().Bool("details", false, "Show task prompt preview and model for each agent")
	cmd.Flags().Int("stuck-threshold", 0, "Idle minutes before marking as stuck (default: 10)")
	cmd.Flags().Int("active-minutes", 0, "Only include sessions active within this window (default: 60)")
	cmd.Flags().String("defaults", "", "Path to an agent-tools.toml with monitor defaults")

	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	subagentsOnly, _ := cmd.Flags().GetBool("subagents-only")
	channelsOnly, _ := cmd.Flags().GetBool("channels-only")
	details, _ := cmd.Flags().GetBool("details")
	stuckMin, _ := cmd.Flags().GetInt("stuck-threshold")
	activeMin, _ := cmd.Flags().GetInt("active-minutes")
	defaultsPath, _ := cmd.Flags().GetString("defaults")

	defaults, err := config.LoadDefaults(defaultsPath)
	if err != nil {
		return err
	}
	if stuckMin == 0 {
		stuckMin = defaults.Monitor.StuckThresholdMin
	}
	if activeMin == 0 {
		activeMin = defaults.Monitor.ActiveMinutes
	}
	if stuckMin <= 0 {
		stuckMin = int(monitor.DefaultStuckThreshold.Minutes())
	}

	opts := monitor.Options{
		SubagentsOnly:  subagentsOnly,
		ChannelsOnly:   channelsOnly,
		ActiveMinutes:  activeMin,
		StuckThreshold: time.Duration(stuckMin) * time.Minute,
		Details:        details,
	}
	if watch && opts.ActiveMinutes == 0 {
		opts.ActiveMinutes = 120
	}

	out := cmd.OutOrStdout()
	m := monitor.New(loggerFromCmd(cmd))

	render := func(ctx context.Context) error {
		healths, err := m.Report(ctx, opts)
		if err != nil {
			return err
		}
		monitor.Render(out, healths, details)
		return nil
	}

	if !watch {
		return render(cmd.Context())
	}

	fmt.Fprintln(out, "👀 Watching sessions (Ctrl+C to exit)...")
	ctx := cmd.Context()
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		if err := render(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "\n⏱️  Last check: %s | Stuck threshold: %s\n",
			time.Now().Format("15:04:05"), monitor.FormatDuration(opts.StuckThreshold))

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n👋 Exiting watch mode.")
			return nil
		case <-ticker.C:
		}
	}
}
