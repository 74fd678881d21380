package monitor

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

var statusGlyphs = map[Status]string{
	StatusHealthy: "🟢",
	StatusCrashed: "🔴",
	StatusStalled: "🟡",
	StatusSuspect: "🟠",
}

// Render writes a fixed-width health report. With details, the task
// preview column replaces the session key and issues columns.
func Render(w io.Writer, healths []Health, details bool) {
	if len(healths) == 0 {
		fmt.Fprintln(w, "✅ No active sessions found")
		return
	}

	fmt.Fprintf(w, "\n🤖 Session Health Report (%d total)\n\n", len(healths))

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	if details {
		fmt.Fprintln(tw, "  \tID\tKind\tStatus\tIdle\tTokens\tModel\tTask Preview")
	} else {
		fmt.Fprintln(tw, "  \tID\tKind\tStatus\tIdle\tTokens\tModel\tChannel/Key\tIssues")
	}

	for _, h := range healths {
		glyph, ok := statusGlyphs[h.Status]
		if !ok {
			glyph = "⚪"
		}

		tokens := "-"
		if h.TotalTokens != nil {
			tokens = fmt.Sprintf("%d", *h.TotalTokens)
		}

		if details {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				glyph, h.ID, h.Kind, h.Status, FormatDuration(h.Idle), tokens, h.Model, h.TaskPreview)
			continue
		}

		issues := "-"
		if len(h.Issues) > 0 {
			issues = strings.Join(h.Issues, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			glyph, h.ID, h.Kind, h.Status, FormatDuration(h.Idle), tokens, h.Model,
			truncate(h.Display, 28), issues)
	}

	tw.Flush()
}
