// Package monitor checks OpenClaw agent sessions for hung, stalled, or
// crashed sub-agents. It queries the openclaw CLI rather than any API,
// so it works against whatever gateway the operator is running.
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultStuckThreshold is the idle time after which a session is
// marked suspect.
const DefaultStuckThreshold = 10 * time.Minute

// Runner executes the openclaw CLI and returns its stdout. Tests
// substitute a fake so no subprocess runs.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func execRunner(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "openclaw", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("openclaw %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Session is one entry from "openclaw sessions list --json".
type Session struct {
	Key            string `json:"key"`
	SessionKey     string `json:"sessionKey"` // older CLI versions
	SessionID      string `json:"sessionId"`
	Kind           string `json:"kind"` // "main", "group", "isolated"
	UpdatedAt      int64  `json:"updatedAt"` // epoch milliseconds
	TotalTokens    *int64 `json:"totalTokens"` // nil when never reported
	SystemSent     bool   `json:"systemSent"`
	AbortedLastRun bool   `json:"abortedLastRun"`
	Model          string `json:"model"`
}

// Status classifies a session's health.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusCrashed Status = "crashed" // last run aborted
	StatusStalled Status = "stalled" // never started
	StatusSuspect Status = "suspect" // idle beyond the stuck threshold
)

// Health is the evaluated state of one session.
type Health struct {
	Key         string
	ID          string
	Kind        string
	Display     string
	Status      Status
	Idle        time.Duration
	TotalTokens *int64
	Model       string
	Issues      []string
	LastUpdate  string
	TaskPreview string
}

// Options select which sessions are fetched and how they are judged.
type Options struct {
	SubagentsOnly  bool
	ChannelsOnly   bool
	ActiveMinutes  int           // 0 means 60
	StuckThreshold time.Duration // 0 means DefaultStuckThreshold
	Details        bool          // fetch task previews from history
}

// Monitor fetches and evaluates session health.
type Monitor struct {
	run    Runner
	logger *slog.Logger
}

// New creates a monitor backed by the real openclaw CLI.
func New(logger *slog.Logger) *Monitor {
	return NewWithRunner(execRunner, logger)
}

// NewWithRunner creates a monitor with a custom CLI runner.
func NewWithRunner(run Runner, logger *slog.Logger) *Monitor {
	return &Monitor{run: run, logger: logger.With("component", "monitor")}
}

// Sessions lists active sessions, most recently updated first.
func (m *Monitor) Sessions(ctx context.Context, opts Options) ([]Session, error) {
	active := opts.ActiveMinutes
	if active <= 0 {
		active = 60
	}

	args := []string{"sessions", "list", "--active-minutes", strconv.Itoa(active)}
	if opts.SubagentsOnly {
		args = append(args, "--kinds", "isolated")
	} else if opts.ChannelsOnly {
		args = append(args, "--kinds", "group")
	}
	args = append(args, "--json")

	out, err := m.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	sessions := parseSessions(out)

	// Post-filter: --kinds support varies between CLI versions.
	filtered := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if opts.SubagentsOnly && s.Kind != "isolated" {
			continue
		}
		if opts.ChannelsOnly && s.Kind != "group" {
			continue
		}
		filtered = append(filtered, s)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].UpdatedAt > filtered[j].UpdatedAt
	})

	m.logger.Debug("sessions listed", "total", len(sessions), "kept", len(filtered))
	return filtered, nil
}

// parseSessions accepts either a {"sessions": [...]} document or
// line-delimited JSON. Unparsable lines are skipped.
func parseSessions(out []byte) []Session {
	var wrapper struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(out, &wrapper); err == nil && wrapper.Sessions != nil {
		return wrapper.Sessions
	}

	var sessions []Session
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var s Session
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

// Report evaluates all matching sessions. With opts.Details, each
// session's recent history is fetched for a task preview.
func (m *Monitor) Report(ctx context.Context, opts Options) ([]Health, error) {
	sessions, err := m.Sessions(ctx, opts)
	if err != nil {
		return nil, err
	}

	threshold := opts.StuckThreshold
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}

	now := time.Now()
	healths := make([]Health, 0, len(sessions))
	for _, s := range sessions {
		h := CheckHealth(s, now, threshold)
		if opts.Details {
			msgs, err := m.History(ctx, h.Key, 3)
			if err != nil {
				m.logger.Debug("history fetch failed", "key", h.Key, "error", err)
			} else {
				h.TaskPreview = TaskPreview(msgs)
				if h.Model == "-" {
					h.Model = shortModel(lastModel(msgs))
				}
			}
		}
		healths = append(healths, h)
	}
	return healths, nil
}

// CheckHealth classifies one session as observed at the given time.
func CheckHealth(s Session, now time.Time, stuckThreshold time.Duration) Health {
	key := s.Key
	if key == "" {
		key = s.SessionKey
	}
	if key == "" {
		key = "unknown"
	}

	id := s.SessionID
	if id == "" {
		id = "-"
	} else if len(id) > 8 {
		id = id[:8]
	}

	kind := s.Kind
	if kind == "" {
		kind = "unknown"
	}

	idle := now.Sub(time.UnixMilli(s.UpdatedAt))

	var issues []string
	status := StatusHealthy

	if s.AbortedLastRun {
		issues = append(issues, "crashed/aborted")
		status = StatusCrashed
	}
	if !s.SystemSent && (s.TotalTokens == nil || *s.TotalTokens == 0) {
		issues = append(issues, "never started (no system)")
		status = StatusStalled
	}
	if idle > 5*time.Minute && s.TotalTokens != nil && *s.TotalTokens > 0 {
		issues = append(issues, "idle "+FormatDuration(idle))
	}
	if idle > stuckThreshold {
		issues = append(issues, fmt.Sprintf("STUCK >%dmin", int(stuckThreshold.Minutes())))
		status = StatusSuspect
	}

	return Health{
		Key:         key,
		ID:          id,
		Kind:        kind,
		Display:     displayKey(key),
		Status:      status,
		Idle:        idle,
		TotalTokens: s.TotalTokens,
		Model:       shortModel(s.Model),
		Issues:      issues,
		LastUpdate:  time.UnixMilli(s.UpdatedAt).Format("15:04:05"),
		TaskPreview: "-",
	}
}

// Message is one entry from "openclaw sessions history --json".
// Content is either a plain string or a list of typed blocks.
type Message struct {
	Role    string              `json:"role"`
	Model   string              `json:"model"`
	Content jsoniter.RawMessage `json:"content"`
}

// History returns recent messages for a session.
func (m *Monitor) History(ctx context.Context, key string, limit int) ([]Message, error) {
	out, err := m.run(ctx, "sessions", "history", key, "--limit", strconv.Itoa(limit), "--json")
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(out, &wrapper); err != nil {
		return nil, fmt.Errorf("parse history for %s: %w", key, err)
	}
	return wrapper.Messages, nil
}

// TaskPreview extracts the first user message as a short single-line
// preview. Sub-agents spawned via sessions_spawn carry their task
// instruction in that message.
func TaskPreview(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		text := contentText(msg.Content)
		if text == "" {
			continue
		}
		preview := strings.ReplaceAll(text, "\n", " ")
		if len(preview) > 80 {
			preview = preview[:80] + "..."
		}
		return preview
	}
	return "-"
}

// lastModel returns the model of the most recent assistant message.
func lastModel(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" && messages[i].Model != "" {
			return messages[i].Model
		}
	}
	return "-"
}

// contentText flattens a message content union into plain text.
func contentText(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// displayKey shortens a session key for table display.
func displayKey(key string) string {
	switch {
	case strings.Contains(key, "discord:channel:"):
		tail := key[strings.LastIndex(key, "discord:channel:")+len("discord:channel:"):]
		return truncate(tail, 35)
	case strings.Contains(key, "cron:"):
		tail := key[strings.LastIndex(key, "cron:")+len("cron:"):]
		return "cron:" + truncate(tail, 30)
	case strings.Contains(key, "main"):
		return "main"
	default:
		return truncate(key, 40)
	}
}

// shortModel trims provider prefixes and over-long model names.
func shortModel(model string) string {
	if model == "" || model == "-" {
		return "-"
	}
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}
	if len(model) > 18 {
		model = model[:15] + "..."
	}
	return model
}

// FormatDuration renders an idle duration compactly: 45s, 3.2m, 1.5h.
func FormatDuration(d time.Duration) string {
	minutes := d.Minutes()
	switch {
	case minutes < 1:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case minutes < 60:
		return fmt.Sprintf("%.1fm", minutes)
	default:
		return fmt.Sprintf("%.1fh", minutes/60)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
