package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/clawinfra/agent-tools/internal/registry"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "") // registers restore
	os.Unsetenv(key)
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	data := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	path := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs a subcommand with captured output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestJSONCommand(t *testing.T) {
	unsetEnv(t, "OLLAMA_HOST")
	t.Setenv("VENICE_API_KEY", "test-key")

	out, err := execute(t, NewJSONCmd())
	if err != nil {
		t.Fatal(err)
	}

	var summary registry.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if summary.Total != 2 {
		t.Errorf("total = %d, want 2", summary.Total)
	}
	if summary.Available != 1 {
		t.Errorf("available = %d, want 1", summary.Available)
	}
}

func TestListCommand(t *testing.T) {
	unsetEnv(t, "OLLAMA_HOST")
	t.Setenv("VENICE_API_KEY", "test-key")

	out, err := execute(t, NewListCmd())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "vision.ollama") || !strings.Contains(out, "vision.venice") {
		t.Errorf("full listing missing tools:\n%s", out)
	}

	out, err = execute(t, NewListCmd(), "--available")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "vision.ollama") {
		t.Errorf("unavailable tool shown with --available:\n%s", out)
	}
	if !strings.Contains(out, "vision.venice") {
		t.Errorf("available tool missing with --available:\n%s", out)
	}
}

func TestCheckCommandFails(t *testing.T) {
	unsetEnv(t, "OLLAMA_HOST")
	unsetEnv(t, "VENICE_API_KEY")

	out, err := execute(t, NewCheckCmd())
	if err == nil {
		t.Fatal("expected failure with no env configured")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 1 {
		t.Errorf("exit code = %d, want 1", exitErr.Code)
	}
	if !strings.Contains(out, "not set") {
		t.Errorf("expected missing-variable marker:\n%s", out)
	}
}

func TestCheckCommandPasses(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://127.0.0.1:11434")
	t.Setenv("VENICE_API_KEY", "sk-verylongsecretvalue")

	out, err := execute(t, NewCheckCmd())
	if err != nil {
		t.Fatalf("expected success: %v", err)
	}
	if strings.Contains(out, "sk-verylongsecretvalue") {
		t.Errorf("credential printed unmasked:\n%s", out)
	}
	if !strings.Contains(out, "sk-verylongs...") {
		t.Errorf("expected masked credential:\n%s", out)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"kimi-k2.5:cloud","created_at":"2026-01-01T00:00:00Z",` +
			`"message":{"role":"assistant","content":"Two birds on a wire."},` +
			`"done":true,"done_reason":"stop","prompt_eval_count":5,"eval_count":7}`))
	}))
	defer srv.Close()

	t.Setenv("OLLAMA_HOST", srv.URL)
	unsetEnv(t, "VENICE_API_KEY")

	out, err := execute(t, NewAnalyzeCmd(), writeTestImage(t), "What do you see?", "--timeout", "5s")
	if err != nil {
		t.Fatalf("analyze failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Two birds on a wire.") {
		t.Errorf("description missing from output:\n%s", out)
	}
	if !strings.Contains(out, "vision.ollama") {
		t.Errorf("tool name missing from output:\n%s", out)
	}
	if !strings.Contains(out, "tokens: 5 in, 7 out") {
		t.Errorf("token summary missing from output:\n%s", out)
	}
}

func TestAnalyzeUnknownTool(t *testing.T) {
	_, err := execute(t, NewAnalyzeCmd(), writeTestImage(t), "--tool", "vision.nope")
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}

	var unknown *registry.UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %T: %v", err, err)
	}
}

func TestAnalyzeNoToolsAvailable(t *testing.T) {
	unsetEnv(t, "OLLAMA_HOST")
	unsetEnv(t, "VENICE_API_KEY")

	_, err := execute(t, NewAnalyzeCmd(), writeTestImage(t))
	if err == nil {
		t.Fatal("expected error with no tools available")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 1 {
		t.Errorf("exit code = %d, want 1", exitErr.Code)
	}
}
