package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clawinfra/agent-tools/internal/config"
)

func TestVeniceAnalyzeImage(t *testing.T) {
	var gotAuth, gotModel string
	var gotImageURL string
	var gotMaxTokens int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			Model               string `json:"model"`
			MaxCompletionTokens int64  `json:"max_completion_tokens"`
			Messages            []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = req.Model
		gotMaxTokens = req.MaxCompletionTokens
		for _, part := range req.Messages[0].Content {
			if part.Type == "image_url" {
				gotImageURL = part.ImageURL.URL
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,` +
			`"model":"qwen3-vl-235b-a22b",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"A flow diagram."},"finish_reason":"stop"}],` +
			`"usage":{"prompt_tokens":9,"completion_tokens":4,"total_tokens":13}}`))
	}))
	defer srv.Close()

	client := NewVeniceClient("test-key", srv.URL, "", testLogger())

	result, err := client.AnalyzeImage(context.Background(), Request{
		ImagePath: writeTestImage(t),
		Prompt:    "Describe this diagram",
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotModel != DefaultVeniceModel {
		t.Errorf("request model = %q, want default %q", gotModel, DefaultVeniceModel)
	}
	if gotMaxTokens != 256 {
		t.Errorf("max_completion_tokens = %d, want 256", gotMaxTokens)
	}
	if !strings.HasPrefix(gotImageURL, "data:image/png;base64,") {
		t.Errorf("image part is not a PNG data URL: %.40s", gotImageURL)
	}
	if result.Description != "A flow diagram." {
		t.Errorf("unexpected description: %q", result.Description)
	}
	if result.Provider != "venice" {
		t.Errorf("unexpected provider: %q", result.Provider)
	}
	if result.Model != "qwen3-vl-235b-a22b" {
		t.Errorf("unexpected model: %q", result.Model)
	}
	if result.PromptTokens != 9 || result.CompletionTokens != 4 {
		t.Errorf("unexpected token counts: %d/%d", result.PromptTokens, result.CompletionTokens)
	}
}

func TestVeniceProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"authentication_error"}}`))
	}))
	defer srv.Close()

	client := NewVeniceClient("bad-key", srv.URL, "", testLogger())

	_, err := client.AnalyzeImage(context.Background(), Request{
		ImagePath: writeTestImage(t),
		Prompt:    "hi",
	})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if provErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected status: %d", provErr.StatusCode)
	}
	if provErr.Provider != "venice" {
		t.Errorf("unexpected provider: %q", provErr.Provider)
	}
}

func TestVeniceUnreadableImageFailsBeforeNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewVeniceClient("test-key", srv.URL, "", testLogger())

	_, err := client.AnalyzeImage(context.Background(), Request{
		ImagePath: filepath.Join(t.TempDir(), "missing.png"),
		Prompt:    "hi",
	})
	if err == nil {
		t.Fatal("expected error for missing image")
	}
	if hits.Load() != 0 {
		t.Errorf("expected no network call, server saw %d", hits.Load())
	}
}

func TestVeniceTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewVeniceClient("test-key", srv.URL, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.AnalyzeImage(ctx, Request{
		ImagePath: writeTestImage(t),
		Prompt:    "hi",
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestVeniceFromEnvRequiresKey(t *testing.T) {
	t.Setenv("VENICE_API_KEY", "")

	_, err := NewVeniceClientFromEnv(testLogger())
	if err == nil {
		t.Fatal("expected error without VENICE_API_KEY")
	}

	var missing *config.MissingEnvError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingEnvError, got %T: %v", err, err)
	}
	if missing.Key != "VENICE_API_KEY" {
		t.Errorf("unexpected key: %q", missing.Key)
	}
}

func TestVeniceFromEnvBaseURLOverride(t *testing.T) {
	t.Setenv("VENICE_API_KEY", "test-key")
	t.Setenv("VENICE_BASE_URL", "http://127.0.0.1:9999")

	client, err := NewVeniceClientFromEnv(testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if client.defaultModel != DefaultVeniceModel {
		t.Errorf("unexpected default model: %q", client.defaultModel)
	}
}
