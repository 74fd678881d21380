package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"github.com/clawinfra/agent-tools/internal/config"
)

const (
	// DefaultOllamaHost is used when OLLAMA_HOST is not set.
	DefaultOllamaHost = "http://127.0.0.1:11434"

	// DefaultOllamaModel is the vision-capable model used when the
	// request does not name one.
	DefaultOllamaModel = "kimi-k2.5:cloud"

	// ollamaTimeout bounds one chat round trip. Cloud relays can take a
	// while on large images.
	ollamaTimeout = 180 * time.Second
)

// OllamaClient analyzes images through an Ollama host, either a local
// daemon or the Ollama Cloud relay.
type OllamaClient struct {
	client       *api.Client
	host         string
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewOllamaClient creates a client for the given host. A bare
// "host:port" value is treated as http. Empty arguments select the
// local default host and the default model.
func NewOllamaClient(host, defaultModel string, logger *slog.Logger) (*OllamaClient, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if defaultModel == "" {
		defaultModel = DefaultOllamaModel
	}

	return &OllamaClient{
		client:       api.NewClient(u, &http.Client{Timeout: ollamaTimeout}),
		host:         strings.TrimRight(host, "/"),
		defaultModel: defaultModel,
		timeout:      ollamaTimeout,
		logger:       logger.With("component", "vision-ollama"),
	}, nil
}

// NewOllamaClientFromEnv creates a client from OLLAMA_HOST. The host
// falls back to the local default, so construction never fails on a
// missing variable.
func NewOllamaClientFromEnv(logger *slog.Logger) (*OllamaClient, error) {
	return NewOllamaClient(config.Get("OLLAMA_HOST", ""), "", logger)
}

func (c *OllamaClient) Provider() string { return "ollama" }

// AnalyzeImage implements Client with a single non-streaming chat call.
// The image travels as an attachment on the user message.
func (c *OllamaClient) AnalyzeImage(ctx context.Context, req Request) (*Result, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	img, _, err := readImage(req.ImagePath)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	c.logger.Debug("analyze image",
		"request_id", requestID,
		"model", model,
		"host", c.host,
		"image", req.ImagePath,
		"bytes", len(img),
	)

	stream := false
	chatReq := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{{
			Role:    "user",
			Content: req.Prompt,
			Images:  []api.ImageData{img},
		}},
		Stream: &stream,
	}
	if req.MaxTokens > 0 {
		chatReq.Options = map[string]any{"num_predict": req.MaxTokens}
	}

	var last api.ChatResponse
	err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	raw, err := json.Marshal(last)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}

	c.logger.Debug("analysis complete",
		"request_id", requestID,
		"tokens_in", last.PromptEvalCount,
		"tokens_out", last.EvalCount,
	)

	return &Result{
		Description:      last.Message.Content,
		Model:            model,
		Provider:         c.Provider(),
		RequestID:        requestID,
		PromptTokens:     last.PromptEvalCount,
		CompletionTokens: last.EvalCount,
		Raw:              raw,
	}, nil
}

// mapError converts SDK and transport failures into the typed errors
// callers branch on.
func (c *OllamaClient) mapError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return &ProviderError{Provider: c.Provider(), StatusCode: statusErr.StatusCode, Message: msg}
	}
	if isTimeout(err) {
		return &TimeoutError{Provider: c.Provider(), Timeout: c.timeout}
	}
	return fmt.Errorf("ollama request: %w", err)
}
