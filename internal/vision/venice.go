package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/clawinfra/agent-tools/internal/config"
)

const (
	// DefaultVeniceBaseURL is Venice's OpenAI-compatible endpoint.
	DefaultVeniceBaseURL = "https://api.venice.ai/api/v1"

	// DefaultVeniceModel is the vision model used when the request does
	// not name one.
	DefaultVeniceModel = "qwen3-vl-235b-a22b"

	veniceTimeout = 120 * time.Second
)

// VeniceClient analyzes images through the Venice AI chat-completions
// API.
type VeniceClient struct {
	client       openai.Client
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewVeniceClient creates a client with an explicit API key. Empty
// baseURL and defaultModel select the production endpoint and the
// default vision model.
func NewVeniceClient(apiKey, baseURL, defaultModel string, logger *slog.Logger) *VeniceClient {
	if baseURL == "" {
		baseURL = DefaultVeniceBaseURL
	}
	if defaultModel == "" {
		defaultModel = DefaultVeniceModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(veniceTimeout),
		// Single round trip per call; failures propagate to the caller.
		option.WithMaxRetries(0),
	)

	return &VeniceClient{
		client:       client,
		defaultModel: defaultModel,
		timeout:      veniceTimeout,
		logger:       logger.With("component", "vision-venice"),
	}
}

// NewVeniceClientFromEnv creates a client from VENICE_API_KEY and the
// optional VENICE_BASE_URL override.
func NewVeniceClientFromEnv(logger *slog.Logger) (*VeniceClient, error) {
	apiKey, err := config.Require("VENICE_API_KEY")
	if err != nil {
		return nil, err
	}
	return NewVeniceClient(apiKey, config.Get("VENICE_BASE_URL", ""), "", logger), nil
}

func (c *VeniceClient) Provider() string { return "venice" }

// AnalyzeImage implements Client with one chat-completions call. The
// image travels as a base64 data URL content part.
func (c *VeniceClient) AnalyzeImage(ctx context.Context, req Request) (*Result, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	img, mediaType, err := readImage(req.ImagePath)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	c.logger.Debug("analyze image",
		"request_id", requestID,
		"model", model,
		"image", req.ImagePath,
		"bytes", len(img),
	)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(img, mediaType),
		}),
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: c.Provider(), Message: "no choices in response"}
	}

	c.logger.Debug("analysis complete",
		"request_id", requestID,
		"tokens_in", resp.Usage.PromptTokens,
		"tokens_out", resp.Usage.CompletionTokens,
	)

	return &Result{
		Description:      resp.Choices[0].Message.Content,
		Model:            resp.Model,
		Provider:         c.Provider(),
		RequestID:        requestID,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		Raw:              json.RawMessage(resp.RawJSON()),
	}, nil
}

// mapError converts SDK and transport failures into the typed errors
// callers branch on.
func (c *VeniceClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &ProviderError{Provider: c.Provider(), StatusCode: apiErr.StatusCode, Message: msg}
	}
	if isTimeout(err) {
		return &TimeoutError{Provider: c.Provider(), Timeout: c.timeout}
	}
	return fmt.Errorf("venice request: %w", err)
}
