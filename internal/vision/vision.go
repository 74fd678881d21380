// Package vision provides wrapper clients for external image-analysis
// APIs. Each client performs a single synchronous request per call and
// maps the provider's response into a uniform Result. There are no
// retries and no streaming.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Request describes one image-analysis call.
type Request struct {
	// ImagePath is the local file to analyze. It is read before any
	// network activity.
	ImagePath string `json:"image_path"`

	// Prompt is the instruction for the analysis.
	Prompt string `json:"prompt"`

	// Model overrides the client's default model when non-empty.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the response length when positive.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Result is the normalized outcome of one analysis call.
type Result struct {
	Description      string          `json:"description"`
	Model            string          `json:"model"`
	Provider         string          `json:"provider"`
	RequestID        string          `json:"request_id"`
	PromptTokens     int             `json:"prompt_tokens,omitempty"`
	CompletionTokens int             `json:"completion_tokens,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// Client is the capability contract shared by all providers.
type Client interface {
	// AnalyzeImage reads the image from disk, issues one request to the
	// provider, and returns the normalized result.
	AnalyzeImage(ctx context.Context, req Request) (*Result, error)

	// Provider returns the short provider name (e.g. "ollama").
	Provider() string
}

// ProviderError is a non-success response from a provider API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// TimeoutError reports that a provider call exceeded its network deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s", e.Provider, e.Timeout)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
