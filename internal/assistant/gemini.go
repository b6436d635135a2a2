package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

var (
	errMissingAPIKey = errors.New("gemini: api key is not configured")
	errNoCandidates  = errors.New("gemini: no candidates returned")
)

// GeminiConfig describes how to reach the Gemini API. An empty BaseURL uses the SDK default endpoint.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GeminiClient completes prompts through the Gemini generateContent API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient builds a client. Without an API key the client is still returned and
// every completion fails with a configuration error, so the rest of the service can start.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return &GeminiClient{}, nil
	}

	httpClient := &http.Client{}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Complete sends the prompt as a single user turn and joins the text parts of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errMissingAPIKey
	}
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = DefaultModel
	}

	response, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", response.PromptFeedback.BlockReason)
	}
	if len(response.Candidates) == 0 || response.Candidates[0] == nil {
		return "", errNoCandidates
	}

	candidate := response.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini: empty completion (finish reason %q)", candidate.FinishReason)
	}
	return text.String(), nil
}
