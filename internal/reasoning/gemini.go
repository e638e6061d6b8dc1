package reasoning

// This file implements the Gemini-backed reasoning adapter. It requests
// application/json responses, walks a model fallback chain when a model is
// unavailable, and leaves retry policy to the middleware layer.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/AryaShetye/clarify-md/internal/types"
)

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	// APIKey falls back to the GEMINI_API_KEY then GOOGLE_API_KEY
	// environment variables.
	APIKey string `yaml:"api_key"`
	// Models is the fallback chain, tried in order per request.
	Models []string `yaml:"models"`
	// Temperature keeps extraction output stable across runs.
	Temperature float32 `yaml:"temperature"`
}

// DefaultGeminiConfig returns the free-tier defaults.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Models:      []string{"gemini-1.5-flash", "gemini-1.5-flash-8b"},
		Temperature: 0.2,
	}
}

// GeminiPort adapts the official genai client to types.ReasoningPort.
type GeminiPort struct {
	client      *genai.Client
	models      []string
	temperature float32
	logger      *zap.Logger
}

var _ types.ReasoningPort = (*GeminiPort)(nil)

// NewGeminiPort creates a Gemini-backed reasoning port.
func NewGeminiPort(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiPort, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	models := cfg.Models
	if len(models) == 0 {
		models = DefaultGeminiConfig().Models
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GeminiPort{
		client:      client,
		models:      models,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Name identifies the adapter and its primary model.
func (g *GeminiPort) Name() string {
	return "gemini:" + g.models[0]
}

// Close releases the adapter. The genai client holds no persistent
// connections that need closing.
func (g *GeminiPort) Close() error { return nil }

// Invoke sends one request, trying each model in the fallback chain until
// one answers with recoverable JSON. The context deadline set by the caller
// bounds the whole chain.
func (g *GeminiPort) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	payload, err := buildPayload(req.Prompt, req.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize reasoning input: %w", err)
	}

	temp := g.temperature
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temp,
	}

	var lastErr error
	for _, model := range g.models {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := g.client.Models.GenerateContent(ctx, model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: payload}}}},
			genCfg,
		)
		if err != nil {
			g.logger.Warn("gemini model failed",
				zap.String("model", model),
				zap.String("kind", string(req.Kind)),
				zap.Error(err))
			lastErr = err
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
			len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrInvalidJSON
			continue
		}

		text := resp.Candidates[0].Content.Parts[0].Text
		raw := extractJSON(text)
		if raw == "" {
			lastErr = ErrInvalidJSON
			continue
		}
		return json.RawMessage(raw), nil
	}
	return nil, lastErr
}
