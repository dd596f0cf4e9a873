package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// ErrMissingAPIKey is returned by NewGemini when no key is configured.
var ErrMissingAPIKey = errors.New("gemini api key is not configured")

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// Gemini answers prompts through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.model
}

// Reply sends the prompt as a single user turn.
func (g *Gemini) Reply(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
