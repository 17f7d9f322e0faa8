// Package gemini generates explanation text with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/doctorados/internal/clients/llmerr"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel     = "gemini-2.0-flash"
	DefaultMaxTokens = 500
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("gemini: missing api key")

// Config configures a Client.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client wraps a genai client bound to one model.
type Client struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	log         *zap.Logger
}

// New validates cfg and creates the underlying genai client.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:      gc,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: float32(cfg.Temperature),
		log:         log.With(zap.String("service", "gemini")),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GenerateText sends user with system as the system instruction and returns
// the concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   c.maxTokens,
		Temperature:       genai.Ptr(c.temperature),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", translateError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates: %w", llmerr.ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// translateError maps genai API errors onto llmerr.HTTPError so callers can
// classify them the same way for every provider.
func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llmerr.HTTPError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llmerr.HTTPError{Provider: "gemini", StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini: generate content: %w", err)
}
