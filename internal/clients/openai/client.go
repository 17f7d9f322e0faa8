// Package openai is a minimal Chat Completions client used to generate
// university explanations.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/doctorados/internal/clients/llmerr"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultModel      = "gpt-3.5-turbo"
	DefaultMaxTokens  = 500
	DefaultMaxRetries = 2

	providerName    = "openai"
	completionsPath = "/v1/chat/completions"
	maxBackoff      = 10 * time.Second
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("openai: missing api key")

// Config configures a Client. Zero values select the defaults above,
// except Temperature, which is sent as given.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
	HTTPClient  *http.Client
}

// Client calls the Chat Completions endpoint.
type Client struct {
	log         *zap.Logger
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	maxRetries  int
	httpClient  *http.Client
	// initialBackoff is shortened by tests.
	initialBackoff time.Duration
}

// New validates cfg and returns a Client.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		log:            log.With(zap.String("service", "openai")),
		baseURL:        baseURL,
		apiKey:         apiKey,
		model:          model,
		maxTokens:      maxTokens,
		temperature:    cfg.Temperature,
		maxRetries:     maxRetries,
		httpClient:     hc,
		initialBackoff: time.Second,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateText sends a system and a user message and returns the first
// choice's content.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var resp chatResponse
	if err := c.do(ctx, completionsPath, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(llmerr.ErrMalformedResponse, "openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, errors.Wrap(err, "openai: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "openai: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.Wrap(err, "openai: send request")
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, errors.Wrap(readErr, "openai: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &llmerr.HTTPError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, path string, body, out any) error {
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return errors.Wrapf(llmerr.ErrMalformedResponse, "openai: decode: %v", uErr)
			}
			return nil
		}

		if !retryable(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := retryAfter(resp, backoff)
		c.log.Warn("openai request retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
			zap.Duration("sleep", sleepFor),
			zap.Error(err))

		t := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}

	return errors.New("openai: retry loop exhausted")
}

func retryable(err error) bool {
	var he *llmerr.HTTPError
	if errors.As(err, &he) {
		return he.Retryable()
	}
	// Cancellation and deadlines are final; other transport errors are not.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// retryAfter honours a Retry-After header in seconds, capped at maxBackoff.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	d := fallback
	if resp != nil {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs >= 0 {
			d = time.Duration(secs) * time.Second
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
