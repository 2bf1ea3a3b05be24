package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4096

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	models      []string
	prompt      string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		models:      append([]string(nil), cfg.Models...),
		prompt:      cfg.Prompt,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger.With("component", "inference-client"),
	}
}

func EncodeImage(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

// Stream tries each configured model in order and returns the token stream of
// the first one that accepts the request.
func (c *Client) Stream(ctx context.Context, imageB64 string) (*Stream, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if imageB64 == "" {
		return nil, ErrNoImage
	}

	exhausted := &ExhaustedError{}
	for _, model := range c.models {
		c.logger.Debug("trying model", "model", model)

		stream, err := c.open(ctx, model, imageB64)
		if err == nil {
			c.logger.Debug("model accepted request", "model", model)
			return stream, nil
		}

		c.logger.Warn("model failed", "model", model, "error", err)
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Model: model, Err: err})

		if ctx.Err() != nil {
			break
		}
	}

	return nil, exhausted
}

func (c *Client) open(ctx context.Context, model, imageB64 string) (*Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: c.prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imageB64}},
			},
		}},
		Stream:      true,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	return newStream(model, resp.Body), nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
