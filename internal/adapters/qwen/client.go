// Package qwen calls an OpenAI-compatible chat completion endpoint.
package qwen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/herohuhu666/wanwu/internal/domain"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

var ErrMissingAPIKey = errors.New("qwen api key is not set")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

type Client struct {
	client      *resty.Client
	apiKey      string
	model       string
	visionModel string
}

func New(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	return &Client{client: c, apiKey: cfg.APIKey, model: cfg.Model, visionModel: cfg.VisionModel}
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *domain.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (domain.Completion, error) {
	req := completionRequest{
		Model:       c.model,
		Messages:    make([]message, 0, len(messages)),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	return c.complete(ctx, req)
}

// Describe asks the vision model about the image at imageURL.
func (c *Client) Describe(ctx context.Context, imageURL, prompt string) (domain.Completion, error) {
	req := completionRequest{
		Model: c.visionModel,
		Messages: []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
				{Type: "text", Text: prompt},
			},
		}},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	return c.complete(ctx, req)
}

func (c *Client) complete(ctx context.Context, body completionRequest) (domain.Completion, error) {
	if c.apiKey == "" {
		return domain.Completion{}, ErrMissingAPIKey
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/chat/completions")
	if err != nil {
		return domain.Completion{}, fmt.Errorf("qwen request: %w", err)
	}

	var out completionResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.StatusCode() != http.StatusOK {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return domain.Completion{}, fmt.Errorf("qwen status %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return domain.Completion{}, fmt.Errorf("qwen status %d: %s", resp.StatusCode(), resp.String())
	}
	if decodeErr != nil {
		return domain.Completion{}, fmt.Errorf("decode response: %w", decodeErr)
	}

	completion := domain.Completion{Usage: out.Usage}
	if len(out.Choices) > 0 {
		completion.Content = out.Choices[0].Message.Content
	}
	return completion, nil
}
