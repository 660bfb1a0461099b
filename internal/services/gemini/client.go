// Package gemini backs intent extraction and brief generation with the
// Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Generator produces text for a prompt. When asJSON is set the model is asked
// for an application/json response.
type Generator interface {
	Generate(ctx context.Context, prompt string, asJSON bool) (string, error)
}

// Client wraps a genai client bound to one model.
type Client struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithModel sets the model to use.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) ClientOption {
	return func(c *Client) {
		c.temperature = &t
	}
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c := &Client{client: gc, model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, asJSON bool) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: c.temperature}
	if asJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("no content generated")
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no content generated")
	}
	return b.String(), nil
}

var _ Generator = (*Client)(nil)
