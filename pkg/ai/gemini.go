// Package ai wraps the Gemini API for the text and image chat commands.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrDisabled = errors.New("gemini api key not configured")
	ErrEmpty    = errors.New("empty response from gemini")
)

const systemInstruction = "You are a friendly WhatsApp assistant. Answer concisely in the language of the user."

type Options struct {
	APIKey      string
	Model       string
	ImageModel  string
	Temperature float32
	// BaseURL overrides the API endpoint.
	BaseURL string
}

type Client struct {
	client *genai.Client
	opts   Options
}

// New returns ErrDisabled when no API key is configured.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrDisabled
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "imagen-3.0-generate-002"
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, opts: opts}, nil
}

// Text answers prompt.
func (c *Client) Text(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}

	temp := c.opts.Temperature
	result, err := c.client.Models.GenerateContent(ctx,
		strings.TrimPrefix(c.opts.Model, "models/"),
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemInstruction}},
			},
			Temperature: &temp,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// Image renders prompt and returns the encoded image.
func (c *Client) Image(ctx context.Context, prompt string) ([]byte, error) {
	if c == nil {
		return nil, ErrDisabled
	}

	result, err := c.client.Models.GenerateImages(ctx,
		strings.TrimPrefix(c.opts.ImageModel, "models/"),
		prompt,
		&genai.GenerateImagesConfig{NumberOfImages: 1},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	for _, img := range result.GeneratedImages {
		if img != nil && img.Image != nil && len(img.Image.ImageBytes) > 0 {
			return img.Image.ImageBytes, nil
		}
	}
	return nil, ErrEmpty
}
