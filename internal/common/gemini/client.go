// Package gemini wraps the Google GenAI SDK behind a small Generator interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"immigration-portal/internal/common/config"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("EMPTY_RESPONSE")

// Image is an inline binary part sent alongside a prompt.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generator produces model text for a prompt, optionally with images.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateWithImages(ctx context.Context, prompt string, images ...Image) (string, error)
}

// Client calls Gemini through google.golang.org/genai.
type Client struct {
	client      *genai.Client
	model       string
	visionModel string
	timeout     time.Duration
}

// NewClient creates a GenAI client for the configured models.
func NewClient(ctx context.Context, cfg config.APIsConfig) (*Client, error) {
	if cfg.GenAI.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GenAI.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{
		client:      client,
		model:       cfg.GenAI.Model,
		visionModel: cfg.GenAI.VisionModel,
		timeout:     config.GetDuration(cfg.GenAI.Timeout),
	}, nil
}

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	return c.generate(ctx, c.model, contents)
}

func (c *Client) GenerateWithImages(ctx context.Context, prompt string, images ...Image) (string, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	return c.generate(ctx, c.visionModel, contents)
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// StripCodeFence removes a surrounding ```json ... ``` block, which models
// often add around JSON answers.
func StripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
