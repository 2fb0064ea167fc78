// Package gemini implements image description with the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

const systemPrompt = `You write prompts for a children's image-to-video studio.
Describe the picture in one short, friendly sentence in Simplified Chinese,
naming the main subject, the setting and the mood. Do not add any preamble.`

const userPrompt = "请用一句话描述这张图片。"

// contentGenerator is the subset of genai.Models used by Describer.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds Describer settings.
type Config struct {
	Model        string
	Timeout      time.Duration
	MaxDimension int
}

// Describer captions images with a Gemini model.
type Describer struct {
	models contentGenerator
	config Config
	logger *zap.Logger
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// NewDescriber creates a describer using client.
func NewDescriber(client *genai.Client, cfg Config, logger *zap.Logger) *Describer {
	return newDescriber(client.Models, cfg, logger)
}

func newDescriber(models contentGenerator, cfg Config, logger *zap.Logger) *Describer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Describer{
		models: models,
		config: cfg,
		logger: logger.Named("gemini-describer"),
	}
}

// Describe implements generation.Describer. Large images are downscaled
// before they are sent.
func (d *Describer) Describe(ctx context.Context, image *generation.ImagePayload) (string, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	data, mimeType := image.Data, image.MediaType
	if d.config.MaxDimension > 0 {
		thumb, thumbType, err := image.Thumbnail(d.config.MaxDimension)
		if err != nil {
			d.logger.Debug("sending original image", zap.String("name", image.Name), zap.Error(err))
		} else {
			data, mimeType = thumb, thumbType
		}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			{Text: userPrompt},
		},
	}}

	start := time.Now()
	resp, err := d.models.GenerateContent(ctx, d.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	d.logger.Debug("image described",
		zap.String("model", d.config.Model),
		zap.Int("bytes_sent", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// Compile-time check
var _ generation.Describer = (*Describer)(nil)
