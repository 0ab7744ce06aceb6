package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/ryosukesatoh/book-newsletter/internal/logging"
)

// Connector builds the underlying langchaingo model.
type Connector func(ctx context.Context) (llms.Model, error)

// ModelGenerator adapts any langchaingo model to Generator. The model is
// built on the first Generate call and reused afterwards; a failed build is
// retried on the next call.
type ModelGenerator struct {
	name    string
	connect Connector
	logger  *log.Logger

	mu    sync.Mutex
	model llms.Model
}

// NewGemini builds a Google AI (Gemini) generator. No client is created
// until the first request, so a missing API key surfaces as per-call failures.
func NewGemini(apiKey, model string, maxTokens int, logger *log.Logger) *ModelGenerator {
	opts := geminiOptions(apiKey, model, maxTokens)
	return NewLazyModelGenerator("gemini", func(ctx context.Context) (llms.Model, error) {
		return googleai.New(ctx, opts...)
	}, logger)
}

func geminiOptions(apiKey, model string, maxTokens int) []googleai.Option {
	opts := []googleai.Option{
		googleai.WithDefaultModel(model),
	}
	if maxTokens > 0 {
		opts = append(opts, googleai.WithDefaultMaxTokens(maxTokens))
	}
	if apiKey != "" {
		opts = append(opts, googleai.WithAPIKey(apiKey))
	}
	return opts
}

func NewModelGenerator(name string, model llms.Model, logger *log.Logger) *ModelGenerator {
	g := NewLazyModelGenerator(name, func(context.Context) (llms.Model, error) {
		return model, nil
	}, logger)
	g.model = model
	return g
}

func NewLazyModelGenerator(name string, connect Connector, logger *log.Logger) *ModelGenerator {
	return &ModelGenerator{
		name:    name,
		connect: connect,
		logger:  logging.OrDiscard(logger),
	}
}

func (g *ModelGenerator) client(ctx context.Context) (llms.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		return g.model, nil
	}
	model, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	g.model = model
	return model, nil
}

func (g *ModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model, err := g.client(ctx)
	if err != nil {
		g.logger.Error("Failed to create generation client", "provider", g.name, "err", err)
		return "", fmt.Errorf("%s: failed to create client: %w", g.name, err)
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, model, prompt)
	if err != nil {
		g.logger.Error("Generation request failed", "provider", g.name, "err", err)
		return "", fmt.Errorf("%s: request failed: %w", g.name, err)
	}
	if strings.TrimSpace(text) == "" {
		g.logger.Error("Generation returned no text", "provider", g.name)
		return "", fmt.Errorf("%s: %w", g.name, ErrEmptyResponse)
	}
	return text, nil
}
