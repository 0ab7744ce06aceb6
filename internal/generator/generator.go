package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/book-newsletter/internal/config"
)

// ErrEmptyResponse is returned when the endpoint answers without any text.
var ErrEmptyResponse = errors.New("generator: empty response")

// ErrUnsupportedGeneratorType is returned when the configured generator type is not supported
var ErrUnsupportedGeneratorType = errors.New("generator: unsupported generator type")

// Generator sends one prompt to a remote text-generation endpoint. Each call
// is a single best-effort request; callers decide what a failure means.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New creates a generator based on the configuration. Credentials are not
// checked here.
func New(cfg *config.GeneratorConfig, logger *log.Logger) (Generator, error) {
	switch cfg.Type {
	case "gemini":
		return NewGemini(cfg.APIKey, cfg.Model, cfg.MaxTokens, logger), nil
	case "anthropic":
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeneratorType, cfg.Type)
	}
}
