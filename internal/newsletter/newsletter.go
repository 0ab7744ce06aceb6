package newsletter

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/book-newsletter/internal/generator"
	"github.com/ryosukesatoh/book-newsletter/internal/logging"
	"github.com/ryosukesatoh/book-newsletter/internal/prompt"
)

// NoContent is the newsletter body when generation failed.
const NoContent = "Could not generate newsletter content."

// Newsletter is a promotional write-up about one book. Body is whatever the
// model returned; its structure is not checked.
type Newsletter struct {
	Title    string
	Body     string
	Degraded bool
}

type Writer struct {
	gen     generator.Generator
	prompts *prompt.Renderer
	logger  *log.Logger
}

func NewWriter(gen generator.Generator, prompts *prompt.Renderer, logger *log.Logger) *Writer {
	if prompts == nil {
		prompts = prompt.Default()
	}
	return &Writer{
		gen:     gen,
		prompts: prompts,
		logger:  logging.OrDiscard(logger),
	}
}

// Generate issues exactly one generation request. Failures degrade to the
// NoContent placeholder; only context cancellation is returned as an error.
func (w *Writer) Generate(ctx context.Context, summary, title string) (*Newsletter, error) {
	w.logger.Info("Generating newsletter content...", "title", title)

	nl := &Newsletter{Title: title}

	p, err := w.prompts.Newsletter(summary, title)
	if err != nil {
		w.logger.Error("Could not build newsletter prompt", "err", err)
		nl.Body, nl.Degraded = NoContent, true
		return nl, nil
	}

	body, err := w.gen.Generate(ctx, p)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		w.logger.Error("Could not generate newsletter content", "err", err)
		nl.Body, nl.Degraded = NoContent, true
		return nl, nil
	}

	nl.Body = body
	return nl, nil
}
