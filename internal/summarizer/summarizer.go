package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/book-newsletter/internal/generator"
	"github.com/ryosukesatoh/book-newsletter/internal/logging"
	"github.com/ryosukesatoh/book-newsletter/internal/prompt"
	"github.com/ryosukesatoh/book-newsletter/internal/throttle"
)

// Hierarchical summarizes long text map-reduce style: every fixed-width
// chunk is summarized on its own, then the chunk summaries are refined into
// one final summary.
type Hierarchical struct {
	gen      generator.Generator
	throttle throttle.Throttler
	prompts  *prompt.Renderer
	opts     Options
	logger   *log.Logger
}

func New(gen generator.Generator, th throttle.Throttler, prompts *prompt.Renderer, opts Options, logger *log.Logger) *Hierarchical {
	opts.applyDefaults()
	if th == nil {
		th = throttle.None{}
	}
	if prompts == nil {
		prompts = prompt.Default()
	}
	return &Hierarchical{
		gen:      gen,
		throttle: th,
		prompts:  prompts,
		opts:     opts,
		logger:   logging.OrDiscard(logger),
	}
}

// Split partitions text left to right into chunks of at most size runes.
// Chunks never overlap and concatenate back to text. A non-positive size
// uses DefaultChunkSize.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}

// Summarize runs the chunk pass then the refinement pass. Generation
// failures never surface as errors: a failed chunk is skipped and a failed
// refinement yields a placeholder with Degraded set. The only error is
// context cancellation.
func (h *Hierarchical) Summarize(ctx context.Context, text string) (*Summary, error) {
	h.logger.Info("Starting hierarchical summarization...")

	chunks := Split(text, h.opts.ChunkSize)
	summary := &Summary{Chunks: len(chunks)}

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 {
			if err := h.throttle.Wait(ctx); err != nil {
				return nil, err
			}
		}
		h.logger.Info("Summarizing chunk", "chunk", i+1, "of", len(chunks))

		p, err := h.prompts.Chunk(chunk, h.opts.ChunkWords)
		if err != nil {
			h.logger.Warn("Could not build chunk prompt", "chunk", i+1, "err", err)
			continue
		}
		out, err := h.gen.Generate(ctx, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			h.logger.Warn("Could not get summary for chunk", "chunk", i+1, "err", err)
			continue
		}
		summaries = append(summaries, out)
	}
	summary.Summarized = len(summaries)

	if len(summaries) == 0 {
		summary.Text = NoChunkSummaries
		summary.Degraded = true
		return summary, nil
	}

	combined := strings.Join(summaries, "\n\n")
	h.logger.Info("Combined chunk summaries", "count", len(summaries), "chars", utf8.RuneCountInString(combined))

	p, err := h.prompts.Final(combined, h.opts.FinalSummaryWords)
	if err != nil {
		h.logger.Error("Could not build final summary prompt", "err", err)
		summary.Text = NoFinalSummary
		summary.Degraded = true
		return summary, nil
	}
	final, err := h.gen.Generate(ctx, p)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		h.logger.Error("Could not generate final book summary", "err", err)
		summary.Text = NoFinalSummary
		summary.Degraded = true
		return summary, nil
	}

	summary.Text = final
	return summary, nil
}
