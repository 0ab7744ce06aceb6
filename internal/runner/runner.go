package runner

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ryosukesatoh/book-newsletter/internal/logging"
	"github.com/ryosukesatoh/book-newsletter/internal/newsletter"
	"github.com/ryosukesatoh/book-newsletter/internal/publisher"
	"github.com/ryosukesatoh/book-newsletter/internal/source"
	"github.com/ryosukesatoh/book-newsletter/internal/summarizer"
)

// Stage is how far a run progressed.
type Stage string

const (
	StageLoad       Stage = "load"
	StageSummarize  Stage = "summarize"
	StageNewsletter Stage = "newsletter"
	StageNotify     Stage = "notify"
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) (*summarizer.Summary, error)
}

type NewsletterWriter interface {
	Generate(ctx context.Context, summary, title string) (*newsletter.Newsletter, error)
}

// Report describes what one run did.
type Report struct {
	RunID      string
	Stage      Stage
	Summary    *summarizer.Summary
	Newsletter *newsletter.Newsletter
	// Published counts publishers that delivered without error.
	Published int
	// Skipped is set when delivery was suppressed for a degraded run.
	Skipped bool
	// DeliveryErrors holds per-publisher failures. They never fail the run.
	DeliveryErrors []error
}

type Options struct {
	Input        string
	Title        string
	SkipDegraded bool
}

// Runner orchestrates the load -> summarize -> newsletter -> notify pipeline.
type Runner struct {
	opts       Options
	loader     source.Loader
	summarizer Summarizer
	writer     NewsletterWriter
	publishers []publisher.Publisher
	logger     *log.Logger
}

func New(opts Options, l source.Loader, s Summarizer, w NewsletterWriter, pubs []publisher.Publisher, logger *log.Logger) *Runner {
	return &Runner{
		opts:       opts,
		loader:     l,
		summarizer: s,
		writer:     w,
		publishers: pubs,
		logger:     logging.OrDiscard(logger),
	}
}

// Subject is the email subject line for a newsletter about title.
func Subject(title string) string {
	return fmt.Sprintf("Your Book Newsletter: %s", title)
}

// Run executes the full pipeline once. Only a source failure or context
// cancellation is returned as an error; generation and delivery failures
// are logged and recorded in the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Stage: StageLoad}
	logger := r.logger.With("run", report.RunID)

	logger.Info("Starting book processing", "input", r.opts.Input)
	doc, err := r.loader.Load(ctx, r.opts.Input)
	if err != nil {
		logger.Error("Could not read book content. Exiting.")
		return report, fmt.Errorf("runner: load failed: %w", err)
	}

	report.Stage = StageSummarize
	summary, err := r.summarizer.Summarize(ctx, doc.Text)
	if err != nil {
		return report, fmt.Errorf("runner: summarize failed: %w", err)
	}
	report.Summary = summary
	if summary.Degraded {
		logger.Warn("Summary degraded", "chunks", summary.Chunks, "summarized", summary.Summarized)
	} else {
		logger.Info("Final summary ready", "chunks", summary.Chunks, "summarized", summary.Summarized)
	}

	report.Stage = StageNewsletter
	nl, err := r.writer.Generate(ctx, summary.Text, r.opts.Title)
	if err != nil {
		return report, fmt.Errorf("runner: newsletter failed: %w", err)
	}
	report.Newsletter = nl

	report.Stage = StageNotify
	if r.opts.SkipDegraded && (summary.Degraded || nl.Degraded) {
		logger.Warn("Skipping delivery of degraded newsletter",
			"summary_degraded", summary.Degraded, "newsletter_degraded", nl.Degraded)
		report.Skipped = true
		return report, nil
	}

	edition := &publisher.Edition{
		RunID:   report.RunID,
		Title:   r.opts.Title,
		Subject: Subject(r.opts.Title),
		Summary: summary.Text,
		Body:    nl.Body,
	}

	// Continue with other publishers even if one fails
	for _, pub := range r.publishers {
		logger.Debug("Publishing", "via", fmt.Sprintf("%T", pub))
		if err := pub.Publish(ctx, edition); err != nil {
			publishError := fmt.Errorf("publish via %T failed: %w", pub, err)
			report.DeliveryErrors = append(report.DeliveryErrors, publishError)
			logger.Warn("Delivery failed", "err", publishError)
			continue
		}
		report.Published++
	}

	if len(report.DeliveryErrors) > 0 {
		logger.Info("Pipeline completed with delivery failures",
			"failed", len(report.DeliveryErrors), "publishers", len(r.publishers))
	} else {
		logger.Info("Pipeline completed successfully")
	}
	return report, nil
}
