package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/book-newsletter/internal/config"
	"github.com/ryosukesatoh/book-newsletter/internal/generator"
	"github.com/ryosukesatoh/book-newsletter/internal/logging"
	"github.com/ryosukesatoh/book-newsletter/internal/newsletter"
	"github.com/ryosukesatoh/book-newsletter/internal/prompt"
	"github.com/ryosukesatoh/book-newsletter/internal/publisher"
	"github.com/ryosukesatoh/book-newsletter/internal/runner"
	"github.com/ryosukesatoh/book-newsletter/internal/source"
	"github.com/ryosukesatoh/book-newsletter/internal/summarizer"
	"github.com/ryosukesatoh/book-newsletter/internal/throttle"
)

type flags struct {
	configPath string
	input      string
	title      string
	schedule   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "book-newsletter",
		Short: "Summarize a book and email it as a newsletter",
		Long: `book-newsletter reads a book transcript, summarizes it chunk by chunk
with a text-generation model, writes a promotional newsletter from the
summary, and emails it to the configured recipient.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", config.DefaultPath, "path to config file")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "path to the book text file")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "book title used in the newsletter")
	cmd.Flags().StringVar(&f.schedule, "schedule", "", "cron expression; run repeatedly instead of once")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error("book-newsletter failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func execute(ctx context.Context, f flags) error {
	cfg, err := config.Load(f.configPath,
		config.WithInput(f.input),
		config.WithTitle(f.title),
		config.WithSchedule(f.schedule),
		config.WithLogLevel(f.logLevel),
	)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)

	r, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	// Single-run mode: run the pipeline once and exit
	if cfg.Schedule == "" {
		_, err := r.Run(ctx)
		return err
	}

	return runScheduled(ctx, cfg.Schedule, r, logger)
}

func buildRunner(cfg *config.Config, logger *log.Logger) (*runner.Runner, error) {
	gen, err := generator.New(&cfg.Generator, logger)
	if err != nil {
		return nil, err
	}

	th, err := throttle.New(cfg.Throttle)
	if err != nil {
		return nil, err
	}

	prompts := prompt.Default()

	sum := summarizer.New(gen, th, prompts, summarizer.Options{
		ChunkSize:         cfg.Summarizer.ChunkSize,
		ChunkWords:        cfg.Summarizer.ChunkWords,
		FinalSummaryWords: cfg.Summarizer.FinalSummaryWords,
	}, logger)

	writer := newsletter.NewWriter(gen, prompts, logger)

	var pubs []publisher.Publisher
	if !cfg.Delivery.Quiet {
		pubs = append(pubs, publisher.NewStdoutPublisher())
	}
	transport := publisher.NewSMTPSTransport(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.From, cfg.Email.Password)
	pubs = append(pubs, publisher.NewEmailPublisher(
		cfg.Email.From,
		cfg.Email.Password,
		cfg.Email.To,
		cfg.Email.HTML,
		transport,
		logger,
	))

	return runner.New(runner.Options{
		Input:        cfg.Input,
		Title:        cfg.Title,
		SkipDegraded: cfg.Delivery.SkipDegraded,
	}, source.NewFileLoader(logger), sum, writer, pubs, logger), nil
}

func runScheduled(ctx context.Context, schedule string, r *runner.Runner, logger *log.Logger) error {
	c := cron.New(cron.WithChain(scheduleChain(logger).Then))
	_, err := c.AddFunc(schedule, func() {
		logger.Info("Cron triggered, running pipeline...")
		if _, err := r.Run(ctx); err != nil {
			logger.Error("Scheduled run failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to set up cron schedule %q: %w", schedule, err)
	}
	c.Start()
	logger.Info("Scheduled pipeline", "cron", schedule)

	<-ctx.Done()
	logger.Info("Shutting down...")
	<-c.Stop().Done()
	logger.Info("Shutdown complete")
	return nil
}

// scheduleChain drops a tick while the previous run is still going, so runs
// never overlap.
func scheduleChain(logger *log.Logger) cron.Chain {
	return cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger}))
}

// cronLogger routes cron's own messages (such as skipped ticks) to the charm logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
