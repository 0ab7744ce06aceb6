package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdoutPublisher echoes the final summary and newsletter for the operator.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{w: os.Stdout}
}

func NewWriterPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, e *Edition) error {
	rule := strings.Repeat("-", 72)

	var sb strings.Builder
	sb.WriteString("\n--- Final Book Summary ---\n")
	sb.WriteString(e.Summary)
	sb.WriteString("\n" + rule + "\n\n")
	sb.WriteString("--- Generated Newsletter: " + e.Title + " ---\n")
	sb.WriteString(e.Body)
	sb.WriteString("\n" + rule + "\n")

	if _, err := io.WriteString(p.w, sb.String()); err != nil {
		return fmt.Errorf("stdout: failed to write: %w", err)
	}
	return nil
}
