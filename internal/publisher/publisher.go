package publisher

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a publisher is missing the settings it
// needs to deliver. Nothing is sent in that case.
var ErrNotConfigured = errors.New("publisher: not configured")

// Edition is one finished newsletter ready for delivery.
type Edition struct {
	RunID   string
	Title   string
	Subject string
	Summary string
	Body    string
}

// Publisher delivers an edition to some output destination.
type Publisher interface {
	Publish(ctx context.Context, edition *Edition) error
}
