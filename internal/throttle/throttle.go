package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryosukesatoh/book-newsletter/internal/config"
)

// Throttler paces successive requests to the generation endpoint. Wait
// blocks until the next request may go out or ctx is done.
type Throttler interface {
	Wait(ctx context.Context) error
}

// New creates a throttler based on the configuration
func New(cfg config.ThrottleConfig) (Throttler, error) {
	switch cfg.Type {
	case "fixed":
		return NewFixed(cfg.Interval), nil
	case "rate":
		return NewTokenBucket(cfg.RequestsPerMinute, cfg.Burst), nil
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("throttle: unsupported type %q", cfg.Type)
	}
}

// Fixed sleeps a constant interval on every Wait. It does not measure
// remaining quota.
type Fixed struct {
	Interval time.Duration
}

func NewFixed(interval time.Duration) *Fixed {
	return &Fixed{Interval: interval}
}

func (f *Fixed) Wait(ctx context.Context) error {
	if f.Interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TokenBucket allows requestsPerMinute on average with the given burst.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(requestsPerMinute float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(requestsPerMinute / 60)
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

func (b *TokenBucket) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// None never waits.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
