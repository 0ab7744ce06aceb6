package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/book-newsletter/internal/config"
)

func TestFixedWaitsInterval(t *testing.T) {
	f := NewFixed(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, f.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixedZeroIntervalReturnsImmediately(t *testing.T) {
	f := NewFixed(0)

	start := time.Now()
	require.NoError(t, f.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestFixedHonorsCancellation(t *testing.T) {
	f := NewFixed(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucketBurstIsFree(t *testing.T) {
	b := NewTokenBucket(60, 3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenBucketBlocksPastBurst(t *testing.T) {
	// one request per minute: the second Wait cannot be satisfied in time
	b := NewTokenBucket(1, 1)
	require.NoError(t, b.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, b.Wait(ctx))
}

func TestNoneNeverWaits(t *testing.T) {
	require.NoError(t, None{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, None{}.Wait(ctx), context.Canceled)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ThrottleConfig
		want any
	}{
		{"fixed", config.ThrottleConfig{Type: "fixed", Interval: time.Second}, &Fixed{}},
		{"rate", config.ThrottleConfig{Type: "rate", RequestsPerMinute: 30, Burst: 2}, &TokenBucket{}},
		{"none", config.ThrottleConfig{Type: "none"}, None{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := New(tt.cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, th)
		})
	}

	_, err := New(config.ThrottleConfig{Type: "adaptive"})
	assert.Error(t, err)
}
