package internal

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delay is a randomized wait window
type Delay struct {
	Min time.Duration
	Max time.Duration
}

var (
	RetryBackoff      = Delay{Min: 2 * time.Second, Max: 5 * time.Second}
	AudioRetryBackoff = Delay{Min: 3 * time.Second, Max: 8 * time.Second}
	ArticleRetryDelay = Delay{Min: 1 * time.Second, Max: 3 * time.Second}
	VideoItemDelay    = Delay{Min: 1 * time.Second, Max: 3 * time.Second}
	FeedItemDelay     = Delay{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
	ProcessItemDelay  = Delay{Min: 2 * time.Second, Max: 4 * time.Second}
)

// Widen grows the upper bound by one window width per attempt after the first
func (d Delay) Widen(attempt int) Delay {
	if attempt <= 1 {
		return d
	}
	width := d.Max - d.Min
	return Delay{Min: d.Min, Max: d.Max + time.Duration(attempt-1)*width}
}

// Pacer sleeps between upstream calls
type Pacer interface {
	Wait(ctx context.Context, d Delay)
}

// RandomPacer sleeps a uniformly random duration inside the window. It is
// safe for concurrent use.
type RandomPacer struct{}

func NewRandomPacer() *RandomPacer {
	return &RandomPacer{}
}

// Pick returns a duration in [d.Min, d.Max]
func (p *RandomPacer) Pick(d Delay) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int64N(int64(d.Max-d.Min)+1))
}

func (p *RandomPacer) Wait(ctx context.Context, d Delay) {
	wait := p.Pick(d)
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// NoopPacer never sleeps
type NoopPacer struct{}

func (NoopPacer) Wait(context.Context, Delay) {}
