package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayWiden(t *testing.T) {
	d := Delay{Min: 2 * time.Second, Max: 5 * time.Second}
	assert.Equal(t, d, d.Widen(1))
	assert.Equal(t, Delay{Min: 2 * time.Second, Max: 8 * time.Second}, d.Widen(2))
	assert.Equal(t, Delay{Min: 2 * time.Second, Max: 11 * time.Second}, d.Widen(3))
}

func TestRandomPacerPickStaysInWindow(t *testing.T) {
	p := NewRandomPacer()
	d := Delay{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}
	for range 200 {
		got := p.Pick(d)
		assert.GreaterOrEqual(t, got, d.Min)
		assert.LessOrEqual(t, got, d.Max)
	}
	assert.Equal(t, 5*time.Millisecond, p.Pick(Delay{Min: 5 * time.Millisecond, Max: 5 * time.Millisecond}))
}

func TestRandomPacerWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	NewRandomPacer().Wait(ctx, Delay{Min: time.Minute, Max: time.Minute})
	assert.Less(t, time.Since(start), time.Second)
}

func TestRandomPacerConcurrentPick(t *testing.T) {
	p := NewRandomPacer()
	d := Delay{Min: time.Millisecond, Max: 5 * time.Millisecond}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				got := p.Pick(d)
				assert.GreaterOrEqual(t, got, d.Min)
				assert.LessOrEqual(t, got, d.Max)
			}
		})
	}
	wg.Wait()
}
