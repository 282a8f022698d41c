package dispatch

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff produces exponentially growing, capped, jittered reconnect delays.
type Backoff struct {
	// Base is the first delay.
	Base time.Duration
	// Max caps the grown delay before jitter.
	Max time.Duration

	mu      sync.Mutex
	attempt int
	rng     *rand.Rand
}

// NewBackoff creates a backoff with the given bounds.
func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max < base {
		max = base
	}
	return &Backoff{
		Base: base,
		Max:  max,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay before the next attempt and advances the counter.
// The delay doubles per attempt up to Max, with up to 25% random jitter so
// reconnecting producers do not stampede a recovering hub.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.Base << b.attempt
	if d > b.Max || d <= 0 {
		d = b.Max
	} else {
		b.attempt++
	}

	jitter := time.Duration(b.rng.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// Reset restarts the progression after a successful connect.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempt = 0
	b.mu.Unlock()
}
