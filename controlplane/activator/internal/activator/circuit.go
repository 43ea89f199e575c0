package activator

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// circuitBreaker gates submissions for a single entity. It opens after
// threshold consecutive failures, stays open for the cooldown, then lets a
// single half-open probe through; the probe's outcome closes or reopens it.
type circuitBreaker struct {
	clock     clockwork.Clock
	threshold int
	cooldown  time.Duration

	failures int
	openedAt time.Time
	open     bool
	probing  bool
}

func newCircuitBreaker(clock clockwork.Clock, threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{clock: clock, threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a submission may proceed. While open, only the first
// call after the cooldown elapses is allowed, as the half-open probe.
func (b *circuitBreaker) Allow() bool {
	if !b.open {
		return true
	}
	if b.probing {
		return false
	}
	if b.clock.Since(b.openedAt) < b.cooldown {
		return false
	}
	b.probing = true
	return true
}

func (b *circuitBreaker) Success() {
	b.failures = 0
	b.open = false
	b.probing = false
}

func (b *circuitBreaker) Failure() {
	if b.probing {
		// Failed probe reopens for another cooldown.
		b.probing = false
		b.openedAt = b.clock.Now()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = b.clock.Now()
	}
}
