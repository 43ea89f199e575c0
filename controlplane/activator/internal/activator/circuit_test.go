package activator

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestActivator_CircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	br := newCircuitBreaker(clock, 3, time.Minute)

	require.True(t, br.Allow())
	br.Failure()
	br.Failure()
	require.True(t, br.Allow())
	br.Failure()
	require.False(t, br.Allow())
}

func TestActivator_CircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	br := newCircuitBreaker(clock, 1, time.Minute)

	br.Failure()
	require.False(t, br.Allow())

	// Cooldown not elapsed yet.
	clock.Advance(30 * time.Second)
	require.False(t, br.Allow())

	// One probe is let through, a second is not.
	clock.Advance(31 * time.Second)
	require.True(t, br.Allow())
	require.False(t, br.Allow())
}

func TestActivator_CircuitBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	br := newCircuitBreaker(clock, 1, time.Minute)

	br.Failure()
	clock.Advance(2 * time.Minute)
	require.True(t, br.Allow())

	// The failed probe restarts the cooldown from now.
	br.Failure()
	require.False(t, br.Allow())
	clock.Advance(time.Minute + time.Second)
	require.True(t, br.Allow())
}

func TestActivator_CircuitBreaker_SuccessCloses(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	br := newCircuitBreaker(clock, 1, time.Minute)

	br.Failure()
	clock.Advance(2 * time.Minute)
	require.True(t, br.Allow())
	br.Success()

	require.True(t, br.Allow())
	require.True(t, br.Allow())
}
