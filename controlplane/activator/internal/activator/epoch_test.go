package activator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestActivator_EpochMonitor_EmitsBoundaryEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	var slot atomic.Uint64
	slot.Store(100)

	const slotsPerEpoch = 1000
	monitor := NewEpochMonitor(slog.Default(), clock,
		func(context.Context) (uint64, error) { return slot.Load(), nil },
		slotsPerEpoch, time.Second)
	go monitor.Run(ctx)

	// First observation seeds the epoch without emitting.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	select {
	case event := <-monitor.Events():
		t.Fatalf("unexpected event at startup: %+v", event)
	default:
	}

	// Same epoch, no event.
	slot.Store(900)
	clock.Advance(time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	select {
	case event := <-monitor.Events():
		t.Fatalf("unexpected event within epoch: %+v", event)
	default:
	}

	slot.Store(2100)
	clock.Advance(time.Second)
	select {
	case event := <-monitor.Events():
		require.Equal(t, uint64(2), event.NewEpoch)
		require.Equal(t, uint64(2100), event.Slot)
		require.Equal(t, clock.Now(), event.Timestamp)
	case <-ctx.Done():
		t.Fatal("timed out waiting for epoch event")
	}
}

func TestActivator_EpochMonitor_KeepsLatestWhenConsumerIsSlow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	var slot atomic.Uint64
	monitor := NewEpochMonitor(slog.Default(), clock,
		func(context.Context) (uint64, error) { return slot.Load(), nil },
		1000, time.Second)

	monitor.tick(ctx) // seed at epoch 0

	// A stale undelivered event is replaced by the newest boundary.
	monitor.events <- EpochEvent{NewEpoch: 99}
	slot.Store(5000)
	monitor.tick(ctx)

	select {
	case event := <-monitor.Events():
		require.Equal(t, uint64(5), event.NewEpoch)
	case <-ctx.Done():
		t.Fatal("timed out waiting for epoch event")
	}
}
