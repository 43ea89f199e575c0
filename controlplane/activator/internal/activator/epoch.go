package activator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// EpochEvent is emitted once per epoch boundary.
type EpochEvent struct {
	NewEpoch  uint64
	Slot      uint64
	Timestamp time.Time
}

// SlotSource reports the current ledger slot.
type SlotSource func(ctx context.Context) (uint64, error)

// EpochMonitor derives epochs from the slot height (fixed slots per epoch)
// and emits an EpochEvent whenever the epoch advances. Events drive scheduled
// jobs only; reconciliation never depends on them.
type EpochMonitor struct {
	log           *slog.Logger
	clock         clockwork.Clock
	slots         SlotSource
	slotsPerEpoch uint64
	interval      time.Duration

	lastEpoch uint64
	seeded    bool
	events    chan EpochEvent
}

func NewEpochMonitor(log *slog.Logger, clock clockwork.Clock, slots SlotSource, slotsPerEpoch uint64, interval time.Duration) *EpochMonitor {
	return &EpochMonitor{
		log:           log,
		clock:         clock,
		slots:         slots,
		slotsPerEpoch: slotsPerEpoch,
		interval:      interval,
		events:        make(chan EpochEvent, 1),
	}
}

func (m *EpochMonitor) Events() <-chan EpochEvent { return m.events }

func (m *EpochMonitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.tick(ctx)
		}
	}
}

func (m *EpochMonitor) tick(ctx context.Context) {
	slot, err := m.slots(ctx)
	if err != nil {
		m.log.Debug("epoch monitor: failed to get slot", "error", err)
		return
	}
	epoch := slot / m.slotsPerEpoch
	if !m.seeded {
		m.seeded = true
		m.lastEpoch = epoch
		return
	}
	if epoch == m.lastEpoch {
		return
	}
	m.lastEpoch = epoch
	event := EpochEvent{NewEpoch: epoch, Slot: slot, Timestamp: m.clock.Now()}
	m.log.Info("epoch boundary", "epoch", event.NewEpoch, "slot", event.Slot)
	select {
	case m.events <- event:
	default:
		// Slow consumer keeps only the latest boundary.
		select {
		case <-m.events:
		default:
		}
		m.events <- event
	}
}
