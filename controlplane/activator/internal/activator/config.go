package activator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	dzsdk "github.com/malbeclabs/doublezero-controlplane/sdk/go"
)

const (
	defaultPollInterval      = 10 * time.Second
	defaultInFlightTTL       = 90 * time.Second
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 2 * time.Minute
	defaultSlotsPerEpoch     = 432_000
	defaultTunnelIDRangeFrom = 500
	defaultTunnelIDRangeTo   = 4_000
)

// Submitter sends a signed instruction to the ledger. The sdk executor is the
// production implementation; tests substitute a recorder.
type Submitter interface {
	SubmitInstruction(ctx context.Context, instruction solana.Instruction) error
}

// ExecutorSubmitter adapts the sdk transaction executor to the Submitter
// interface.
type ExecutorSubmitter struct {
	Executor *dzsdk.Executor
}

func (s *ExecutorSubmitter) SubmitInstruction(ctx context.Context, instruction solana.Instruction) error {
	_, _, err := s.Executor.ExecuteTransaction(ctx, instruction, nil)
	return err
}

type Config struct {
	Logger         *slog.Logger
	Serviceability dzsdk.ProgramDataProvider
	Submitter      Submitter

	// SignerPK is the activator authority public key the submitter signs with.
	SignerPK solana.PublicKey

	// WSRPCURL enables the account-update subscription. When empty, or when
	// the subscription drops, the activator falls back to polling at
	// PollInterval.
	WSRPCURL     string
	PollInterval time.Duration

	// InFlightTTL bounds how long a submitted PDA suppresses resubmission
	// while its account update has not arrived yet.
	InFlightTTL time.Duration

	// Circuit breaker: open after BreakerThreshold consecutive failures for
	// an entity, probe again after BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Slots reports the current ledger slot for the epoch monitor. The epoch
	// monitor is disabled when nil.
	Slots SlotSource

	// SlotsPerEpoch drives the epoch monitor's boundary detection.
	SlotsPerEpoch uint64

	// Tunnel ID allocation range, shared by user tunnels (process-wide) and
	// link tunnels (per device).
	TunnelIDRangeFrom uint16
	TunnelIDRangeTo   uint16

	Clock clockwork.Clock
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Serviceability == nil {
		return errors.New("serviceability client is required")
	}
	if c.Submitter == nil {
		return errors.New("submitter is required")
	}
	if c.SignerPK.IsZero() {
		return errors.New("signer public key is required")
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.InFlightTTL <= 0 {
		c.InFlightTTL = defaultInFlightTTL
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = defaultBreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = defaultBreakerCooldown
	}
	if c.SlotsPerEpoch == 0 {
		c.SlotsPerEpoch = defaultSlotsPerEpoch
	}
	if c.TunnelIDRangeFrom == 0 {
		c.TunnelIDRangeFrom = defaultTunnelIDRangeFrom
	}
	if c.TunnelIDRangeTo <= c.TunnelIDRangeFrom {
		c.TunnelIDRangeTo = defaultTunnelIDRangeTo
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}
