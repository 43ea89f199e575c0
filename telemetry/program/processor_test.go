package telemetry_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	svc "github.com/malbeclabs/doublezero-controlplane/serviceability/processor"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
	telemetry "github.com/malbeclabs/doublezero-controlplane/telemetry/program"
)

const testFunding = 100_000_000_000_000

type telemetryTestEnv struct {
	t         *testing.T
	p         *telemetry.Processor
	ledger    *svc.Ledger
	programID solana.PublicKey
	svcID     solana.PublicKey
	funder    solana.PublicKey
	agent     solana.PublicKey
	collector solana.PublicKey
	originDev solana.PublicKey
	targetDev solana.PublicKey
	link      solana.PublicKey
	originEx  solana.PublicKey
	targetEx  solana.PublicKey
}

func newTelemetryTestEnv(t *testing.T) *telemetryTestEnv {
	t.Helper()

	e := &telemetryTestEnv{
		t:         t,
		ledger:    svc.NewLedger(),
		programID: solana.NewWallet().PublicKey(),
		svcID:     solana.NewWallet().PublicKey(),
		funder:    solana.NewWallet().PublicKey(),
		agent:     solana.NewWallet().PublicKey(),
		collector: solana.NewWallet().PublicKey(),
		link:      solana.NewWallet().PublicKey(),
	}
	e.ledger.SetClock(svc.Clock{Slot: 1, Epoch: 1})
	e.ledger.Airdrop(e.funder, testFunding)
	e.ledger.Airdrop(e.agent, testFunding)
	e.ledger.Airdrop(e.collector, testFunding)

	gsPK, _, err := pda.DeriveGlobalStatePDA(e.svcID)
	require.NoError(t, err)
	gs := state.GlobalState{
		AccountType:                state.GlobalStateType,
		InternetLatencyCollectorPK: [32]byte(e.collector),
	}
	require.NoError(t, e.ledger.CreateAccount(gsPK, e.svcID, e.funder, gs.Serialize()))

	e.originDev = e.seedDevice("ny5-dz01", e.agent)
	e.targetDev = e.seedDevice("la2-dz01", solana.NewWallet().PublicKey())
	e.originEx = e.seedExchange("xny5")
	e.targetEx = e.seedExchange("xla2")

	e.p = telemetry.New(e.ledger, e.programID, e.svcID, nil)
	return e
}

func (e *telemetryTestEnv) seedDevice(code string, publisher solana.PublicKey) solana.PublicKey {
	e.t.Helper()
	pk := solana.NewWallet().PublicKey()
	dev := state.Device{
		AccountType:            state.DeviceType,
		Status:                 state.DeviceStatusActivated,
		Code:                   code,
		LocationPubKey:         [32]byte(solana.NewWallet().PublicKey()),
		MetricsPublisherPubKey: [32]byte(publisher),
	}
	require.NoError(e.t, e.ledger.CreateAccount(pk, e.svcID, e.funder, dev.Serialize()))
	return pk
}

func (e *telemetryTestEnv) seedExchange(code string) solana.PublicKey {
	e.t.Helper()
	pk := solana.NewWallet().PublicKey()
	exch := state.Exchange{
		AccountType: state.ExchangeType,
		Status:      state.ExchangeStatusActivated,
		Code:        code,
	}
	require.NoError(e.t, e.ledger.CreateAccount(pk, e.svcID, e.funder, exch.Serialize()))
	return pk
}

func TestDeviceLatencySamplesLifecycle(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	samplesPK, err := e.p.InitializeDeviceLatencySamples(e.agent, e.originDev, e.targetDev, e.link, telemetry.InitializeDeviceLatencySamplesArgs{
		Epoch:                        7,
		SamplingIntervalMicroseconds: 5_000_000,
	})
	require.NoError(t, err)

	derived, _, err := telemetry.DeriveDeviceLatencySamplesPDA(e.p.ProgramID(), e.originDev, e.targetDev, e.link, 7)
	require.NoError(t, err)
	require.Equal(t, derived, samplesPK)

	// Double initialize is rejected.
	_, err = e.p.InitializeDeviceLatencySamples(e.agent, e.originDev, e.targetDev, e.link, telemetry.InitializeDeviceLatencySamplesArgs{
		Epoch:                        7,
		SamplingIntervalMicroseconds: 5_000_000,
	})
	require.Equal(t, dzerror.AccountAlreadyExists, dzerror.CodeOf(err))

	err = e.p.WriteDeviceLatencySamples(e.agent, samplesPK, telemetry.WriteDeviceLatencySamplesArgs{
		StartTimestampMicroseconds: 1_700_000_000_000_000,
		Samples:                    []uint32{1200, 1350, 1100},
	})
	require.NoError(t, err)

	err = e.p.WriteDeviceLatencySamples(e.agent, samplesPK, telemetry.WriteDeviceLatencySamplesArgs{
		StartTimestampMicroseconds: 9_999_999_999_999_999,
		Samples:                    []uint32{1250},
	})
	require.NoError(t, err)

	acct, ok := e.ledger.Account(samplesPK)
	require.True(t, ok)
	var samples telemetry.DeviceLatencySamples
	require.NoError(t, samples.Deserialize(acct.Data))
	require.Equal(t, telemetry.AccountTypeDeviceLatencySamples, samples.AccountType)
	require.Equal(t, uint64(7), samples.Epoch)
	require.Equal(t, e.agent, samples.OriginDeviceAgentPK)
	require.Equal(t, uint32(4), samples.NextSampleIndex)
	require.Equal(t, []uint32{1200, 1350, 1100, 1250}, samples.Samples)
	// First write stamps the start timestamp; later values are ignored.
	require.Equal(t, uint64(1_700_000_000_000_000), samples.StartTimestampMicroseconds)
}

func TestInitializeDeviceLatencySamplesRequiresMetricsPublisher(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	stranger := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(stranger, testFunding)
	_, err := e.p.InitializeDeviceLatencySamples(stranger, e.originDev, e.targetDev, e.link, telemetry.InitializeDeviceLatencySamplesArgs{
		Epoch:                        7,
		SamplingIntervalMicroseconds: 5_000_000,
	})
	require.Equal(t, dzerror.Unauthorized, dzerror.CodeOf(err))
}

func TestWriteDeviceLatencySamplesRequiresAccountAgent(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	samplesPK, err := e.p.InitializeDeviceLatencySamples(e.agent, e.originDev, e.targetDev, e.link, telemetry.InitializeDeviceLatencySamplesArgs{
		Epoch:                        7,
		SamplingIntervalMicroseconds: 5_000_000,
	})
	require.NoError(t, err)

	stranger := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(stranger, testFunding)
	err = e.p.WriteDeviceLatencySamples(stranger, samplesPK, telemetry.WriteDeviceLatencySamplesArgs{
		StartTimestampMicroseconds: 1,
		Samples:                    []uint32{100},
	})
	require.Equal(t, dzerror.Unauthorized, dzerror.CodeOf(err))
}

func TestWriteDeviceLatencySamplesCapsAccountSize(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	samplesPK, err := e.p.InitializeDeviceLatencySamples(e.agent, e.originDev, e.targetDev, e.link, telemetry.InitializeDeviceLatencySamplesArgs{
		Epoch:                        7,
		SamplingIntervalMicroseconds: 5_000_000,
	})
	require.NoError(t, err)

	// Fill to one short of the cap, then overflow.
	batch := make([]uint32, telemetry.MaxDeviceLatencySamplesPerAccount-1)
	err = e.p.WriteDeviceLatencySamples(e.agent, samplesPK, telemetry.WriteDeviceLatencySamplesArgs{
		StartTimestampMicroseconds: 1,
		Samples:                    batch,
	})
	require.NoError(t, err)

	err = e.p.WriteDeviceLatencySamples(e.agent, samplesPK, telemetry.WriteDeviceLatencySamplesArgs{
		Samples: []uint32{1, 2},
	})
	require.Equal(t, dzerror.AllocationFailed, dzerror.CodeOf(err))

	// The last free slot is still writable.
	err = e.p.WriteDeviceLatencySamples(e.agent, samplesPK, telemetry.WriteDeviceLatencySamplesArgs{
		Samples: []uint32{1},
	})
	require.NoError(t, err)
}

func TestInternetLatencySamplesLifecycle(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	samplesPK, err := e.p.InitializeInternetLatencySamples(e.collector, e.originEx, e.targetEx, telemetry.InitializeInternetLatencySamplesArgs{
		DataProviderName:             "ripeatlas",
		Epoch:                        9,
		SamplingIntervalMicroseconds: 60_000_000,
	})
	require.NoError(t, err)

	err = e.p.WriteInternetLatencySamples(e.collector, samplesPK, telemetry.WriteInternetLatencySamplesArgs{
		StartTimestampMicroseconds: 1_700_000_000_000_000,
		Samples:                    []uint32{43_000, 44_500},
	})
	require.NoError(t, err)

	acct, ok := e.ledger.Account(samplesPK)
	require.True(t, ok)
	var samples telemetry.InternetLatencySamples
	require.NoError(t, samples.Deserialize(acct.Data))
	require.Equal(t, "ripeatlas", samples.DataProviderName)
	require.Equal(t, e.collector, samples.OracleAgentPK)
	require.Equal(t, []uint32{43_000, 44_500}, samples.Samples)
}

func TestInitializeInternetLatencySamplesRequiresCollector(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	_, err := e.p.InitializeInternetLatencySamples(e.agent, e.originEx, e.targetEx, telemetry.InitializeInternetLatencySamplesArgs{
		DataProviderName:             "ripeatlas",
		Epoch:                        9,
		SamplingIntervalMicroseconds: 60_000_000,
	})
	require.Equal(t, dzerror.Unauthorized, dzerror.CodeOf(err))
}

func TestTelemetryExecuteDispatch(t *testing.T) {
	t.Parallel()
	e := newTelemetryTestEnv(t)

	instr, err := telemetry.BuildInitializeDeviceLatencySamplesInstruction(e.programID, telemetry.InitializeDeviceLatencySamplesInstructionConfig{
		AgentPK:                      e.agent,
		OriginDevicePK:               e.originDev,
		TargetDevicePK:               e.targetDev,
		LinkPK:                       e.link,
		Epoch:                        7,
		SamplingIntervalMicroseconds: 5_000_000,
	})
	require.NoError(t, err)

	data, err := instr.Data()
	require.NoError(t, err)
	samplesPK, _, err := telemetry.DeriveDeviceLatencySamplesPDA(e.programID, e.originDev, e.targetDev, e.link, 7)
	require.NoError(t, err)

	err = e.p.Execute(e.agent, []solana.PublicKey{samplesPK, e.originDev, e.targetDev, e.link}, data)
	require.NoError(t, err)

	_, ok := e.ledger.Account(samplesPK)
	require.True(t, ok)

	// A mismatched PDA account is rejected.
	err = e.p.Execute(e.agent, []solana.PublicKey{solana.NewWallet().PublicKey(), e.originDev, e.targetDev, e.link}, data)
	require.Equal(t, dzerror.InvalidPDA, dzerror.CodeOf(err))
}
