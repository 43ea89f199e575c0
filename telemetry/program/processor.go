package telemetry

import (
	"bytes"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	svc "github.com/malbeclabs/doublezero-controlplane/serviceability/processor"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// Processor applies telemetry instructions against the ledger. Device sample
// accounts are writable only by the origin device's metrics publisher;
// internet sample accounts only by the internet latency collector registered
// in the serviceability GlobalState.
type Processor struct {
	ledger           *svc.Ledger
	programID        solana.PublicKey
	serviceabilityID solana.PublicKey
	log              *slog.Logger
}

func New(ledger *svc.Ledger, programID, serviceabilityProgramID solana.PublicKey, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		ledger:           ledger,
		programID:        programID,
		serviceabilityID: serviceabilityProgramID,
		log:              log,
	}
}

func (p *Processor) ProgramID() solana.PublicKey { return p.programID }

func (p *Processor) device(pk solana.PublicKey) (*state.Device, error) {
	acct, ok := p.ledger.Account(pk)
	if !ok {
		return nil, dzerror.Newf(dzerror.AccountNotFound, "device %s", pk)
	}
	if err := state.CheckDiscriminator(acct.Data, state.DeviceType); err != nil {
		return nil, err
	}
	var dev state.Device
	if err := state.DeserializeDevice(state.NewByteReader(acct.Data), &dev); err != nil {
		return nil, err
	}
	dev.PubKey = pk
	return &dev, nil
}

func (p *Processor) exchange(pk solana.PublicKey) (*state.Exchange, error) {
	acct, ok := p.ledger.Account(pk)
	if !ok {
		return nil, dzerror.Newf(dzerror.AccountNotFound, "exchange %s", pk)
	}
	if err := state.CheckDiscriminator(acct.Data, state.ExchangeType); err != nil {
		return nil, err
	}
	var exch state.Exchange
	state.DeserializeExchange(state.NewByteReader(acct.Data), &exch)
	exch.PubKey = pk
	return &exch, nil
}

func (p *Processor) globalState() (*state.GlobalState, error) {
	gsPK, _, err := pda.DeriveGlobalStatePDA(p.serviceabilityID)
	if err != nil {
		return nil, err
	}
	acct, ok := p.ledger.Account(gsPK)
	if !ok {
		return nil, dzerror.Newf(dzerror.AccountNotFound, "global state")
	}
	if err := state.CheckDiscriminator(acct.Data, state.GlobalStateType); err != nil {
		return nil, err
	}
	var gs state.GlobalState
	state.DeserializeGlobalState(state.NewByteReader(acct.Data), &gs)
	return &gs, nil
}

// InitializeDeviceLatencySamples creates the per-(origin, target, link, epoch)
// samples account. The signer must be the origin device's metrics publisher.
func (p *Processor) InitializeDeviceLatencySamples(agent, originDevicePK, targetDevicePK, linkPK solana.PublicKey, args InitializeDeviceLatencySamplesArgs) (solana.PublicKey, error) {
	var samplesPK solana.PublicKey
	err := p.ledger.WithTransaction(func() error {
		origin, err := p.device(originDevicePK)
		if err != nil {
			return err
		}
		target, err := p.device(targetDevicePK)
		if err != nil {
			return err
		}
		if solana.PublicKey(origin.MetricsPublisherPubKey) != agent {
			return dzerror.Newf(dzerror.Unauthorized, "signer is not the origin device metrics publisher")
		}

		samplesPK, _, err = DeriveDeviceLatencySamplesPDA(p.programID, originDevicePK, targetDevicePK, linkPK, args.Epoch)
		if err != nil {
			return err
		}
		if _, exists := p.ledger.Account(samplesPK); exists {
			return dzerror.Newf(dzerror.AccountAlreadyExists, "device latency samples %s", samplesPK)
		}

		samples := DeviceLatencySamples{
			DeviceLatencySamplesHeader: DeviceLatencySamplesHeader{
				AccountType:                  AccountTypeDeviceLatencySamples,
				Epoch:                        args.Epoch,
				OriginDeviceAgentPK:          agent,
				OriginDevicePK:               originDevicePK,
				TargetDevicePK:               targetDevicePK,
				OriginDeviceLocationPK:       solana.PublicKey(origin.LocationPubKey),
				TargetDeviceLocationPK:       solana.PublicKey(target.LocationPubKey),
				LinkPK:                       linkPK,
				SamplingIntervalMicroseconds: args.SamplingIntervalMicroseconds,
			},
		}
		var buf bytes.Buffer
		if err := samples.Serialize(&buf); err != nil {
			return err
		}
		return p.ledger.CreateAccount(samplesPK, p.programID, agent, buf.Bytes())
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	p.log.Debug("initialized device latency samples", "pk", samplesPK, "epoch", args.Epoch)
	return samplesPK, nil
}

// WriteDeviceLatencySamples appends a batch of RTT samples to an existing
// samples account, growing it. The first write stamps
// StartTimestampMicroseconds; later values are ignored.
func (p *Processor) WriteDeviceLatencySamples(agent, samplesPK solana.PublicKey, args WriteDeviceLatencySamplesArgs) error {
	return p.ledger.WithTransaction(func() error {
		acct, ok := p.ledger.Account(samplesPK)
		if !ok {
			return dzerror.Newf(dzerror.AccountNotFound, "device latency samples %s", samplesPK)
		}
		var samples DeviceLatencySamples
		if err := samples.Deserialize(acct.Data); err != nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "device latency samples %s: %v", samplesPK, err)
		}
		if samples.AccountType != AccountTypeDeviceLatencySamples {
			return dzerror.Newf(dzerror.InvalidAccountType, "got %d, want device latency samples", samples.AccountType)
		}
		if samples.OriginDeviceAgentPK != agent {
			return dzerror.Newf(dzerror.Unauthorized, "signer is not the samples account agent")
		}
		if len(args.Samples) == 0 {
			return dzerror.Newf(dzerror.InvalidAccountData, "empty sample batch")
		}
		if int(samples.NextSampleIndex)+len(args.Samples) > MaxDeviceLatencySamplesPerAccount {
			return dzerror.Newf(dzerror.AllocationFailed, "samples account full: %d + %d exceeds %d",
				samples.NextSampleIndex, len(args.Samples), MaxDeviceLatencySamplesPerAccount)
		}

		if samples.StartTimestampMicroseconds == 0 {
			samples.StartTimestampMicroseconds = args.StartTimestampMicroseconds
		}
		samples.Samples = append(samples.Samples, args.Samples...)
		samples.NextSampleIndex += uint32(len(args.Samples))

		var buf bytes.Buffer
		if err := samples.Serialize(&buf); err != nil {
			return err
		}
		return p.ledger.WriteAccount(samplesPK, agent, buf.Bytes())
	})
}

// InitializeInternetLatencySamples creates the per-(provider, origin exchange,
// target exchange, epoch) samples account. The signer must be the internet
// latency collector registered in GlobalState.
func (p *Processor) InitializeInternetLatencySamples(agent, originExchangePK, targetExchangePK solana.PublicKey, args InitializeInternetLatencySamplesArgs) (solana.PublicKey, error) {
	var samplesPK solana.PublicKey
	err := p.ledger.WithTransaction(func() error {
		gs, err := p.globalState()
		if err != nil {
			return err
		}
		if solana.PublicKey(gs.InternetLatencyCollectorPK) != agent {
			return dzerror.Newf(dzerror.Unauthorized, "signer is not the internet latency collector")
		}
		if _, err := p.exchange(originExchangePK); err != nil {
			return err
		}
		if _, err := p.exchange(targetExchangePK); err != nil {
			return err
		}
		if args.DataProviderName == "" {
			return dzerror.Newf(dzerror.InvalidAccountData, "data provider name is required")
		}

		samplesPK, _, err = DeriveInternetLatencySamplesPDA(p.programID, args.DataProviderName, originExchangePK, targetExchangePK, args.Epoch)
		if err != nil {
			return err
		}
		if _, exists := p.ledger.Account(samplesPK); exists {
			return dzerror.Newf(dzerror.AccountAlreadyExists, "internet latency samples %s", samplesPK)
		}

		samples := InternetLatencySamples{
			InternetLatencySamplesHeader: InternetLatencySamplesHeader{
				AccountType:                  AccountTypeInternetLatencySamples,
				Epoch:                        args.Epoch,
				DataProviderName:             args.DataProviderName,
				OracleAgentPK:                agent,
				OriginExchangePK:             originExchangePK,
				TargetExchangePK:             targetExchangePK,
				SamplingIntervalMicroseconds: args.SamplingIntervalMicroseconds,
			},
		}
		var buf bytes.Buffer
		if err := samples.Serialize(&buf); err != nil {
			return err
		}
		return p.ledger.CreateAccount(samplesPK, p.programID, agent, buf.Bytes())
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	p.log.Debug("initialized internet latency samples", "pk", samplesPK, "provider", args.DataProviderName, "epoch", args.Epoch)
	return samplesPK, nil
}

// WriteInternetLatencySamples appends a batch of RTT samples to an existing
// internet samples account.
func (p *Processor) WriteInternetLatencySamples(agent, samplesPK solana.PublicKey, args WriteInternetLatencySamplesArgs) error {
	return p.ledger.WithTransaction(func() error {
		acct, ok := p.ledger.Account(samplesPK)
		if !ok {
			return dzerror.Newf(dzerror.AccountNotFound, "internet latency samples %s", samplesPK)
		}
		var samples InternetLatencySamples
		if err := samples.Deserialize(acct.Data); err != nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "internet latency samples %s: %v", samplesPK, err)
		}
		if samples.AccountType != AccountTypeInternetLatencySamples {
			return dzerror.Newf(dzerror.InvalidAccountType, "got %d, want internet latency samples", samples.AccountType)
		}
		if samples.OracleAgentPK != agent {
			return dzerror.Newf(dzerror.Unauthorized, "signer is not the samples account agent")
		}
		if len(args.Samples) == 0 {
			return dzerror.Newf(dzerror.InvalidAccountData, "empty sample batch")
		}
		if int(samples.NextSampleIndex)+len(args.Samples) > MaxInternetLatencySamplesPerAccount {
			return dzerror.Newf(dzerror.AllocationFailed, "samples account full: %d + %d exceeds %d",
				samples.NextSampleIndex, len(args.Samples), MaxInternetLatencySamplesPerAccount)
		}

		if samples.StartTimestampMicroseconds == 0 {
			samples.StartTimestampMicroseconds = args.StartTimestampMicroseconds
		}
		samples.Samples = append(samples.Samples, args.Samples...)
		samples.NextSampleIndex += uint32(len(args.Samples))

		var buf bytes.Buffer
		if err := samples.Serialize(&buf); err != nil {
			return err
		}
		return p.ledger.WriteAccount(samplesPK, agent, buf.Bytes())
	})
}

// Execute decodes an instruction payload and applies it. Account ordering:
// initialize device [samples, origin, target, link]; write device [samples];
// initialize internet [samples, origin exchange, target exchange]; write
// internet [samples].
func (p *Processor) Execute(payer solana.PublicKey, accounts []solana.PublicKey, data []byte) error {
	if len(data) == 0 {
		return dzerror.Newf(dzerror.InvalidAccountData, "empty instruction data")
	}
	at := func(i int) (solana.PublicKey, error) {
		if i >= len(accounts) {
			return solana.PublicKey{}, dzerror.Newf(dzerror.InvalidAccountData, "instruction %d: missing account %d", data[0], i)
		}
		return accounts[i], nil
	}

	switch InstructionType(data[0]) {
	case InitializeDeviceLatencySamplesInstructionIndex:
		var args InitializeDeviceLatencySamplesArgs
		if err := borsh.Deserialize(&args, data); err != nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "decode initialize device latency samples: %v", err)
		}
		samplesPK, err := at(0)
		if err != nil {
			return err
		}
		originPK, err := at(1)
		if err != nil {
			return err
		}
		targetPK, err := at(2)
		if err != nil {
			return err
		}
		linkPK, err := at(3)
		if err != nil {
			return err
		}
		derived, _, err := DeriveDeviceLatencySamplesPDA(p.programID, originPK, targetPK, linkPK, args.Epoch)
		if err != nil {
			return err
		}
		if derived != samplesPK {
			return dzerror.Newf(dzerror.InvalidPDA, "device latency samples: got %s, want %s", samplesPK, derived)
		}
		_, err = p.InitializeDeviceLatencySamples(payer, originPK, targetPK, linkPK, args)
		return err
	case WriteDeviceLatencySamplesInstructionIndex:
		var args WriteDeviceLatencySamplesArgs
		if err := borsh.Deserialize(&args, data); err != nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "decode write device latency samples: %v", err)
		}
		samplesPK, err := at(0)
		if err != nil {
			return err
		}
		return p.WriteDeviceLatencySamples(payer, samplesPK, args)
	case InitializeInternetLatencySamplesInstructionIndex:
		var args InitializeInternetLatencySamplesArgs
		if err := borsh.Deserialize(&args, data); err != nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "decode initialize internet latency samples: %v", err)
		}
		samplesPK, err := at(0)
		if err != nil {
			return err
		}
		originPK, err := at(1)
		if err != nil {
			return err
		}
		targetPK, err := at(2)
		if err != nil {
			return err
		}
		derived, _, err := DeriveInternetLatencySamplesPDA(p.programID, args.DataProviderName, originPK, targetPK, args.Epoch)
		if err != nil {
			return err
		}
		if derived != samplesPK {
			return dzerror.Newf(dzerror.InvalidPDA, "internet latency samples: got %s, want %s", samplesPK, derived)
		}
		_, err = p.InitializeInternetLatencySamples(payer, originPK, targetPK, args)
		return err
	case WriteInternetLatencySamplesInstructionIndex:
		var args WriteInternetLatencySamplesArgs
		if err := borsh.Deserialize(&args, data); err != nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "decode write internet latency samples: %v", err)
		}
		samplesPK, err := at(0)
		if err != nil {
			return err
		}
		return p.WriteInternetLatencySamples(payer, samplesPK, args)
	default:
		return dzerror.Newf(dzerror.InvalidAccountData, "unknown instruction %d", data[0])
	}
}
