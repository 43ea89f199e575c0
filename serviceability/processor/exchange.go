package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// CreateExchange registers a new exchange and assigns it the next BGP
// community from GlobalConfig.
func (p *Processor) CreateExchange(payer solana.PublicKey, args instruction.CreateExchangeArgs) (exPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		code, err := normalizeCode(args.Code)
		if err != nil {
			return err
		}
		if p.codeTaken(state.ExchangeType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "exchange code %q already in use", code)
		}
		cfg, err := p.globalConfig()
		if err != nil {
			return err
		}
		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveExchangePDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		ex := &state.Exchange{
			AccountType:  state.ExchangeType,
			Owner:        pk32(payer),
			Index:        index,
			BumpSeed:     bump,
			Lat:          args.Lat,
			Lng:          args.Lng,
			BgpCommunity: cfg.NextBGPCommunity,
			Status:       state.ExchangeStatusActivated,
			Code:         code,
			Name:         args.Name,
			PubKey:       pk32(pk),
		}
		if err := ex.Validate(); err != nil {
			return err
		}
		cfg.NextBGPCommunity++
		if err := p.store(asPK(cfg.PubKey), payer, cfg.Serialize()); err != nil {
			return err
		}
		exPK = pk
		return p.create(pk, payer, ex.Serialize())
	})
	return exPK, err
}

func (p *Processor) UpdateExchange(payer, exPK solana.PublicKey, args instruction.UpdateExchangeArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		ex, err := p.exchange(exPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(ex.Owner, gs, payer); err != nil {
			return err
		}
		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != ex.Code && p.codeTaken(state.ExchangeType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "exchange code %q already in use", code)
			}
			ex.Code = code
		}
		if args.Name != nil {
			ex.Name = *args.Name
		}
		if args.Lat != nil {
			ex.Lat = *args.Lat
		}
		if args.Lng != nil {
			ex.Lng = *args.Lng
		}
		if err := ex.Validate(); err != nil {
			return err
		}
		return p.store(exPK, payer, ex.Serialize())
	})
}

func (p *Processor) SuspendExchange(payer, exPK solana.PublicKey) error {
	return p.setExchangeStatus(payer, exPK, state.ExchangeStatusSuspended)
}

func (p *Processor) ResumeExchange(payer, exPK solana.PublicKey) error {
	return p.setExchangeStatus(payer, exPK, state.ExchangeStatusActivated)
}

func (p *Processor) setExchangeStatus(payer, exPK solana.PublicKey, to state.ExchangeStatus) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		ex, err := p.exchange(exPK)
		if err != nil {
			return err
		}
		if err := state.CheckExchangeTransition(ex.Status, to); err != nil {
			return err
		}
		ex.Status = to
		return p.store(exPK, payer, ex.Serialize())
	})
}

func (p *Processor) DeleteExchange(payer, exPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		ex, err := p.exchange(exPK)
		if err != nil {
			return err
		}
		if err := state.CheckExchangeTransition(ex.Status, state.ExchangeStatusDeleting); err != nil {
			return err
		}
		if ex.ReferenceCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "exchange %q has %d dependents", ex.Code, ex.ReferenceCount)
		}
		return p.closeTo(exPK, payer)
	})
}
