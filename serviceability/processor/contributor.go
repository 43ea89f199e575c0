package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// CreateContributor registers a network contributor. The contributor
// airdrop funds the ops manager wallet so it can pay for its own device and
// link accounts.
func (p *Processor) CreateContributor(payer solana.PublicKey, args instruction.CreateContributorArgs) (conPK solana.PublicKey, err error) {
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
		if p.codeTaken(state.ContributorType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "contributor code %q already in use", code)
		}
		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveContributorPDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		c := &state.Contributor{
			AccountType:  state.ContributorType,
			Owner:        pk32(payer),
			Index:        index,
			BumpSeed:     bump,
			Status:       state.ContributorStatusActivated,
			Code:         code,
			OpsManagerPK: args.OpsManagerPK,
			PubKey:       pk32(pk),
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := p.create(pk, payer, c.Serialize()); err != nil {
			return err
		}
		if gs.ContributorAirdropLamports > 0 {
			if err := p.ledger.Transfer(payer, asPK(args.OpsManagerPK), gs.ContributorAirdropLamports); err != nil {
				return err
			}
		}
		conPK = pk
		return nil
	})
	return conPK, err
}

func (p *Processor) UpdateContributor(payer, conPK solana.PublicKey, args instruction.UpdateContributorArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		c, err := p.contributor(conPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(c.Owner, gs, payer); err != nil {
			return err
		}
		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != c.Code && p.codeTaken(state.ContributorType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "contributor code %q already in use", code)
			}
			c.Code = code
		}
		if args.OpsManagerPK != nil {
			c.OpsManagerPK = *args.OpsManagerPK
		}
		if err := c.Validate(); err != nil {
			return err
		}
		return p.store(conPK, payer, c.Serialize())
	})
}

func (p *Processor) SuspendContributor(payer, conPK solana.PublicKey) error {
	return p.setContributorStatus(payer, conPK, state.ContributorStatusSuspended)
}

func (p *Processor) ResumeContributor(payer, conPK solana.PublicKey) error {
	return p.setContributorStatus(payer, conPK, state.ContributorStatusActivated)
}

func (p *Processor) setContributorStatus(payer, conPK solana.PublicKey, to state.ContributorStatus) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		c, err := p.contributor(conPK)
		if err != nil {
			return err
		}
		if err := state.CheckContributorTransition(c.Status, to); err != nil {
			return err
		}
		c.Status = to
		return p.store(conPK, payer, c.Serialize())
	})
}

func (p *Processor) DeleteContributor(payer, conPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		c, err := p.contributor(conPK)
		if err != nil {
			return err
		}
		if err := state.CheckContributorTransition(c.Status, state.ContributorStatusDeleting); err != nil {
			return err
		}
		if c.ReferenceCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "contributor %q has %d dependents", c.Code, c.ReferenceCount)
		}
		return p.closeTo(conPK, payer)
	})
}
