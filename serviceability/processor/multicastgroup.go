package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// CreateMulticastGroup registers a group. Foundation only. A non-zero
// tenant key ties the group to a tenant and bumps its reference count.
func (p *Processor) CreateMulticastGroup(payer, tenantPK solana.PublicKey, args instruction.CreateMulticastGroupArgs) (mgPK solana.PublicKey, err error) {
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
		if p.codeTaken(state.MulticastGroupType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "multicast group code %q already in use", code)
		}
		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveMulticastGroupPDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		mg := &state.MulticastGroup{
			AccountType:  state.MulticastGroupType,
			Owner:        pk32(payer),
			Index:        index,
			BumpSeed:     bump,
			TenantPubKey: pk32(tenantPK),
			MaxBandwidth: args.MaxBandwidth,
			Status:       state.MulticastGroupStatusPending,
			Code:         code,
			PubKey:       pk32(pk),
		}
		if err := mg.Validate(); err != nil {
			return err
		}
		if err := p.create(pk, payer, mg.Serialize()); err != nil {
			return err
		}
		if !tenantPK.IsZero() {
			t, err := p.tenant(tenantPK)
			if err != nil {
				return err
			}
			t.ReferenceCount++
			if err := p.store(tenantPK, payer, t.Serialize()); err != nil {
				return err
			}
		}
		mgPK = pk
		return nil
	})
	return mgPK, err
}

func (p *Processor) UpdateMulticastGroup(payer, mgPK solana.PublicKey, args instruction.UpdateMulticastGroupArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(mg.Owner, gs, payer); err != nil {
			return err
		}
		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != mg.Code && p.codeTaken(state.MulticastGroupType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "multicast group code %q already in use", code)
			}
			mg.Code = code
		}
		if args.MaxBandwidth != nil {
			mg.MaxBandwidth = *args.MaxBandwidth
		}
		if err := mg.Validate(); err != nil {
			return err
		}
		return p.store(mgPK, payer, mg.Serialize())
	})
}

// ActivateMulticastGroup is submitted by the activator with the allocated
// group address.
func (p *Processor) ActivateMulticastGroup(payer, mgPK solana.PublicKey, args instruction.ActivateMulticastGroupArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if err := state.CheckMulticastGroupTransition(mg.Status, state.MulticastGroupStatusActivated); err != nil {
			return err
		}
		mg.Status = state.MulticastGroupStatusActivated
		mg.MulticastIp = args.MulticastIp
		return p.store(mgPK, payer, mg.Serialize())
	})
}

func (p *Processor) RejectMulticastGroup(payer, mgPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if err := state.CheckMulticastGroupTransition(mg.Status, state.MulticastGroupStatusRejected); err != nil {
			return err
		}
		mg.Status = state.MulticastGroupStatusRejected
		return p.store(mgPK, payer, mg.Serialize())
	})
}

func (p *Processor) SuspendMulticastGroup(payer, mgPK solana.PublicKey) error {
	return p.setMulticastGroupStatus(payer, mgPK, state.MulticastGroupStatusSuspended)
}

func (p *Processor) ResumeMulticastGroup(payer, mgPK solana.PublicKey) error {
	return p.setMulticastGroupStatus(payer, mgPK, state.MulticastGroupStatusActivated)
}

func (p *Processor) setMulticastGroupStatus(payer, mgPK solana.PublicKey, to state.MulticastGroupStatus) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if err := state.CheckMulticastGroupTransition(mg.Status, to); err != nil {
			return err
		}
		mg.Status = to
		return p.store(mgPK, payer, mg.Serialize())
	})
}

// DeleteMulticastGroup marks the group Deleting for the activator. Groups
// with live publishers or subscribers cannot be deleted.
func (p *Processor) DeleteMulticastGroup(payer, mgPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(mg.Owner, gs, payer); err != nil {
			return err
		}
		if mg.PublisherCount != 0 || mg.SubscriberCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "multicast group %q has %d publishers and %d subscribers", mg.Code, mg.PublisherCount, mg.SubscriberCount)
		}
		if mg.Status == state.MulticastGroupStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "multicast group %q is activated, suspend it or use the atomic delete", mg.Code)
		}
		if err := state.CheckMulticastGroupTransition(mg.Status, state.MulticastGroupStatusDeleting); err != nil {
			return err
		}
		mg.Status = state.MulticastGroupStatusDeleting
		return p.store(mgPK, payer, mg.Serialize())
	})
}

// DeleteMulticastGroupAtomic frees the group address and closes the account
// in one transaction. Gated on the atomic-delete feature flag.
func (p *Processor) DeleteMulticastGroupAtomic(payer, mgPK, multicastBlockPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if gs.FeatureFlags&state.FeatureFlagAtomicDelete == 0 {
			return dzerror.Newf(dzerror.NotAllowed, "atomic delete is not enabled")
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(mg.Owner, gs, payer); err != nil {
			return err
		}
		if mg.Status == state.MulticastGroupStatusDeleting {
			return dzerror.Newf(dzerror.InvalidStatus, "multicast group %q is already deleting", mg.Code)
		}
		if mg.PublisherCount != 0 || mg.SubscriberCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "multicast group %q has %d publishers and %d subscribers", mg.Code, mg.PublisherCount, mg.SubscriberCount)
		}
		if mg.MulticastIp != ([4]byte{}) && !multicastBlockPK.IsZero() {
			network := [5]byte{mg.MulticastIp[0], mg.MulticastIp[1], mg.MulticastIp[2], mg.MulticastIp[3], 32}
			if err := p.deallocIP(multicastBlockPK, payer, network, 32); err != nil {
				return err
			}
		}
		return p.releaseMulticastGroup(payer, mg)
	})
}

// CloseAccountMulticastGroup finishes a legacy delete.
func (p *Processor) CloseAccountMulticastGroup(payer, mgPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if pk32(payer) != gs.ActivatorAuthorityPK {
			if err := requireFoundation(gs, payer); err != nil {
				return err
			}
		}
		mg, err := p.multicastGroup(mgPK)
		if err != nil {
			return err
		}
		if mg.Status != state.MulticastGroupStatusDeleting && mg.Status != state.MulticastGroupStatusRejected {
			return dzerror.Newf(dzerror.InvalidStatus, "multicast group %q is %s, not deleting", mg.Code, mg.Status)
		}
		return p.releaseMulticastGroup(payer, mg)
	})
}

func (p *Processor) releaseMulticastGroup(payer solana.PublicKey, mg *state.MulticastGroup) error {
	if mg.TenantPubKey != ([32]byte{}) {
		if t, err := p.tenant(asPK(mg.TenantPubKey)); err == nil && t.ReferenceCount > 0 {
			t.ReferenceCount--
			if err := p.store(asPK(mg.TenantPubKey), payer, t.Serialize()); err != nil {
				return err
			}
		}
	}
	return p.closeTo(asPK(mg.PubKey), asPK(mg.Owner))
}
