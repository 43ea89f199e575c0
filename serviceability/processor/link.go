package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// requireDeviceInterface asserts the named interface exists on the device
// and is not already bound to another link.
func (p *Processor) requireDeviceInterface(dev *state.Device, name string, exclude solana.PublicKey) error {
	if _, ok := dev.FindInterface(name); !ok {
		return dzerror.Newf(dzerror.InvalidInterfaceName, "interface %q not found on device %q", name, dev.Code)
	}
	if p.interfaceBoundToOtherLink(asPK(dev.PubKey), name, exclude) {
		return dzerror.Newf(dzerror.InterfaceInUse, "interface %q on device %q is attached to another link", name, dev.Code)
	}
	return nil
}

func (p *Processor) interfaceBoundToOtherLink(devPK solana.PublicKey, name string, exclude solana.PublicKey) bool {
	for pk, acc := range p.ledger.Accounts(p.programID) {
		if pk == exclude || len(acc.Data) == 0 || state.AccountType(acc.Data[0]) != state.LinkType {
			continue
		}
		var l state.Link
		state.DeserializeLink(state.NewByteReader(acc.Data), &l)
		if l.SideAPubKey == pk32(devPK) && l.SideAIfaceName == name {
			return true
		}
		if l.SideZPubKey == pk32(devPK) && l.SideZIfaceName == name {
			return true
		}
	}
	return false
}

// CreateLink provisions a tunnel between two devices. WAN links connect two
// devices of the same contributor and start Pending. DZX links cross a
// contributor boundary: side Z binds its interface later via AcceptLink, so
// they start Requested.
func (p *Processor) CreateLink(payer, conPK, sideAPK, sideZPK solana.PublicKey, args instruction.CreateLinkArgs) (linkPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		c, err := p.contributor(conPK)
		if err != nil {
			return err
		}
		if err := requireContributor(c, gs, payer); err != nil {
			return err
		}
		code, err := normalizeCode(args.Code)
		if err != nil {
			return err
		}
		if p.codeTaken(state.LinkType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "link code %q already in use", code)
		}
		linkType := state.LinkLinkType(args.LinkType)
		if linkType != state.LinkLinkTypeWAN && linkType != state.LinkLinkTypeDZX {
			return dzerror.Newf(dzerror.InvalidAccountData, "invalid link type %d", args.LinkType)
		}
		devA, err := p.device(sideAPK)
		if err != nil {
			return err
		}
		if devA.ContributorPubKey != pk32(conPK) {
			return dzerror.Newf(dzerror.NotAllowed, "device %q does not belong to contributor %q", devA.Code, c.Code)
		}
		if err := p.requireDeviceInterface(devA, args.SideAIfaceName, solana.PublicKey{}); err != nil {
			return err
		}
		devZ, err := p.device(sideZPK)
		if err != nil {
			return err
		}

		status := state.LinkStatusPending
		sideZIface := args.SideZIfaceName
		if linkType == state.LinkLinkTypeDZX {
			// Side Z belongs to another contributor; its interface is
			// bound on accept.
			status = state.LinkStatusRequested
			sideZIface = ""
		} else {
			if devZ.ContributorPubKey != pk32(conPK) {
				return dzerror.Newf(dzerror.NotAllowed, "device %q does not belong to contributor %q", devZ.Code, c.Code)
			}
			if err := p.requireDeviceInterface(devZ, args.SideZIfaceName, solana.PublicKey{}); err != nil {
				return err
			}
		}

		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveLinkPDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		link := &state.Link{
			AccountType:       state.LinkType,
			Owner:             pk32(payer),
			Index:             index,
			BumpSeed:          bump,
			SideAPubKey:       pk32(sideAPK),
			SideZPubKey:       pk32(sideZPK),
			LinkType:          linkType,
			Bandwidth:         args.Bandwidth,
			Mtu:               args.Mtu,
			DelayNs:           args.DelayNs,
			JitterNs:          args.JitterNs,
			Status:            status,
			Code:              code,
			ContributorPubKey: pk32(conPK),
			SideAIfaceName:    args.SideAIfaceName,
			SideZIfaceName:    sideZIface,
			LinkDesiredStatus: state.LinkDesiredStatusActivated,
			PubKey:            pk32(pk),
		}
		if err := link.Validate(); err != nil {
			return err
		}
		if err := p.create(pk, payer, link.Serialize()); err != nil {
			return err
		}

		c.ReferenceCount++
		if err := p.store(conPK, payer, c.Serialize()); err != nil {
			return err
		}
		devA.ReferenceCount++
		if err := p.store(sideAPK, payer, devA.Serialize()); err != nil {
			return err
		}
		devZ.ReferenceCount++
		if err := p.store(sideZPK, payer, devZ.Serialize()); err != nil {
			return err
		}
		linkPK = pk
		return nil
	})
	return linkPK, err
}

// AcceptLink lets the side-Z contributor of a requested link bind its
// interface, moving the link to Pending for the activator to pick up.
func (p *Processor) AcceptLink(payer, linkPK solana.PublicKey, args instruction.AcceptLinkArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		if err := state.CheckLinkTransition(link.Status, state.LinkStatusPending); err != nil {
			return err
		}
		devZ, err := p.device(asPK(link.SideZPubKey))
		if err != nil {
			return err
		}
		cz, err := p.contributor(asPK(devZ.ContributorPubKey))
		if err != nil {
			return err
		}
		if err := requireContributor(cz, gs, payer); err != nil {
			return err
		}
		if err := p.requireDeviceInterface(devZ, args.SideZIfaceName, linkPK); err != nil {
			return err
		}
		link.SideZIfaceName = args.SideZIfaceName
		link.Status = state.LinkStatusPending
		return p.store(linkPK, payer, link.Serialize())
	})
}

// UpdateLink partitions fields by authority: the owning contributor edits
// identity and performance knobs, either endpoint's contributor may adjust
// the delay override and desired status, and the foundation may do both.
func (p *Processor) UpdateLink(payer, linkPK solana.PublicKey, args instruction.UpdateLinkArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}

		isFoundation := gs.IsFoundation(pk32(payer))
		isOwnerSide := false
		if c, err := p.contributor(asPK(link.ContributorPubKey)); err == nil {
			isOwnerSide = pk32(payer) == c.Owner || pk32(payer) == c.OpsManagerPK
		}
		isEitherSide := isOwnerSide
		if !isEitherSide {
			if devZ, err := p.device(asPK(link.SideZPubKey)); err == nil {
				if cz, err := p.contributor(asPK(devZ.ContributorPubKey)); err == nil {
					isEitherSide = pk32(payer) == cz.Owner || pk32(payer) == cz.OpsManagerPK
				}
			}
		}

		editsIdentity := args.Code != nil || args.Bandwidth != nil || args.Mtu != nil ||
			args.DelayNs != nil || args.JitterNs != nil
		editsShared := args.DelayOverrideNs != nil || args.DesiredStatus != nil
		if editsIdentity && !isOwnerSide && !isFoundation {
			return dzerror.Newf(dzerror.NotAllowed, "%s may not edit link %q", payer, link.Code)
		}
		if editsShared && !isEitherSide && !isFoundation {
			return dzerror.Newf(dzerror.NotAllowed, "%s may not edit link %q", payer, link.Code)
		}

		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != link.Code && p.codeTaken(state.LinkType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "link code %q already in use", code)
			}
			link.Code = code
		}
		if args.Bandwidth != nil {
			link.Bandwidth = *args.Bandwidth
		}
		if args.Mtu != nil {
			link.Mtu = *args.Mtu
		}
		if args.DelayNs != nil {
			link.DelayNs = *args.DelayNs
		}
		if args.JitterNs != nil {
			link.JitterNs = *args.JitterNs
		}
		if args.DelayOverrideNs != nil {
			link.DelayOverrideNs = *args.DelayOverrideNs
		}
		if args.DesiredStatus != nil {
			desired := state.LinkDesiredStatus(*args.DesiredStatus)
			switch desired {
			case state.LinkDesiredStatusPending, state.LinkDesiredStatusActivated,
				state.LinkDesiredStatusHardDrained, state.LinkDesiredStatusSoftDrained:
				link.LinkDesiredStatus = desired
			default:
				return dzerror.Newf(dzerror.InvalidStatus, "invalid desired status %d", *args.DesiredStatus)
			}
		}
		if err := link.Validate(); err != nil {
			return err
		}
		return p.store(linkPK, payer, link.Serialize())
	})
}

// ActivateLink is submitted by the activator with the allocated tunnel ID
// and subnet.
func (p *Processor) ActivateLink(payer, linkPK solana.PublicKey, args instruction.ActivateLinkArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		if err := state.CheckLinkTransition(link.Status, state.LinkStatusActivated); err != nil {
			return err
		}
		link.Status = state.LinkStatusActivated
		link.TunnelId = args.TunnelId
		link.TunnelNet = args.TunnelNet
		return p.store(linkPK, payer, link.Serialize())
	})
}

func (p *Processor) RejectLink(payer, linkPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		if err := state.CheckLinkTransition(link.Status, state.LinkStatusRejected); err != nil {
			return err
		}
		link.Status = state.LinkStatusRejected
		return p.store(linkPK, payer, link.Serialize())
	})
}

func (p *Processor) SetLinkHealth(payer, linkPK solana.PublicKey, args instruction.SetLinkHealthArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireHealthOracle(gs, payer); err != nil {
			return err
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		health := state.LinkHealth(args.Health)
		if health > state.LinkHealthImpaired {
			return dzerror.Newf(dzerror.InvalidStatus, "invalid link health %d", args.Health)
		}
		link.LinkHealth = health
		return p.store(linkPK, payer, link.Serialize())
	})
}

// DeleteLink marks the link Deleting for the activator to deprovision. An
// activated link must be drained first; the atomic path is the only way to
// remove one directly.
func (p *Processor) DeleteLink(payer, linkPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		if err := p.linkContributorAuth(gs, link, payer); err != nil {
			return err
		}
		if link.Status == state.LinkStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "link %q is activated, drain it or use the atomic delete", link.Code)
		}
		if err := state.CheckLinkTransition(link.Status, state.LinkStatusDeleting); err != nil {
			return err
		}
		link.Status = state.LinkStatusDeleting
		return p.store(linkPK, payer, link.Serialize())
	})
}

// DeleteLinkAtomic deallocates the link's tunnel resources and closes the
// account in one transaction. Gated on the atomic-delete feature flag.
func (p *Processor) DeleteLinkAtomic(payer, linkPK, linkIdsPK, deviceTunnelBlockPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if gs.FeatureFlags&state.FeatureFlagAtomicDelete == 0 {
			return dzerror.Newf(dzerror.NotAllowed, "atomic delete is not enabled")
		}
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		if err := p.linkContributorAuth(gs, link, payer); err != nil {
			return err
		}
		if link.Status == state.LinkStatusDeleting {
			return dzerror.Newf(dzerror.InvalidStatus, "link %q is already deleting", link.Code)
		}
		if link.TunnelId != 0 {
			if err := p.deallocID(linkIdsPK, payer, link.TunnelId); err != nil {
				return err
			}
		}
		if link.TunnelNet != ([5]byte{}) {
			cfg, err := p.globalConfig()
			if err != nil {
				return err
			}
			if err := p.deallocIP(deviceTunnelBlockPK, payer, link.TunnelNet, cfg.LinkTunnelPrefix); err != nil {
				return err
			}
		}
		return p.releaseLink(payer, link)
	})
}

// CloseAccountLink finishes a legacy delete after the activator has freed
// the link's resources.
func (p *Processor) CloseAccountLink(payer, linkPK solana.PublicKey) error {
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
		link, err := p.link(linkPK)
		if err != nil {
			return err
		}
		if link.Status != state.LinkStatusDeleting && link.Status != state.LinkStatusRejected {
			return dzerror.Newf(dzerror.InvalidStatus, "link %q is %s, not deleting", link.Code, link.Status)
		}
		return p.releaseLink(payer, link)
	})
}

func (p *Processor) linkContributorAuth(gs *state.GlobalState, link *state.Link, payer solana.PublicKey) error {
	c, err := p.contributor(asPK(link.ContributorPubKey))
	if err != nil {
		return err
	}
	return requireContributor(c, gs, payer)
}

// releaseLink decrements the dependents and closes the link account.
func (p *Processor) releaseLink(payer solana.PublicKey, link *state.Link) error {
	if c, err := p.contributor(asPK(link.ContributorPubKey)); err == nil && c.ReferenceCount > 0 {
		c.ReferenceCount--
		if err := p.store(asPK(link.ContributorPubKey), payer, c.Serialize()); err != nil {
			return err
		}
	}
	for _, devKey := range [][32]byte{link.SideAPubKey, link.SideZPubKey} {
		dev, err := p.device(asPK(devKey))
		if err != nil {
			continue
		}
		if dev.ReferenceCount > 0 {
			dev.ReferenceCount--
			if err := p.store(asPK(devKey), payer, dev.Serialize()); err != nil {
				return err
			}
		}
	}
	return p.closeTo(asPK(link.PubKey), asPK(link.Owner))
}
