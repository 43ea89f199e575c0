package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// CreateDevice registers a device under a contributor at a location and
// exchange. The contributor, location, and exchange gain a dependent.
func (p *Processor) CreateDevice(payer, conPK, locPK, exPK solana.PublicKey, args instruction.CreateDeviceArgs) (devPK solana.PublicKey, err error) {
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
		if c.Status != state.ContributorStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "contributor %q is %s", c.Code, c.Status)
		}
		loc, err := p.location(locPK)
		if err != nil {
			return err
		}
		if loc.Status != state.LocationStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "location %q is %s", loc.Code, loc.Status)
		}
		ex, err := p.exchange(exPK)
		if err != nil {
			return err
		}
		if ex.Status != state.ExchangeStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "exchange %q is %s", ex.Code, ex.Status)
		}
		code, err := normalizeCode(args.Code)
		if err != nil {
			return err
		}
		if p.codeTaken(state.DeviceType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "device code %q already in use", code)
		}
		if len(args.DzPrefixes) == 0 {
			return dzerror.Newf(dzerror.InvalidAccountData, "device needs at least one dz prefix")
		}
		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveDevicePDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		dev := &state.Device{
			AccountType:            state.DeviceType,
			Owner:                  pk32(payer),
			Index:                  index,
			BumpSeed:               bump,
			LocationPubKey:         pk32(locPK),
			ExchangePubKey:         pk32(exPK),
			DeviceType:             state.DeviceDeviceType(args.DeviceType),
			PublicIp:               args.PublicIp,
			Status:                 state.DeviceStatusPending,
			Code:                   code,
			DzPrefixes:             args.DzPrefixes,
			MetricsPublisherPubKey: args.MetricsPublisherPK,
			ContributorPubKey:      pk32(conPK),
			MgmtVrf:                args.MgmtVrf,
			MaxUsers:               args.MaxUsers,
			MaxUnicastUsers:        args.MaxUsers,
			MaxMulticastUsers:      args.MaxUsers,
			DeviceHealth:           state.DeviceHealthUnknown,
			DeviceDesiredStatus:    state.DeviceDesiredStatusActivated,
			PubKey:                 pk32(pk),
		}
		if err := dev.Validate(); err != nil {
			return err
		}
		if err := p.create(pk, payer, dev.Serialize()); err != nil {
			return err
		}

		c.ReferenceCount++
		if err := p.store(conPK, payer, c.Serialize()); err != nil {
			return err
		}
		loc.ReferenceCount++
		if err := p.store(locPK, payer, loc.Serialize()); err != nil {
			return err
		}
		ex.ReferenceCount++
		if err := p.store(exPK, payer, ex.Serialize()); err != nil {
			return err
		}
		devPK = pk
		return nil
	})
	return devPK, err
}

// deviceContributorAuth loads the device's contributor and checks the payer
// against it and the foundation.
func (p *Processor) deviceContributorAuth(gs *state.GlobalState, dev *state.Device, payer solana.PublicKey) error {
	c, err := p.contributor(asPK(dev.ContributorPubKey))
	if err != nil {
		return err
	}
	return requireContributor(c, gs, payer)
}

func (p *Processor) UpdateDevice(payer, devPK solana.PublicKey, args instruction.UpdateDeviceArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := p.deviceContributorAuth(gs, dev, payer); err != nil {
			return err
		}
		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != dev.Code && p.codeTaken(state.DeviceType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "device code %q already in use", code)
			}
			dev.Code = code
		}
		if args.DeviceType != nil {
			dev.DeviceType = state.DeviceDeviceType(*args.DeviceType)
		}
		if args.PublicIp != nil {
			dev.PublicIp = *args.PublicIp
		}
		if args.DzPrefixes != nil {
			if len(*args.DzPrefixes) == 0 {
				return dzerror.Newf(dzerror.InvalidAccountData, "device needs at least one dz prefix")
			}
			dev.DzPrefixes = *args.DzPrefixes
		}
		if args.MetricsPublisherPK != nil {
			dev.MetricsPublisherPubKey = *args.MetricsPublisherPK
		}
		if args.MgmtVrf != nil {
			dev.MgmtVrf = *args.MgmtVrf
		}
		if args.MaxUsers != nil {
			dev.MaxUsers = *args.MaxUsers
		}
		if args.DesiredStatus != nil {
			desired := state.DeviceDesiredStatus(*args.DesiredStatus)
			switch desired {
			case state.DeviceDesiredStatusPending, state.DeviceDesiredStatusActivated, state.DeviceDesiredStatusDrained:
				dev.DeviceDesiredStatus = desired
			default:
				return dzerror.Newf(dzerror.InvalidStatus, "invalid desired status %d", *args.DesiredStatus)
			}
		}
		if err := dev.Validate(); err != nil {
			return err
		}
		return p.store(devPK, payer, dev.Serialize())
	})
}

// ActivateDevice is submitted by the activator once the device is
// provisioned. Impaired health blocks activation.
func (p *Processor) ActivateDevice(payer, devPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := state.CheckDeviceTransition(dev.Status, state.DeviceStatusActivated, dev.DeviceHealth); err != nil {
			return err
		}
		dev.Status = state.DeviceStatusActivated
		// Loopback interfaces come up with the device; physical interfaces
		// wait for a link to bind them.
		for i := range dev.Interfaces {
			iface := &dev.Interfaces[i]
			if iface.InterfaceType == state.InterfaceTypeLoopback && iface.Status == state.InterfaceStatusPending {
				iface.Status = state.InterfaceStatusActivated
			}
		}
		return p.store(devPK, payer, dev.Serialize())
	})
}

func (p *Processor) RejectDevice(payer, devPK solana.PublicKey) error {
	return p.activatorDeviceStatus(payer, devPK, state.DeviceStatusRejected)
}

func (p *Processor) activatorDeviceStatus(payer, devPK solana.PublicKey, to state.DeviceStatus) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := state.CheckDeviceTransition(dev.Status, to, dev.DeviceHealth); err != nil {
			return err
		}
		dev.Status = to
		return p.store(devPK, payer, dev.Serialize())
	})
}

func (p *Processor) SuspendDevice(payer, devPK solana.PublicKey) error {
	return p.foundationDeviceStatus(payer, devPK, state.DeviceStatusSuspended)
}

func (p *Processor) ResumeDevice(payer, devPK solana.PublicKey) error {
	return p.foundationDeviceStatus(payer, devPK, state.DeviceStatusActivated)
}

func (p *Processor) foundationDeviceStatus(payer, devPK solana.PublicKey, to state.DeviceStatus) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := state.CheckDeviceTransition(dev.Status, to, dev.DeviceHealth); err != nil {
			return err
		}
		dev.Status = to
		return p.store(devPK, payer, dev.Serialize())
	})
}

// SetDeviceHealth is restricted to the health oracle.
func (p *Processor) SetDeviceHealth(payer, devPK solana.PublicKey, args instruction.SetDeviceHealthArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireHealthOracle(gs, payer); err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		health := state.DeviceHealth(args.Health)
		if health > state.DeviceHealthImpaired {
			return dzerror.Newf(dzerror.InvalidStatus, "invalid device health %d", args.Health)
		}
		dev.DeviceHealth = health
		return p.store(devPK, payer, dev.Serialize())
	})
}

// DeleteDevice marks the device Deleting; the activator deprovisions it and
// then closes the account.
func (p *Processor) DeleteDevice(payer, devPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := p.deviceContributorAuth(gs, dev, payer); err != nil {
			return err
		}
		if err := state.CheckDeviceTransition(dev.Status, state.DeviceStatusDeleting, dev.DeviceHealth); err != nil {
			return err
		}
		if dev.UsersCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "device %q has %d users", dev.Code, dev.UsersCount)
		}
		if dev.ReferenceCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "device %q has %d links", dev.Code, dev.ReferenceCount)
		}
		dev.Status = state.DeviceStatusDeleting
		return p.store(devPK, payer, dev.Serialize())
	})
}

// CloseAccountDevice finishes a delete: it releases the device's dependents
// and returns the rent to the device owner.
func (p *Processor) CloseAccountDevice(payer, devPK solana.PublicKey) error {
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
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if dev.Status != state.DeviceStatusDeleting && dev.Status != state.DeviceStatusRejected {
			return dzerror.Newf(dzerror.InvalidStatus, "device %q is %s, not deleting", dev.Code, dev.Status)
		}
		if c, err := p.contributor(asPK(dev.ContributorPubKey)); err == nil && c.ReferenceCount > 0 {
			c.ReferenceCount--
			if err := p.store(asPK(dev.ContributorPubKey), payer, c.Serialize()); err != nil {
				return err
			}
		}
		if loc, err := p.location(asPK(dev.LocationPubKey)); err == nil && loc.ReferenceCount > 0 {
			loc.ReferenceCount--
			if err := p.store(asPK(dev.LocationPubKey), payer, loc.Serialize()); err != nil {
				return err
			}
		}
		if ex, err := p.exchange(asPK(dev.ExchangePubKey)); err == nil && ex.ReferenceCount > 0 {
			ex.ReferenceCount--
			if err := p.store(asPK(dev.ExchangePubKey), payer, ex.Serialize()); err != nil {
				return err
			}
		}
		return p.closeTo(devPK, asPK(dev.Owner))
	})
}

// CreateDeviceInterface appends an interface record to the device.
func (p *Processor) CreateDeviceInterface(payer, devPK solana.PublicKey, args instruction.CreateDeviceInterfaceArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := p.deviceContributorAuth(gs, dev, payer); err != nil {
			return err
		}
		if _, ok := dev.FindInterface(args.Name); ok {
			return dzerror.Newf(dzerror.InvalidInterfaceName, "interface %q already exists on device %q", args.Name, dev.Code)
		}
		iface := state.Interface{
			Version:            state.CurrentInterfaceVersion - 1,
			Status:             state.InterfaceStatusPending,
			Name:               args.Name,
			InterfaceType:      state.InterfaceType(args.InterfaceType),
			LoopbackType:       state.LoopbackType(args.LoopbackType),
			Bandwidth:          args.Bandwidth,
			Cir:                args.Cir,
			Mtu:                args.Mtu,
			RoutingMode:        state.RoutingMode(args.RoutingMode),
			VlanId:             args.VlanId,
			IpNet:              args.IpNet,
			NodeSegmentIdx:     args.NodeSegmentIdx,
			UserTunnelEndpoint: args.UserTunnelEndpoint,
		}
		if err := iface.Validate(); err != nil {
			return err
		}
		dev.Interfaces = append(dev.Interfaces, iface)
		if err := dev.Validate(); err != nil {
			return err
		}
		return p.store(devPK, payer, dev.Serialize())
	})
}

func (p *Processor) UpdateDeviceInterface(payer, devPK solana.PublicKey, args instruction.UpdateDeviceInterfaceArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := p.deviceContributorAuth(gs, dev, payer); err != nil {
			return err
		}
		idx := -1
		for i := range dev.Interfaces {
			if dev.Interfaces[i].Name == args.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return dzerror.Newf(dzerror.InvalidInterfaceName, "interface %q not found on device %q", args.Name, dev.Code)
		}
		iface := &dev.Interfaces[idx]
		if args.Status != nil {
			status := state.InterfaceStatus(*args.Status)
			if status > state.InterfaceStatusUnlinked {
				return dzerror.Newf(dzerror.InvalidStatus, "invalid interface status %d", *args.Status)
			}
			iface.Status = status
		}
		if args.VlanId != nil {
			iface.VlanId = *args.VlanId
		}
		if args.IpNet != nil {
			iface.IpNet = *args.IpNet
		}
		if args.NodeSegmentIdx != nil {
			iface.NodeSegmentIdx = *args.NodeSegmentIdx
		}
		if args.UserTunnelEndpoint != nil {
			iface.UserTunnelEndpoint = *args.UserTunnelEndpoint
		}
		if args.Bandwidth != nil {
			iface.Bandwidth = *args.Bandwidth
		}
		if args.Cir != nil {
			iface.Cir = *args.Cir
		}
		if args.Mtu != nil {
			iface.Mtu = *args.Mtu
		}
		if args.RoutingMode != nil {
			iface.RoutingMode = state.RoutingMode(*args.RoutingMode)
		}
		if err := iface.Validate(); err != nil {
			return err
		}
		return p.store(devPK, payer, dev.Serialize())
	})
}

// RemoveDeviceInterface drops an interface. Interfaces referenced by a live
// link cannot be removed.
func (p *Processor) RemoveDeviceInterface(payer, devPK solana.PublicKey, name string) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		dev, err := p.device(devPK)
		if err != nil {
			return err
		}
		if err := p.deviceContributorAuth(gs, dev, payer); err != nil {
			return err
		}
		if _, ok := dev.FindInterface(name); !ok {
			return dzerror.Newf(dzerror.InvalidInterfaceName, "interface %q not found on device %q", name, dev.Code)
		}
		if p.interfaceInUse(devPK, name) {
			return dzerror.Newf(dzerror.InterfaceInUse, "interface %q on device %q is attached to a link", name, dev.Code)
		}
		kept := dev.Interfaces[:0]
		for _, iface := range dev.Interfaces {
			if iface.Name != name {
				kept = append(kept, iface)
			}
		}
		dev.Interfaces = kept
		return p.store(devPK, payer, dev.Serialize())
	})
}

// interfaceInUse scans link accounts for an endpoint on (device, name).
func (p *Processor) interfaceInUse(devPK solana.PublicKey, name string) bool {
	for _, acc := range p.ledger.Accounts(p.programID) {
		if len(acc.Data) == 0 || state.AccountType(acc.Data[0]) != state.LinkType {
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
