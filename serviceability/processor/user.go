package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// tunnelEndpointFor picks the IP users tunnel to: a flagged interface when
// one exists, the device public IP otherwise.
func tunnelEndpointFor(dev *state.Device) [4]byte {
	for _, iface := range dev.Interfaces {
		if iface.UserTunnelEndpoint && iface.IpNet != ([5]byte{}) {
			return [4]byte(iface.IpNet[:4])
		}
	}
	return dev.PublicIp
}

// prepareUser runs the shared CreateUser path: access pass resolution and
// binding, device capacity gates, and the initial Pending record. The
// caller finishes subscriptions and persists everything.
func (p *Processor) prepareUser(gs *state.GlobalState, payer, devPK, tenantPK solana.PublicKey, userType, cyoaType uint8, clientIP [4]byte) (*state.User, *state.AccessPass, *state.Device, error) {
	ap, err := p.accessPassFor(clientIP, payer)
	if err != nil {
		return nil, nil, nil, err
	}
	if ap.UserPayer != pk32(payer) {
		return nil, nil, nil, dzerror.Newf(dzerror.AccessPassMismatch, "access pass belongs to another payer")
	}
	if ap.IsExpired(p.ledger.Clock().Epoch) {
		return nil, nil, nil, dzerror.Newf(dzerror.AccessPassExpired, "access pass expired at epoch %d", ap.LastAccessEpoch)
	}
	if _, err := checkAccessPassIP(ap, clientIP); err != nil {
		return nil, nil, nil, err
	}

	dev, err := p.device(devPK)
	if err != nil {
		return nil, nil, nil, err
	}
	if dev.Status != state.DeviceStatusActivated {
		return nil, nil, nil, dzerror.Newf(dzerror.InvalidStatus, "device %q is %s", dev.Code, dev.Status)
	}
	if !gs.IsQA(pk32(payer)) && dev.UsersCount >= dev.MaxUsers {
		return nil, nil, nil, dzerror.Newf(dzerror.MaxUsersExceeded, "device %q is full (%d users)", dev.Code, dev.UsersCount)
	}

	ut := state.UserUserType(userType)
	if ut > state.UserTypeMulticast {
		return nil, nil, nil, dzerror.Newf(dzerror.InvalidAccountData, "invalid user type %d", userType)
	}
	ct := state.CyoaType(cyoaType)
	if ct > state.CyoaTypeGREOverCable {
		return nil, nil, nil, dzerror.Newf(dzerror.InvalidAccountData, "invalid cyoa type %d", cyoaType)
	}

	userPK, bump, err := pda.DeriveUserPDA(p.programID, clientIP, userType)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, ok := p.ledger.Account(userPK); ok {
		return nil, nil, nil, dzerror.Newf(dzerror.AccountAlreadyExists, "user already exists for this client ip")
	}

	index, err := p.nextAccountIndex(payer)
	if err != nil {
		return nil, nil, nil, err
	}
	user := &state.User{
		AccountType:     state.UserType,
		Owner:           pk32(payer),
		Index:           index,
		BumpSeed:        bump,
		UserType:        ut,
		TenantPubKey:    pk32(tenantPK),
		DevicePubKey:    pk32(devPK),
		CyoaType:        ct,
		ClientIp:        clientIP,
		Status:          state.UserStatusPending,
		ValidatorPubKey: ap.AssociatedPubkey,
		TunnelEndpoint:  tunnelEndpointFor(dev),
		PubKey:          pk32(userPK),
	}
	return user, ap, dev, nil
}

// finishUser persists the user and the derived counters on the device and
// the access pass.
func (p *Processor) finishUser(payer solana.PublicKey, user *state.User, ap *state.AccessPass, dev *state.Device) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if err := p.create(asPK(user.PubKey), payer, user.Serialize()); err != nil {
		return err
	}
	dev.UsersCount++
	if user.UserType == state.UserTypeMulticast {
		dev.MulticastUsersCount++
	} else {
		dev.UnicastUsersCount++
	}
	if err := p.store(asPK(dev.PubKey), payer, dev.Serialize()); err != nil {
		return err
	}
	ap.ConnectionCount++
	ap.Status = state.AccessPassStatusConnected
	return p.store(asPK(ap.PubKey), payer, ap.Serialize())
}

// CreateUser provisions a unicast user on a device. Authorization is the
// access pass bound to (client_ip, payer).
func (p *Processor) CreateUser(payer, devPK, tenantPK solana.PublicKey, args instruction.CreateUserArgs) (userPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if state.UserUserType(args.UserType) == state.UserTypeMulticast {
			return dzerror.Newf(dzerror.InvalidAccountData, "multicast users are created with the subscribe variant")
		}
		user, ap, dev, err := p.prepareUser(gs, payer, devPK, tenantPK, args.UserType, args.CyoaType, args.ClientIp)
		if err != nil {
			return err
		}
		userPK = asPK(user.PubKey)
		return p.finishUser(payer, user, ap, dev)
	})
	return userPK, err
}

// CreateSubscribeUser provisions a multicast user and joins it to a group
// in one transaction. Roles are gated on the access pass allowlists.
func (p *Processor) CreateSubscribeUser(payer, devPK, tenantPK, mgroupPK solana.PublicKey, args instruction.CreateSubscribeUserArgs) (userPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if state.UserUserType(args.UserType) != state.UserTypeMulticast {
			return dzerror.Newf(dzerror.InvalidAccountData, "subscribe variant requires a multicast user")
		}
		if !args.Publisher && !args.Subscriber {
			return dzerror.Newf(dzerror.InvalidAccountData, "subscribe needs at least one role")
		}
		user, ap, dev, err := p.prepareUser(gs, payer, devPK, tenantPK, args.UserType, args.CyoaType, args.ClientIp)
		if err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgroupPK)
		if err != nil {
			return err
		}
		if mg.Status != state.MulticastGroupStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "multicast group %q is %s", mg.Code, mg.Status)
		}
		if args.Publisher {
			if err := p.mgroupAllowlisted(payer, ap, mgroupPK, state.MGroupRolePublisher); err != nil {
				return err
			}
			user.Publishers = append(user.Publishers, pk32(mgroupPK))
			mg.PublisherCount++
		}
		if args.Subscriber {
			// Only the publisher role is allowlist-gated; any valid access
			// pass may subscribe.
			user.Subscribers = append(user.Subscribers, pk32(mgroupPK))
			mg.SubscriberCount++
		}
		if err := p.store(mgroupPK, payer, mg.Serialize()); err != nil {
			return err
		}
		userPK = asPK(user.PubKey)
		return p.finishUser(payer, user, ap, dev)
	})
	return userPK, err
}

// ActivateUser is submitted by the activator with the allocated tunnel and,
// for publishers, a dz IP.
func (p *Processor) ActivateUser(payer, userPK solana.PublicKey, args instruction.ActivateUserArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if err := state.CheckUserTransition(user.Status, state.UserStatusActivated); err != nil {
			return err
		}
		user.Status = state.UserStatusActivated
		user.TunnelId = args.TunnelId
		user.TunnelNet = args.TunnelNet
		user.DzIp = args.DzIp
		return p.store(userPK, payer, user.Serialize())
	})
}

// UpdateUser lets the activator reconcile dataplane-derived fields.
func (p *Processor) UpdateUser(payer, userPK solana.PublicKey, args instruction.UpdateUserArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if args.DzIp != nil {
			user.DzIp = *args.DzIp
		}
		if args.TunnelId != nil {
			user.TunnelId = *args.TunnelId
		}
		if args.TunnelNet != nil {
			user.TunnelNet = *args.TunnelNet
		}
		if user.Status == state.UserStatusUpdating {
			user.Status = state.UserStatusActivated
		}
		return p.store(userPK, payer, user.Serialize())
	})
}

func (p *Processor) RejectUser(payer, userPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireActivator(gs, payer); err != nil {
			return err
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if err := state.CheckUserTransition(user.Status, state.UserStatusRejected); err != nil {
			return err
		}
		user.Status = state.UserStatusRejected
		return p.store(userPK, payer, user.Serialize())
	})
}

// SubscribeMulticastGroup joins an existing multicast user to a group. A
// publisher-list transition between empty and non-empty moves an activated
// user to Updating so the activator reconciles its dz IP.
func (p *Processor) SubscribeMulticastGroup(payer, userPK, mgroupPK solana.PublicKey, args instruction.SubscribeMulticastGroupArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(user.Owner, gs, payer); err != nil {
			return err
		}
		if user.UserType != state.UserTypeMulticast {
			return dzerror.Newf(dzerror.MulticastNotAllowed, "user is not a multicast user")
		}
		if !args.Publisher && !args.Subscriber {
			return dzerror.Newf(dzerror.InvalidAccountData, "subscribe needs at least one role")
		}
		ap, err := p.accessPassFor(user.ClientIp, asPK(user.Owner))
		if err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgroupPK)
		if err != nil {
			return err
		}
		if mg.Status != state.MulticastGroupStatusActivated {
			return dzerror.Newf(dzerror.InvalidStatus, "multicast group %q is %s", mg.Code, mg.Status)
		}

		hadPublishers := len(user.Publishers) > 0
		if args.Publisher {
			if user.IsPublisher(pk32(mgroupPK)) {
				return dzerror.Newf(dzerror.AccountAlreadyExists, "user already publishes %q", mg.Code)
			}
			if err := p.mgroupAllowlisted(payer, ap, mgroupPK, state.MGroupRolePublisher); err != nil {
				return err
			}
			user.Publishers = append(user.Publishers, pk32(mgroupPK))
			mg.PublisherCount++
		}
		if args.Subscriber {
			if user.IsSubscriber(pk32(mgroupPK)) {
				return dzerror.Newf(dzerror.AccountAlreadyExists, "user already subscribes %q", mg.Code)
			}
			user.Subscribers = append(user.Subscribers, pk32(mgroupPK))
			mg.SubscriberCount++
		}
		if user.Status == state.UserStatusActivated && hadPublishers != (len(user.Publishers) > 0) {
			user.Status = state.UserStatusUpdating
		}
		if err := p.store(asPK(ap.PubKey), payer, ap.Serialize()); err != nil {
			return err
		}
		if err := p.store(mgroupPK, payer, mg.Serialize()); err != nil {
			return err
		}
		if err := user.Validate(); err != nil {
			return err
		}
		return p.store(userPK, payer, user.Serialize())
	})
}

func (p *Processor) UnsubscribeMulticastGroup(payer, userPK, mgroupPK solana.PublicKey, args instruction.UnsubscribeMulticastGroupArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(user.Owner, gs, payer); err != nil {
			return err
		}
		mg, err := p.multicastGroup(mgroupPK)
		if err != nil {
			return err
		}

		hadPublishers := len(user.Publishers) > 0
		if args.Publisher {
			rest, found := removeKey(user.Publishers, pk32(mgroupPK))
			if !found {
				return dzerror.Newf(dzerror.AccountNotFound, "user does not publish %q", mg.Code)
			}
			user.Publishers = rest
			if mg.PublisherCount > 0 {
				mg.PublisherCount--
			}
		}
		if args.Subscriber {
			rest, found := removeKey(user.Subscribers, pk32(mgroupPK))
			if !found {
				return dzerror.Newf(dzerror.AccountNotFound, "user does not subscribe %q", mg.Code)
			}
			user.Subscribers = rest
			if mg.SubscriberCount > 0 {
				mg.SubscriberCount--
			}
		}
		if user.Status == state.UserStatusActivated && hadPublishers != (len(user.Publishers) > 0) {
			user.Status = state.UserStatusUpdating
		}
		if err := p.store(mgroupPK, payer, mg.Serialize()); err != nil {
			return err
		}
		return p.store(userPK, payer, user.Serialize())
	})
}

// DeleteUser marks the user Deleting for the activator to deprovision.
func (p *Processor) DeleteUser(payer, userPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if pk32(payer) != user.Owner && pk32(payer) != gs.SentinelAuthorityPK {
			if err := requireFoundation(gs, payer); err != nil {
				return err
			}
		}
		if err := state.CheckUserTransition(user.Status, state.UserStatusDeleting); err != nil {
			return err
		}
		user.Status = state.UserStatusDeleting
		return p.store(userPK, payer, user.Serialize())
	})
}

// DeleteUserAtomic frees the user's allocations and closes the account in
// one transaction. Gated on the atomic-delete feature flag. Zero pool keys
// skip the corresponding deallocation.
func (p *Processor) DeleteUserAtomic(payer, userPK, userTunnelBlockPK, dzPrefixBlockPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if gs.FeatureFlags&state.FeatureFlagAtomicDelete == 0 {
			return dzerror.Newf(dzerror.NotAllowed, "atomic delete is not enabled")
		}
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		if pk32(payer) != user.Owner && pk32(payer) != gs.SentinelAuthorityPK {
			if err := requireFoundation(gs, payer); err != nil {
				return err
			}
		}
		if user.Status == state.UserStatusDeleting || user.Status == state.UserStatusUpdating {
			return dzerror.Newf(dzerror.InvalidStatus, "user is %s", user.Status)
		}
		if user.TunnelNet != ([5]byte{}) && !userTunnelBlockPK.IsZero() {
			cfg, err := p.globalConfig()
			if err != nil {
				return err
			}
			if err := p.deallocIP(userTunnelBlockPK, payer, user.TunnelNet, cfg.UserTunnelPrefix); err != nil {
				return err
			}
		}
		if user.DzIp != ([4]byte{}) && !dzPrefixBlockPK.IsZero() {
			if err := p.deallocIP(dzPrefixBlockPK, payer, [5]byte{user.DzIp[0], user.DzIp[1], user.DzIp[2], user.DzIp[3], 32}, 32); err != nil {
				return err
			}
		}
		return p.releaseUser(payer, user)
	})
}

// CloseAccountUser finishes a legacy delete after the activator freed the
// user's dataplane resources.
func (p *Processor) CloseAccountUser(payer, userPK solana.PublicKey) error {
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
		user, err := p.user(userPK)
		if err != nil {
			return err
		}
		switch user.Status {
		case state.UserStatusDeleting, state.UserStatusRejected, state.UserStatusBanned:
		default:
			return dzerror.Newf(dzerror.InvalidStatus, "user is %s, not deleting", user.Status)
		}
		return p.releaseUser(payer, user)
	})
}

// releaseUser drops the user's derived counters and closes the account.
func (p *Processor) releaseUser(payer solana.PublicKey, user *state.User) error {
	if dev, err := p.device(asPK(user.DevicePubKey)); err == nil {
		if dev.UsersCount > 0 {
			dev.UsersCount--
		}
		if user.UserType == state.UserTypeMulticast {
			if dev.MulticastUsersCount > 0 {
				dev.MulticastUsersCount--
			}
		} else if dev.UnicastUsersCount > 0 {
			dev.UnicastUsersCount--
		}
		if err := p.store(asPK(user.DevicePubKey), payer, dev.Serialize()); err != nil {
			return err
		}
	}

	for _, group := range user.Publishers {
		if mg, err := p.multicastGroup(asPK(group)); err == nil && mg.PublisherCount > 0 {
			mg.PublisherCount--
			if err := p.store(asPK(group), payer, mg.Serialize()); err != nil {
				return err
			}
		}
	}
	for _, group := range user.Subscribers {
		if mg, err := p.multicastGroup(asPK(group)); err == nil && mg.SubscriberCount > 0 {
			mg.SubscriberCount--
			if err := p.store(asPK(group), payer, mg.Serialize()); err != nil {
				return err
			}
		}
	}

	if ap, err := p.accessPassFor(user.ClientIp, asPK(user.Owner)); err == nil {
		if ap.ConnectionCount > 0 {
			ap.ConnectionCount--
		}
		if ap.ConnectionCount == 0 {
			ap.Status = state.AccessPassStatusDisconnected
			if ap.IsDynamic() && ap.AllowMultipleIP() {
				ap.ClientIp = [4]byte{}
			}
		}
		if err := p.store(asPK(ap.PubKey), payer, ap.Serialize()); err != nil {
			return err
		}
	}
	return p.closeTo(asPK(user.PubKey), asPK(user.Owner))
}
