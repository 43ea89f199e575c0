package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// Execute decodes one instruction and runs it against the ledger. The
// payer is the transaction signer; accounts carries the entity addresses
// the instruction operates on, in the positional order listed per tag
// below. Entity PDAs for create instructions are derived internally.
func (p *Processor) Execute(payer solana.PublicKey, accounts []solana.PublicKey, data []byte) error {
	tag, decoded, err := instruction.Decode(data)
	if err != nil {
		return err
	}

	at := func(i int) (solana.PublicKey, error) {
		if i >= len(accounts) {
			return solana.PublicKey{}, dzerror.Newf(dzerror.InvalidAccountData, "%s: missing account %d", tag, i)
		}
		return accounts[i], nil
	}
	// optional trailing accounts default to the zero key
	opt := func(i int) solana.PublicKey {
		if i >= len(accounts) {
			return solana.PublicKey{}
		}
		return accounts[i]
	}

	switch tag {
	case instruction.TagInitGlobalState:
		return p.InitGlobalState(payer)
	case instruction.TagSetAuthority:
		return p.SetAuthority(payer, decoded.(instruction.SetAuthorityArgs))
	case instruction.TagAddFoundationAllowlist:
		return p.AddFoundationAllowlist(payer, decoded.(instruction.AddFoundationAllowlistArgs).Pubkey)
	case instruction.TagRemoveFoundationAllowlist:
		return p.RemoveFoundationAllowlist(payer, decoded.(instruction.RemoveFoundationAllowlistArgs).Pubkey)
	case instruction.TagAddQAAllowlist:
		return p.AddQAAllowlist(payer, decoded.(instruction.AddQAAllowlistArgs).Pubkey)
	case instruction.TagRemoveQAAllowlist:
		return p.RemoveQAAllowlist(payer, decoded.(instruction.RemoveQAAllowlistArgs).Pubkey)
	case instruction.TagSetFeatureFlags:
		return p.SetFeatureFlags(payer, decoded.(instruction.SetFeatureFlagsArgs))
	case instruction.TagSetGlobalConfig:
		return p.SetGlobalConfig(payer, decoded.(instruction.SetGlobalConfigArgs))
	case instruction.TagSetProgramVersion:
		return p.SetProgramVersion(payer, decoded.(instruction.SetProgramVersionArgs))

	case instruction.TagCreateLocation:
		_, err := p.CreateLocation(payer, decoded.(instruction.CreateLocationArgs))
		return err
	case instruction.TagUpdateLocation:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateLocation(payer, pk, decoded.(instruction.UpdateLocationArgs))
		})
	case instruction.TagSuspendLocation:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.SuspendLocation(payer, pk) })
	case instruction.TagResumeLocation:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.ResumeLocation(payer, pk) })
	case instruction.TagDeleteLocation:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteLocation(payer, pk) })

	case instruction.TagCreateExchange:
		_, err := p.CreateExchange(payer, decoded.(instruction.CreateExchangeArgs))
		return err
	case instruction.TagUpdateExchange:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateExchange(payer, pk, decoded.(instruction.UpdateExchangeArgs))
		})
	case instruction.TagSuspendExchange:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.SuspendExchange(payer, pk) })
	case instruction.TagResumeExchange:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.ResumeExchange(payer, pk) })
	case instruction.TagDeleteExchange:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteExchange(payer, pk) })

	case instruction.TagCreateContributor:
		_, err := p.CreateContributor(payer, decoded.(instruction.CreateContributorArgs))
		return err
	case instruction.TagUpdateContributor:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateContributor(payer, pk, decoded.(instruction.UpdateContributorArgs))
		})
	case instruction.TagSuspendContributor:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.SuspendContributor(payer, pk) })
	case instruction.TagResumeContributor:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.ResumeContributor(payer, pk) })
	case instruction.TagDeleteContributor:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteContributor(payer, pk) })

	// accounts: [contributor, location, exchange]
	case instruction.TagCreateDevice:
		conPK, err := at(0)
		if err != nil {
			return err
		}
		locPK, err := at(1)
		if err != nil {
			return err
		}
		exPK, err := at(2)
		if err != nil {
			return err
		}
		_, err = p.CreateDevice(payer, conPK, locPK, exPK, decoded.(instruction.CreateDeviceArgs))
		return err
	case instruction.TagUpdateDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateDevice(payer, pk, decoded.(instruction.UpdateDeviceArgs))
		})
	case instruction.TagActivateDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.ActivateDevice(payer, pk) })
	case instruction.TagRejectDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.RejectDevice(payer, pk) })
	case instruction.TagSuspendDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.SuspendDevice(payer, pk) })
	case instruction.TagResumeDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.ResumeDevice(payer, pk) })
	case instruction.TagDeleteDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteDevice(payer, pk) })
	case instruction.TagCloseAccountDevice:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.CloseAccountDevice(payer, pk) })
	case instruction.TagSetDeviceHealth:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.SetDeviceHealth(payer, pk, decoded.(instruction.SetDeviceHealthArgs))
		})
	case instruction.TagCreateDeviceInterface:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.CreateDeviceInterface(payer, pk, decoded.(instruction.CreateDeviceInterfaceArgs))
		})
	case instruction.TagUpdateDeviceInterface:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateDeviceInterface(payer, pk, decoded.(instruction.UpdateDeviceInterfaceArgs))
		})
	case instruction.TagRemoveDeviceInterface:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.RemoveDeviceInterface(payer, pk, decoded.(instruction.RemoveDeviceInterfaceArgs).Name)
		})

	// accounts: [contributor, side A device, side Z device]
	case instruction.TagCreateLink:
		conPK, err := at(0)
		if err != nil {
			return err
		}
		sideAPK, err := at(1)
		if err != nil {
			return err
		}
		sideZPK, err := at(2)
		if err != nil {
			return err
		}
		_, err = p.CreateLink(payer, conPK, sideAPK, sideZPK, decoded.(instruction.CreateLinkArgs))
		return err
	case instruction.TagAcceptLink:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.AcceptLink(payer, pk, decoded.(instruction.AcceptLinkArgs))
		})
	case instruction.TagUpdateLink:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateLink(payer, pk, decoded.(instruction.UpdateLinkArgs))
		})
	case instruction.TagActivateLink:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.ActivateLink(payer, pk, decoded.(instruction.ActivateLinkArgs))
		})
	case instruction.TagRejectLink:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.RejectLink(payer, pk) })
	case instruction.TagSetLinkHealth:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.SetLinkHealth(payer, pk, decoded.(instruction.SetLinkHealthArgs))
		})
	case instruction.TagDeleteLink:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteLink(payer, pk) })
	// accounts: [link, link ID pool, device tunnel block pool]
	case instruction.TagDeleteLinkAtomic:
		linkPK, err := at(0)
		if err != nil {
			return err
		}
		linkIdsPK, err := at(1)
		if err != nil {
			return err
		}
		tunnelBlockPK, err := at(2)
		if err != nil {
			return err
		}
		return p.DeleteLinkAtomic(payer, linkPK, linkIdsPK, tunnelBlockPK)
	case instruction.TagCloseAccountLink:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.CloseAccountLink(payer, pk) })

	// accounts: [device, tenant (optional)]
	case instruction.TagCreateUser:
		devPK, err := at(0)
		if err != nil {
			return err
		}
		_, err = p.CreateUser(payer, devPK, opt(1), decoded.(instruction.CreateUserArgs))
		return err
	// accounts: [device, multicast group, tenant (optional)]
	case instruction.TagCreateSubscribeUser:
		devPK, err := at(0)
		if err != nil {
			return err
		}
		mgroupPK, err := at(1)
		if err != nil {
			return err
		}
		_, err = p.CreateSubscribeUser(payer, devPK, opt(2), mgroupPK, decoded.(instruction.CreateSubscribeUserArgs))
		return err
	case instruction.TagActivateUser:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.ActivateUser(payer, pk, decoded.(instruction.ActivateUserArgs))
		})
	case instruction.TagUpdateUser:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateUser(payer, pk, decoded.(instruction.UpdateUserArgs))
		})
	case instruction.TagRejectUser:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.RejectUser(payer, pk) })
	// accounts: [user, multicast group]
	case instruction.TagSubscribeMulticastGroup:
		userPK, err := at(0)
		if err != nil {
			return err
		}
		mgroupPK, err := at(1)
		if err != nil {
			return err
		}
		return p.SubscribeMulticastGroup(payer, userPK, mgroupPK, decoded.(instruction.SubscribeMulticastGroupArgs))
	case instruction.TagUnsubscribeMulticastGroup:
		userPK, err := at(0)
		if err != nil {
			return err
		}
		mgroupPK, err := at(1)
		if err != nil {
			return err
		}
		return p.UnsubscribeMulticastGroup(payer, userPK, mgroupPK, decoded.(instruction.UnsubscribeMulticastGroupArgs))
	case instruction.TagDeleteUser:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteUser(payer, pk) })
	// accounts: [user, user tunnel block pool, dz prefix block pool]
	case instruction.TagDeleteUserAtomic:
		userPK, err := at(0)
		if err != nil {
			return err
		}
		return p.DeleteUserAtomic(payer, userPK, opt(1), opt(2))
	case instruction.TagCloseAccountUser:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.CloseAccountUser(payer, pk) })

	// accounts: [tenant (optional)]
	case instruction.TagCreateMulticastGroup:
		_, err := p.CreateMulticastGroup(payer, opt(0), decoded.(instruction.CreateMulticastGroupArgs))
		return err
	case instruction.TagUpdateMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateMulticastGroup(payer, pk, decoded.(instruction.UpdateMulticastGroupArgs))
		})
	case instruction.TagActivateMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.ActivateMulticastGroup(payer, pk, decoded.(instruction.ActivateMulticastGroupArgs))
		})
	case instruction.TagRejectMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.RejectMulticastGroup(payer, pk) })
	case instruction.TagSuspendMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.SuspendMulticastGroup(payer, pk) })
	case instruction.TagResumeMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.ResumeMulticastGroup(payer, pk) })
	case instruction.TagDeleteMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteMulticastGroup(payer, pk) })
	// accounts: [multicast group, multicast block pool]
	case instruction.TagDeleteMulticastGroupAtomic:
		mgPK, err := at(0)
		if err != nil {
			return err
		}
		return p.DeleteMulticastGroupAtomic(payer, mgPK, opt(1))
	case instruction.TagCloseAccountMulticastGroup:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.CloseAccountMulticastGroup(payer, pk) })

	// accounts: [access pass, multicast group]
	case instruction.TagAddMGroupPubAllowlist:
		return p.mgroupAllowlistOp(at, func(apPK, mgroupPK solana.PublicKey) error {
			return p.AddMGroupAllowlist(payer, apPK, mgroupPK, state.MGroupRolePublisher)
		})
	case instruction.TagRemoveMGroupPubAllowlist:
		return p.mgroupAllowlistOp(at, func(apPK, mgroupPK solana.PublicKey) error {
			return p.RemoveMGroupAllowlist(payer, apPK, mgroupPK, state.MGroupRolePublisher)
		})
	case instruction.TagAddMGroupSubAllowlist:
		return p.mgroupAllowlistOp(at, func(apPK, mgroupPK solana.PublicKey) error {
			return p.AddMGroupAllowlist(payer, apPK, mgroupPK, state.MGroupRoleSubscriber)
		})
	case instruction.TagRemoveMGroupSubAllowlist:
		return p.mgroupAllowlistOp(at, func(apPK, mgroupPK solana.PublicKey) error {
			return p.RemoveMGroupAllowlist(payer, apPK, mgroupPK, state.MGroupRoleSubscriber)
		})

	// accounts: [user payer wallet]
	case instruction.TagSetAccessPass:
		userPayer, err := at(0)
		if err != nil {
			return err
		}
		_, err = p.SetAccessPass(payer, userPayer, decoded.(instruction.SetAccessPassArgs))
		return err
	case instruction.TagCloseAccessPass:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.CloseAccessPass(payer, pk) })

	case instruction.TagCreateTenant:
		_, err := p.CreateTenant(payer, decoded.(instruction.CreateTenantArgs))
		return err
	case instruction.TagUpdateTenant:
		return p.oneAccount(at, func(pk solana.PublicKey) error {
			return p.UpdateTenant(payer, pk, decoded.(instruction.UpdateTenantArgs))
		})
	case instruction.TagDeleteTenant:
		return p.oneAccount(at, func(pk solana.PublicKey) error { return p.DeleteTenant(payer, pk) })

	// accounts: [device (DzPrefixBlock only, zero otherwise)]
	case instruction.TagInitializeResourceExtension:
		_, err := p.InitializeResourceExtension(payer, opt(0), decoded.(instruction.InitializeResourceExtensionArgs))
		return err

	default:
		return dzerror.Newf(dzerror.InvalidAccountData, "unhandled instruction tag %d", tag)
	}
}

func (p *Processor) oneAccount(at func(int) (solana.PublicKey, error), fn func(solana.PublicKey) error) error {
	pk, err := at(0)
	if err != nil {
		return err
	}
	return fn(pk)
}

func (p *Processor) mgroupAllowlistOp(at func(int) (solana.PublicKey, error), fn func(apPK, mgroupPK solana.PublicKey) error) error {
	apPK, err := at(0)
	if err != nil {
		return err
	}
	mgroupPK, err := at(1)
	if err != nil {
		return err
	}
	return fn(apPK, mgroupPK)
}
