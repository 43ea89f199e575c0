package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// InitGlobalState creates the GlobalState and ProgramConfig singletons. The
// payer becomes the first foundation allowlist member.
func (p *Processor) InitGlobalState(payer solana.PublicKey) error {
	return p.atomic(func() error {
		gsPK, gsBump, err := pda.DeriveGlobalStatePDA(p.programID)
		if err != nil {
			return err
		}
		if _, ok := p.ledger.Account(gsPK); ok {
			return dzerror.Newf(dzerror.AccountAlreadyExists, "global state already initialized")
		}
		gs := &state.GlobalState{
			AccountType:         state.GlobalStateType,
			BumpSeed:            gsBump,
			FoundationAllowlist: [][32]byte{pk32(payer)},
			PubKey:              pk32(gsPK),
		}
		if err := p.create(gsPK, payer, gs.Serialize()); err != nil {
			return err
		}

		pcPK, pcBump, err := pda.DeriveProgramConfigPDA(p.programID)
		if err != nil {
			return err
		}
		pc := &state.ProgramConfig{
			AccountType: state.ProgramConfigType,
			BumpSeed:    pcBump,
			PubKey:      pk32(pcPK),
		}
		return p.create(pcPK, payer, pc.Serialize())
	})
}

// SetAuthority rotates the role keys held in GlobalState. Foundation only.
func (p *Processor) SetAuthority(payer solana.PublicKey, args instruction.SetAuthorityArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		gs.ActivatorAuthorityPK = args.ActivatorAuthorityPK
		gs.SentinelAuthorityPK = args.SentinelAuthorityPK
		gs.HealthOraclePK = args.HealthOraclePK
		gs.ContributorManagerPK = args.ContributorManagerPK
		gs.InternetLatencyCollectorPK = args.InternetLatencyCollectorPK
		gs.ContributorAirdropLamports = args.ContributorAirdropLamports
		gs.UserAirdropLamports = args.UserAirdropLamports
		return p.saveGlobalState(gs, payer)
	})
}

func (p *Processor) AddFoundationAllowlist(payer solana.PublicKey, member [32]byte) error {
	return p.updateAllowlist(payer, member, true, false)
}

func (p *Processor) RemoveFoundationAllowlist(payer solana.PublicKey, member [32]byte) error {
	return p.updateAllowlist(payer, member, false, false)
}

func (p *Processor) AddQAAllowlist(payer solana.PublicKey, member [32]byte) error {
	return p.updateAllowlist(payer, member, true, true)
}

func (p *Processor) RemoveQAAllowlist(payer solana.PublicKey, member [32]byte) error {
	return p.updateAllowlist(payer, member, false, true)
}

func (p *Processor) updateAllowlist(payer solana.PublicKey, member [32]byte, add, qa bool) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		list := gs.FoundationAllowlist
		if qa {
			list = gs.QAAllowlist
		}
		if add {
			if !containsKey(list, member) {
				list = append(list, member)
			}
		} else {
			var found bool
			list, found = removeKey(list, member)
			if !found {
				return dzerror.Newf(dzerror.AccountNotFound, "%s is not in the allowlist", asPK(member))
			}
		}
		if qa {
			gs.QAAllowlist = list
		} else {
			gs.FoundationAllowlist = list
		}
		return p.saveGlobalState(gs, payer)
	})
}

// SetFeatureFlags replaces the feature flag word. The foundation and the
// program upgrade authority may call it. Unknown bits are rejected so a
// stale client cannot enable behavior this program version does not
// implement.
func (p *Processor) SetFeatureFlags(payer solana.PublicKey, args instruction.SetFeatureFlagsArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundationOrUpgradeAuthority(gs, p.ledger, payer); err != nil {
			return err
		}
		if !state.KnownFeatureFlags(args.Flags) {
			return dzerror.Newf(dzerror.UnknownFeatureFlag, "unknown feature flags 0x%x", args.Flags)
		}
		gs.FeatureFlags = args.Flags
		return p.saveGlobalState(gs, payer)
	})
}

// SetGlobalConfig creates or updates the GlobalConfig singleton.
func (p *Processor) SetGlobalConfig(payer solana.PublicKey, args instruction.SetGlobalConfigArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		cfgPK, bump, err := pda.DeriveGlobalConfigPDA(p.programID)
		if err != nil {
			return err
		}
		cfg := &state.GlobalConfig{
			AccountType:             state.GlobalConfigType,
			Owner:                   pk32(payer),
			BumpSeed:                bump,
			LocalASN:                args.LocalASN,
			RemoteASN:               args.RemoteASN,
			DeviceTunnelBlock:       args.DeviceTunnelBlock,
			UserTunnelBlock:         args.UserTunnelBlock,
			MulticastGroupBlock:     args.MulticastGroupBlock,
			MulticastPublisherBlock: args.MulticastPublisherBlock,
			LinkTunnelPrefix:        args.LinkTunnelPrefix,
			UserTunnelPrefix:        args.UserTunnelPrefix,
			PubKey:                  pk32(cfgPK),
		}
		if cfg.LinkTunnelPrefix == 0 {
			cfg.LinkTunnelPrefix = state.DefaultTunnelPrefix
		}
		if cfg.UserTunnelPrefix == 0 {
			cfg.UserTunnelPrefix = state.DefaultTunnelPrefix
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if existing, err := p.globalConfig(); err == nil {
			cfg.Owner = existing.Owner
			cfg.BumpSeed = existing.BumpSeed
			cfg.NextBGPCommunity = existing.NextBGPCommunity
			return p.store(cfgPK, payer, cfg.Serialize())
		}
		return p.create(cfgPK, payer, cfg.Serialize())
	})
}

// SetProgramVersion bumps the advertised program version. A new version
// below the stored minimum compatible version is a downgrade and is
// rejected.
func (p *Processor) SetProgramVersion(payer solana.PublicKey, args instruction.SetProgramVersionArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		pcPK, _, err := pda.DeriveProgramConfigPDA(p.programID)
		if err != nil {
			return err
		}
		pc, err := loadAccount(p, pcPK, state.DeserializeProgramConfig)
		if err != nil {
			return err
		}
		pc.PubKey = pk32(pcPK)
		if args.Version.Less(pc.MinCompatVersion) {
			return dzerror.Newf(dzerror.VersionDowngrade, "version %d.%d.%d is below the minimum compatible %d.%d.%d",
				args.Version.Major, args.Version.Minor, args.Version.Patch,
				pc.MinCompatVersion.Major, pc.MinCompatVersion.Minor, pc.MinCompatVersion.Patch)
		}
		if args.MinCompatVersion.Less(pc.MinCompatVersion) {
			return dzerror.Newf(dzerror.VersionDowngrade, "minimum compatible version cannot move backwards")
		}
		pc.Version = args.Version
		pc.MinCompatVersion = args.MinCompatVersion
		return p.store(pcPK, payer, pc.Serialize())
	})
}
