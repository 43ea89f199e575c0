package state

import (
	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

// Feature flags carried in GlobalState.FeatureFlags.
const (
	FeatureFlagAtomicDelete      uint32 = 1 << 0
	FeatureFlagDisjointPublisher uint32 = 1 << 1

	featureFlagKnownMask = FeatureFlagAtomicDelete | FeatureFlagDisjointPublisher
)

// KnownFeatureFlags reports whether mask only contains defined flags.
func KnownFeatureFlags(mask uint32) bool {
	return mask&^featureFlagKnownMask == 0
}

// GlobalState is the singleton holding the foundation allowlist and every
// role key. Treated as an explicit parameter at every call site, never as
// ambient state.
type GlobalState struct {
	AccountType                AccountType
	BumpSeed                   uint8
	AccountIndex               Uint128
	FoundationAllowlist        [][32]byte
	ActivatorAuthorityPK       [32]byte
	SentinelAuthorityPK        [32]byte
	ContributorAirdropLamports uint64
	UserAirdropLamports        uint64
	HealthOraclePK             [32]byte
	QAAllowlist                [][32]byte
	ContributorManagerPK       [32]byte
	InternetLatencyCollectorPK [32]byte
	FeatureFlags               uint32
	PubKey                     [32]byte
}

func DeserializeGlobalState(reader *ByteReader, gs *GlobalState) {
	gs.AccountType = AccountType(reader.ReadU8())
	gs.BumpSeed = reader.ReadU8()
	gs.AccountIndex = reader.ReadU128()
	gs.FoundationAllowlist = reader.ReadPubkeySlice()
	gs.ActivatorAuthorityPK = reader.ReadPubkey()
	gs.SentinelAuthorityPK = reader.ReadPubkey()
	gs.ContributorAirdropLamports = reader.ReadU64()
	gs.UserAirdropLamports = reader.ReadU64()
	gs.HealthOraclePK = reader.ReadPubkey()
	gs.QAAllowlist = reader.ReadPubkeySlice()
	gs.ContributorManagerPK = reader.ReadPubkey()
	gs.InternetLatencyCollectorPK = reader.ReadPubkey()
	gs.FeatureFlags = reader.ReadU32()
}

func (gs *GlobalState) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(gs.AccountType))
	w.WriteU8(gs.BumpSeed)
	w.WriteU128(gs.AccountIndex)
	w.WritePubkeySlice(gs.FoundationAllowlist)
	w.WritePubkey(gs.ActivatorAuthorityPK)
	w.WritePubkey(gs.SentinelAuthorityPK)
	w.WriteU64(gs.ContributorAirdropLamports)
	w.WriteU64(gs.UserAirdropLamports)
	w.WritePubkey(gs.HealthOraclePK)
	w.WritePubkeySlice(gs.QAAllowlist)
	w.WritePubkey(gs.ContributorManagerPK)
	w.WritePubkey(gs.InternetLatencyCollectorPK)
	w.WriteU32(gs.FeatureFlags)
	return w.Bytes()
}

func (gs *GlobalState) Validate() error {
	if gs.AccountType != GlobalStateType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if len(gs.FoundationAllowlist) > MaxFoundationAllowlist {
		return dzerror.Newf(dzerror.InvalidAccountData, "foundation allowlist over cap %d", MaxFoundationAllowlist)
	}
	if len(gs.QAAllowlist) > MaxQAAllowlist {
		return dzerror.Newf(dzerror.InvalidAccountData, "qa allowlist over cap %d", MaxQAAllowlist)
	}
	if hasDuplicatePubkeys(gs.FoundationAllowlist) || hasDuplicatePubkeys(gs.QAAllowlist) {
		return dzerror.Newf(dzerror.InvalidAccountData, "duplicate pubkeys in allowlist")
	}
	if !KnownFeatureFlags(gs.FeatureFlags) {
		return dzerror.New(dzerror.UnknownFeatureFlag)
	}
	return nil
}

// IsFoundation reports whether pk is in the foundation allowlist.
func (gs *GlobalState) IsFoundation(pk [32]byte) bool {
	return containsPubkey(gs.FoundationAllowlist, pk)
}

// IsQA reports whether pk is in the qa allowlist (exempt from device
// max-user caps).
func (gs *GlobalState) IsQA(pk [32]byte) bool {
	return containsPubkey(gs.QAAllowlist, pk)
}

// GlobalConfig is the singleton holding network-wide configuration: BGP ASNs
// and the IP blocks every tunnel and multicast allocation is carved from.
type GlobalConfig struct {
	AccountType             AccountType
	Owner                   [32]byte
	BumpSeed                uint8
	LocalASN                uint32
	RemoteASN               uint32
	DeviceTunnelBlock       [5]byte
	UserTunnelBlock         [5]byte
	MulticastGroupBlock     [5]byte
	NextBGPCommunity        uint16
	MulticastPublisherBlock [5]byte
	// Per-allocation prefix lengths for tunnel subnets. Config fields, not
	// constants: the carve size differs per deployment.
	LinkTunnelPrefix uint8
	UserTunnelPrefix uint8
	PubKey           [32]byte
}

// DefaultTunnelPrefix is the per-tunnel carve size used when the config
// predates the prefix fields.
const DefaultTunnelPrefix = 31

func DeserializeGlobalConfig(reader *ByteReader, cfg *GlobalConfig) {
	cfg.AccountType = AccountType(reader.ReadU8())
	cfg.Owner = reader.ReadPubkey()
	cfg.BumpSeed = reader.ReadU8()
	cfg.LocalASN = reader.ReadU32()
	cfg.RemoteASN = reader.ReadU32()
	cfg.DeviceTunnelBlock = reader.ReadNetworkV4()
	cfg.UserTunnelBlock = reader.ReadNetworkV4()
	cfg.MulticastGroupBlock = reader.ReadNetworkV4()
	cfg.NextBGPCommunity = reader.ReadU16()
	cfg.MulticastPublisherBlock = reader.ReadNetworkV4()
	cfg.LinkTunnelPrefix = reader.ReadU8()
	cfg.UserTunnelPrefix = reader.ReadU8()
	if cfg.LinkTunnelPrefix == 0 {
		cfg.LinkTunnelPrefix = DefaultTunnelPrefix
	}
	if cfg.UserTunnelPrefix == 0 {
		cfg.UserTunnelPrefix = DefaultTunnelPrefix
	}
}

func (cfg *GlobalConfig) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(cfg.AccountType))
	w.WritePubkey(cfg.Owner)
	w.WriteU8(cfg.BumpSeed)
	w.WriteU32(cfg.LocalASN)
	w.WriteU32(cfg.RemoteASN)
	w.WriteNetworkV4(cfg.DeviceTunnelBlock)
	w.WriteNetworkV4(cfg.UserTunnelBlock)
	w.WriteNetworkV4(cfg.MulticastGroupBlock)
	w.WriteU16(cfg.NextBGPCommunity)
	w.WriteNetworkV4(cfg.MulticastPublisherBlock)
	w.WriteU8(cfg.LinkTunnelPrefix)
	w.WriteU8(cfg.UserTunnelPrefix)
	return w.Bytes()
}

func (cfg *GlobalConfig) Validate() error {
	if cfg.AccountType != GlobalConfigType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if cfg.LocalASN == 0 || cfg.RemoteASN == 0 {
		return dzerror.Newf(dzerror.InvalidGlobalConfig, "asn not set")
	}
	for _, block := range [][5]byte{cfg.DeviceTunnelBlock, cfg.UserTunnelBlock, cfg.MulticastGroupBlock} {
		if block[4] == 0 || block[4] > 32 {
			return dzerror.Newf(dzerror.InvalidGlobalConfig, "invalid block prefix %d", block[4])
		}
	}
	if cfg.LinkTunnelPrefix < cfg.DeviceTunnelBlock[4] || cfg.LinkTunnelPrefix > 32 {
		return dzerror.Newf(dzerror.InvalidGlobalConfig, "link tunnel prefix %d outside device block /%d", cfg.LinkTunnelPrefix, cfg.DeviceTunnelBlock[4])
	}
	if cfg.UserTunnelPrefix < cfg.UserTunnelBlock[4] || cfg.UserTunnelPrefix > 32 {
		return dzerror.Newf(dzerror.InvalidGlobalConfig, "user tunnel prefix %d outside user block /%d", cfg.UserTunnelPrefix, cfg.UserTunnelBlock[4])
	}
	return nil
}

type ProgramVersion struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// Less reports whether v precedes other in semver order.
func (v ProgramVersion) Less(other ProgramVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

type ProgramConfig struct {
	AccountType      AccountType
	BumpSeed         uint8
	Version          ProgramVersion
	MinCompatVersion ProgramVersion
	PubKey           [32]byte
}

func DeserializeProgramConfig(reader *ByteReader, pc *ProgramConfig) {
	pc.AccountType = AccountType(reader.ReadU8())
	pc.BumpSeed = reader.ReadU8()
	deserializeProgramVersion(reader, &pc.Version)
	deserializeProgramVersion(reader, &pc.MinCompatVersion)
}

func deserializeProgramVersion(reader *ByteReader, pv *ProgramVersion) {
	pv.Major = reader.ReadU32()
	pv.Minor = reader.ReadU32()
	pv.Patch = reader.ReadU32()
}

func (pc *ProgramConfig) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(pc.AccountType))
	w.WriteU8(pc.BumpSeed)
	for _, v := range []ProgramVersion{pc.Version, pc.MinCompatVersion} {
		w.WriteU32(v.Major)
		w.WriteU32(v.Minor)
		w.WriteU32(v.Patch)
	}
	return w.Bytes()
}

func (pc *ProgramConfig) Validate() error {
	if pc.AccountType != ProgramConfigType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if pc.Version.Less(pc.MinCompatVersion) {
		return dzerror.New(dzerror.VersionDowngrade)
	}
	return nil
}
