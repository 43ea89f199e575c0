package state

import (
	"encoding/json"
	"net"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type AccessPassTypeTag uint8

const (
	AccessPassTypePrepaid            AccessPassTypeTag = 0
	AccessPassTypeSolanaValidator    AccessPassTypeTag = 1
	AccessPassTypeSolanaRPC          AccessPassTypeTag = 2
	AccessPassTypeSolanaMulticastPub AccessPassTypeTag = 3
	AccessPassTypeSolanaMulticastSub AccessPassTypeTag = 4
	AccessPassTypeOthers             AccessPassTypeTag = 5
)

func (t AccessPassTypeTag) String() string {
	switch t {
	case AccessPassTypePrepaid:
		return "prepaid"
	case AccessPassTypeSolanaValidator:
		return "solana_validator"
	case AccessPassTypeSolanaRPC:
		return "solana_rpc"
	case AccessPassTypeSolanaMulticastPub:
		return "solana_multicast_publisher"
	case AccessPassTypeSolanaMulticastSub:
		return "solana_multicast_subscriber"
	case AccessPassTypeOthers:
		return "others"
	default:
		return "unknown"
	}
}

// hasAssociatedPubkey reports whether the borsh enum variant carries a pubkey
// payload.
func (t AccessPassTypeTag) hasAssociatedPubkey() bool {
	switch t {
	case AccessPassTypeSolanaValidator, AccessPassTypeSolanaRPC,
		AccessPassTypeSolanaMulticastPub, AccessPassTypeSolanaMulticastSub:
		return true
	default:
		return false
	}
}

type AccessPassStatus uint8

const (
	AccessPassStatusRequested    AccessPassStatus = 0
	AccessPassStatusConnected    AccessPassStatus = 1
	AccessPassStatusDisconnected AccessPassStatus = 2
	AccessPassStatusExpired      AccessPassStatus = 3
)

func (s AccessPassStatus) String() string {
	switch s {
	case AccessPassStatusRequested:
		return "requested"
	case AccessPassStatusConnected:
		return "connected"
	case AccessPassStatusDisconnected:
		return "disconnected"
	case AccessPassStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

func (s AccessPassStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// AccessPass flag bits.
const (
	AccessPassFlagIsDynamic       uint8 = 1 << 0
	AccessPassFlagAllowMultipleIP uint8 = 1 << 1
)

// AccessPass binds a user payer to a client IP and an expiration epoch. The
// PDA is keyed by (client_ip, user_payer); dynamic passes are created with
// client_ip 0.0.0.0 and lock to the first IP actually used.
type AccessPass struct {
	AccountType        AccountType
	Owner              [32]byte
	BumpSeed           uint8
	AccessPassTypeTag  AccessPassTypeTag
	AssociatedPubkey   [32]byte // SolanaValidator, SolanaRPC, SolanaMulticast*
	OthersTypeName     string   // Others variant
	OthersKey          string   // Others variant
	ClientIp           [4]uint8
	UserPayer          [32]byte
	LastAccessEpoch    uint64
	ConnectionCount    uint16
	Status             AccessPassStatus
	MGroupPubAllowlist [][32]byte
	MGroupSubAllowlist [][32]byte
	Flags              uint8
	TenantAllowlist    [][32]byte
	PubKey             [32]byte
}

func DeserializeAccessPass(reader *ByteReader, ap *AccessPass) {
	ap.AccountType = AccountType(reader.ReadU8())
	ap.Owner = reader.ReadPubkey()
	ap.BumpSeed = reader.ReadU8()
	// AccessPassType is a borsh enum: 1-byte discriminant + variant data
	ap.AccessPassTypeTag = AccessPassTypeTag(reader.ReadU8())
	switch {
	case ap.AccessPassTypeTag.hasAssociatedPubkey():
		ap.AssociatedPubkey = reader.ReadPubkey()
	case ap.AccessPassTypeTag == AccessPassTypeOthers:
		ap.OthersTypeName = reader.ReadString()
		ap.OthersKey = reader.ReadString()
	}
	ap.ClientIp = reader.ReadIPv4()
	ap.UserPayer = reader.ReadPubkey()
	ap.LastAccessEpoch = reader.ReadU64()
	ap.ConnectionCount = reader.ReadU16()
	ap.Status = AccessPassStatus(reader.ReadU8())
	ap.MGroupPubAllowlist = reader.ReadPubkeySlice()
	ap.MGroupSubAllowlist = reader.ReadPubkeySlice()
	ap.Flags = reader.ReadU8()
	ap.TenantAllowlist = reader.ReadPubkeySlice()
}

func (ap *AccessPass) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(ap.AccountType))
	w.WritePubkey(ap.Owner)
	w.WriteU8(ap.BumpSeed)
	w.WriteU8(uint8(ap.AccessPassTypeTag))
	switch {
	case ap.AccessPassTypeTag.hasAssociatedPubkey():
		w.WritePubkey(ap.AssociatedPubkey)
	case ap.AccessPassTypeTag == AccessPassTypeOthers:
		w.WriteString(ap.OthersTypeName)
		w.WriteString(ap.OthersKey)
	}
	w.WriteIPv4(ap.ClientIp)
	w.WritePubkey(ap.UserPayer)
	w.WriteU64(ap.LastAccessEpoch)
	w.WriteU16(ap.ConnectionCount)
	w.WriteU8(uint8(ap.Status))
	w.WritePubkeySlice(ap.MGroupPubAllowlist)
	w.WritePubkeySlice(ap.MGroupSubAllowlist)
	w.WriteU8(ap.Flags)
	w.WritePubkeySlice(ap.TenantAllowlist)
	return w.Bytes()
}

func (ap *AccessPass) Validate() error {
	if ap.AccountType != AccessPassType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if ap.AccessPassTypeTag > AccessPassTypeOthers {
		return dzerror.Newf(dzerror.InvalidAccountData, "access pass type %d out of range", ap.AccessPassTypeTag)
	}
	if ap.Status > AccessPassStatusExpired {
		return dzerror.Newf(dzerror.InvalidAccountData, "access pass status %d out of range", ap.Status)
	}
	if len(ap.MGroupPubAllowlist) > MaxMGroupAllowlist || len(ap.MGroupSubAllowlist) > MaxMGroupAllowlist {
		return dzerror.Newf(dzerror.InvalidAccountData, "multicast allowlist exceeds %d entries", MaxMGroupAllowlist)
	}
	if hasDuplicatePubkeys(ap.MGroupPubAllowlist) || hasDuplicatePubkeys(ap.MGroupSubAllowlist) {
		return dzerror.Newf(dzerror.InvalidAccountData, "duplicate multicast allowlist entry")
	}
	if hasDuplicatePubkeys(ap.TenantAllowlist) {
		return dzerror.Newf(dzerror.InvalidAccountData, "duplicate tenant allowlist entry")
	}
	return nil
}

func (ap *AccessPass) IsDynamic() bool {
	return ap.Flags&AccessPassFlagIsDynamic != 0
}

func (ap *AccessPass) AllowMultipleIP() bool {
	return ap.Flags&AccessPassFlagAllowMultipleIP != 0
}

// IsExpired reports whether the pass has lapsed at the given epoch. A zero
// LastAccessEpoch means no expiration.
func (ap *AccessPass) IsExpired(epoch uint64) bool {
	return ap.LastAccessEpoch != 0 && ap.LastAccessEpoch < epoch
}

func (ap AccessPass) MarshalJSON() ([]byte, error) {
	type AccessPassAlias AccessPass
	jsonAP := &struct {
		AccessPassAlias
		Owner              string   `json:"Owner"`
		AccessPassTypeTag  string   `json:"AccessPassType"`
		AssociatedPubkey   string   `json:"AssociatedPubkey"`
		ClientIp           string   `json:"ClientIp"`
		UserPayer          string   `json:"UserPayer"`
		MGroupPubAllowlist []string `json:"MGroupPubAllowlist"`
		MGroupSubAllowlist []string `json:"MGroupSubAllowlist"`
		TenantAllowlist    []string `json:"TenantAllowlist"`
		PubKey             string   `json:"PubKey"`
	}{
		AccessPassAlias: AccessPassAlias(ap),
	}
	jsonAP.Owner = base58.Encode(ap.Owner[:])
	jsonAP.AccessPassTypeTag = ap.AccessPassTypeTag.String()
	jsonAP.AssociatedPubkey = base58.Encode(ap.AssociatedPubkey[:])
	jsonAP.ClientIp = net.IP(ap.ClientIp[:]).String()
	jsonAP.UserPayer = base58.Encode(ap.UserPayer[:])
	jsonAP.MGroupPubAllowlist = make([]string, len(ap.MGroupPubAllowlist))
	for i, k := range ap.MGroupPubAllowlist {
		jsonAP.MGroupPubAllowlist[i] = base58.Encode(k[:])
	}
	jsonAP.MGroupSubAllowlist = make([]string, len(ap.MGroupSubAllowlist))
	for i, k := range ap.MGroupSubAllowlist {
		jsonAP.MGroupSubAllowlist[i] = base58.Encode(k[:])
	}
	jsonAP.TenantAllowlist = make([]string, len(ap.TenantAllowlist))
	for i, k := range ap.TenantAllowlist {
		jsonAP.TenantAllowlist[i] = base58.Encode(k[:])
	}
	jsonAP.PubKey = base58.Encode(ap.PubKey[:])
	return json.Marshal(jsonAP)
}
