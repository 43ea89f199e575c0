package state

import (
	"encoding/json"
	"net"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type MulticastGroupStatus uint8

const (
	MulticastGroupStatusPending   MulticastGroupStatus = 0
	MulticastGroupStatusActivated MulticastGroupStatus = 1
	MulticastGroupStatusSuspended MulticastGroupStatus = 2
	MulticastGroupStatusDeleting  MulticastGroupStatus = 3
	MulticastGroupStatusRejected  MulticastGroupStatus = 4
)

func (s MulticastGroupStatus) String() string {
	switch s {
	case MulticastGroupStatusPending:
		return "pending"
	case MulticastGroupStatusActivated:
		return "activated"
	case MulticastGroupStatusSuspended:
		return "suspended"
	case MulticastGroupStatusDeleting:
		return "deleting"
	case MulticastGroupStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s MulticastGroupStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MulticastGroup holds one allocated multicast address and membership counts;
// the member sets themselves live on users and allowlist entries.
type MulticastGroup struct {
	AccountType     AccountType
	Owner           [32]byte
	Index           Uint128
	BumpSeed        uint8
	TenantPubKey    [32]byte
	MulticastIp     [4]uint8
	MaxBandwidth    uint64
	Status          MulticastGroupStatus
	Code            string
	PublisherCount  uint32
	SubscriberCount uint32
	PubKey          [32]byte
}

func DeserializeMulticastGroup(reader *ByteReader, mg *MulticastGroup) {
	mg.AccountType = AccountType(reader.ReadU8())
	mg.Owner = reader.ReadPubkey()
	mg.Index = reader.ReadU128()
	mg.BumpSeed = reader.ReadU8()
	mg.TenantPubKey = reader.ReadPubkey()
	mg.MulticastIp = reader.ReadIPv4()
	mg.MaxBandwidth = reader.ReadU64()
	mg.Status = MulticastGroupStatus(reader.ReadU8())
	mg.Code = reader.ReadString()
	mg.PublisherCount = reader.ReadU32()
	mg.SubscriberCount = reader.ReadU32()
}

func (mg *MulticastGroup) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(mg.AccountType))
	w.WritePubkey(mg.Owner)
	w.WriteU128(mg.Index)
	w.WriteU8(mg.BumpSeed)
	w.WritePubkey(mg.TenantPubKey)
	w.WriteIPv4(mg.MulticastIp)
	w.WriteU64(mg.MaxBandwidth)
	w.WriteU8(uint8(mg.Status))
	w.WriteString(mg.Code)
	w.WriteU32(mg.PublisherCount)
	w.WriteU32(mg.SubscriberCount)
	return w.Bytes()
}

func (mg *MulticastGroup) Validate() error {
	if mg.AccountType != MulticastGroupType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(mg.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if mg.Status > MulticastGroupStatusRejected {
		return dzerror.Newf(dzerror.InvalidAccountData, "multicast group status %d out of range", mg.Status)
	}
	return nil
}

func (mg MulticastGroup) MarshalJSON() ([]byte, error) {
	type MulticastGroupAlias MulticastGroup
	jsonMG := &struct {
		MulticastGroupAlias
		Owner        string `json:"Owner"`
		TenantPubKey string `json:"TenantPubKey"`
		MulticastIp  string `json:"MulticastIp"`
		PubKey       string `json:"PubKey"`
	}{
		MulticastGroupAlias: MulticastGroupAlias(mg),
	}
	jsonMG.Owner = base58.Encode(mg.Owner[:])
	jsonMG.TenantPubKey = base58.Encode(mg.TenantPubKey[:])
	jsonMG.MulticastIp = net.IP(mg.MulticastIp[:]).String()
	jsonMG.PubKey = base58.Encode(mg.PubKey[:])
	return json.Marshal(jsonMG)
}
