package state

import (
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type LinkLinkType uint8

const (
	LinkLinkTypeWAN LinkLinkType = 1
	LinkLinkTypeDZX LinkLinkType = 127
)

func (l LinkLinkType) String() string {
	switch l {
	case LinkLinkTypeWAN:
		return "WAN"
	case LinkLinkTypeDZX:
		return "DZX"
	default:
		return ""
	}
}

func (l LinkLinkType) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

type LinkStatus uint8

const (
	LinkStatusPending      LinkStatus = 0
	LinkStatusActivated    LinkStatus = 1
	LinkStatusDeleting     LinkStatus = 3
	LinkStatusRejected     LinkStatus = 4
	LinkStatusRequested    LinkStatus = 5
	LinkStatusHardDrained  LinkStatus = 6
	LinkStatusSoftDrained  LinkStatus = 7
	LinkStatusProvisioning LinkStatus = 8
)

func (l LinkStatus) String() string {
	switch l {
	case LinkStatusPending:
		return "pending"
	case LinkStatusActivated:
		return "activated"
	case LinkStatusDeleting:
		return "deleting"
	case LinkStatusRejected:
		return "rejected"
	case LinkStatusRequested:
		return "requested"
	case LinkStatusHardDrained:
		return "hard-drained"
	case LinkStatusSoftDrained:
		return "soft-drained"
	case LinkStatusProvisioning:
		return "provisioning"
	default:
		return "unknown"
	}
}

func (l LinkStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

type LinkHealth uint8

const (
	LinkHealthUnknown         LinkHealth = 0
	LinkHealthPending         LinkHealth = 1
	LinkHealthReadyForService LinkHealth = 2
	LinkHealthImpaired        LinkHealth = 3
)

func (l LinkHealth) String() string {
	switch l {
	case LinkHealthUnknown:
		return "unknown"
	case LinkHealthPending:
		return "pending"
	case LinkHealthReadyForService:
		return "ready_for_service"
	case LinkHealthImpaired:
		return "impaired"
	default:
		return "unknown"
	}
}

func (l LinkHealth) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

type LinkDesiredStatus uint8

const (
	LinkDesiredStatusPending     LinkDesiredStatus = 0
	LinkDesiredStatusActivated   LinkDesiredStatus = 1
	LinkDesiredStatusHardDrained LinkDesiredStatus = 6
	LinkDesiredStatusSoftDrained LinkDesiredStatus = 7
)

func (l LinkDesiredStatus) String() string {
	switch l {
	case LinkDesiredStatusPending:
		return "pending"
	case LinkDesiredStatusActivated:
		return "activated"
	case LinkDesiredStatusHardDrained:
		return "hard-drained"
	case LinkDesiredStatusSoftDrained:
		return "soft-drained"
	default:
		return "unknown"
	}
}

func (l LinkDesiredStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Link joins two device interfaces with a point-to-point tunnel. TunnelId and
// TunnelNet stay zero until the activator accepts the link.
type Link struct {
	AccountType       AccountType
	Owner             [32]byte
	Index             Uint128
	BumpSeed          uint8
	SideAPubKey       [32]byte
	SideZPubKey       [32]byte
	LinkType          LinkLinkType
	Bandwidth         uint64
	Mtu               uint32
	DelayNs           uint64
	JitterNs          uint64
	TunnelId          uint16
	TunnelNet         [5]uint8
	Status            LinkStatus
	Code              string
	ContributorPubKey [32]byte
	SideAIfaceName    string
	SideZIfaceName    string
	DelayOverrideNs   uint64
	LinkHealth        LinkHealth
	LinkDesiredStatus LinkDesiredStatus
	PubKey            [32]byte
}

func DeserializeLink(reader *ByteReader, link *Link) {
	link.AccountType = AccountType(reader.ReadU8())
	link.Owner = reader.ReadPubkey()
	link.Index = reader.ReadU128()
	link.BumpSeed = reader.ReadU8()
	link.SideAPubKey = reader.ReadPubkey()
	link.SideZPubKey = reader.ReadPubkey()
	link.LinkType = LinkLinkType(reader.ReadU8())
	link.Bandwidth = reader.ReadU64()
	link.Mtu = reader.ReadU32()
	link.DelayNs = reader.ReadU64()
	link.JitterNs = reader.ReadU64()
	link.TunnelId = reader.ReadU16()
	link.TunnelNet = reader.ReadNetworkV4()
	link.Status = LinkStatus(reader.ReadU8())
	link.Code = reader.ReadString()
	link.ContributorPubKey = reader.ReadPubkey()
	link.SideAIfaceName = reader.ReadString()
	link.SideZIfaceName = reader.ReadString()
	link.DelayOverrideNs = reader.ReadU64()
	link.LinkHealth = LinkHealth(reader.ReadU8())
	link.LinkDesiredStatus = LinkDesiredStatus(reader.ReadU8())
}

func (link *Link) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(link.AccountType))
	w.WritePubkey(link.Owner)
	w.WriteU128(link.Index)
	w.WriteU8(link.BumpSeed)
	w.WritePubkey(link.SideAPubKey)
	w.WritePubkey(link.SideZPubKey)
	w.WriteU8(uint8(link.LinkType))
	w.WriteU64(link.Bandwidth)
	w.WriteU32(link.Mtu)
	w.WriteU64(link.DelayNs)
	w.WriteU64(link.JitterNs)
	w.WriteU16(link.TunnelId)
	w.WriteNetworkV4(link.TunnelNet)
	w.WriteU8(uint8(link.Status))
	w.WriteString(link.Code)
	w.WritePubkey(link.ContributorPubKey)
	w.WriteString(link.SideAIfaceName)
	w.WriteString(link.SideZIfaceName)
	w.WriteU64(link.DelayOverrideNs)
	w.WriteU8(uint8(link.LinkHealth))
	w.WriteU8(uint8(link.LinkDesiredStatus))
	return w.Bytes()
}

func (link *Link) Validate() error {
	if link.AccountType != LinkType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(link.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if link.LinkType != LinkLinkTypeWAN && link.LinkType != LinkLinkTypeDZX {
		return dzerror.Newf(dzerror.InvalidAccountData, "link type %d out of range", link.LinkType)
	}
	if link.Status > LinkStatusProvisioning {
		return dzerror.Newf(dzerror.InvalidAccountData, "link status %d out of range", link.Status)
	}
	return nil
}

// EffectiveDelayNs returns the operator override when set, otherwise the
// measured delay.
func (link *Link) EffectiveDelayNs() uint64 {
	if link.DelayOverrideNs > 0 {
		return link.DelayOverrideNs
	}
	return link.DelayNs
}

func (link Link) MarshalJSON() ([]byte, error) {
	type LinkAlias Link
	jsonLink := &struct {
		LinkAlias
		Owner             string `json:"Owner"`
		SideAPubKey       string `json:"SideAPubKey"`
		SideZPubKey       string `json:"SideZPubKey"`
		ContributorPubKey string `json:"ContributorPubKey"`
		TunnelNet         string `json:"TunnelNet"`
		PubKey            string `json:"PubKey"`
	}{
		LinkAlias: LinkAlias(link),
	}
	jsonLink.Owner = base58.Encode(link.Owner[:])
	jsonLink.SideAPubKey = base58.Encode(link.SideAPubKey[:])
	jsonLink.SideZPubKey = base58.Encode(link.SideZPubKey[:])
	jsonLink.ContributorPubKey = base58.Encode(link.ContributorPubKey[:])
	jsonLink.TunnelNet = NetworkV4String(link.TunnelNet)
	jsonLink.PubKey = base58.Encode(link.PubKey[:])
	return json.Marshal(jsonLink)
}
