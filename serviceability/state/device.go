package state

import (
	"encoding/json"
	"net"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type DeviceDeviceType uint8

const (
	DeviceDeviceTypeHybrid  DeviceDeviceType = 0
	DeviceDeviceTypeTransit DeviceDeviceType = 1
	DeviceDeviceTypeEdge    DeviceDeviceType = 2
)

func (d DeviceDeviceType) String() string {
	switch d {
	case DeviceDeviceTypeHybrid:
		return "hybrid"
	case DeviceDeviceTypeTransit:
		return "transit"
	case DeviceDeviceTypeEdge:
		return "edge"
	default:
		return "unknown"
	}
}

type DeviceStatus uint8

const (
	DeviceStatusPending            DeviceStatus = 0
	DeviceStatusActivated          DeviceStatus = 1
	DeviceStatusDeleting           DeviceStatus = 2
	DeviceStatusRejected           DeviceStatus = 3
	DeviceStatusDrained            DeviceStatus = 4
	DeviceStatusDeviceProvisioning DeviceStatus = 5
	DeviceStatusLinkProvisioning   DeviceStatus = 6
	DeviceStatusSuspended          DeviceStatus = 7
)

func (d DeviceStatus) String() string {
	switch d {
	case DeviceStatusPending:
		return "pending"
	case DeviceStatusActivated:
		return "activated"
	case DeviceStatusDeleting:
		return "deleting"
	case DeviceStatusRejected:
		return "rejected"
	case DeviceStatusDrained:
		return "drained"
	case DeviceStatusDeviceProvisioning:
		return "device-provisioning"
	case DeviceStatusLinkProvisioning:
		return "link-provisioning"
	case DeviceStatusSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

func (d DeviceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type DeviceHealth uint8

const (
	DeviceHealthUnknown       DeviceHealth = 0
	DeviceHealthPending       DeviceHealth = 1
	DeviceHealthReadyForLinks DeviceHealth = 2
	DeviceHealthReadyForUsers DeviceHealth = 3
	DeviceHealthImpaired      DeviceHealth = 4
)

func (d DeviceHealth) String() string {
	switch d {
	case DeviceHealthUnknown:
		return "unknown"
	case DeviceHealthPending:
		return "pending"
	case DeviceHealthReadyForLinks:
		return "ready_for_links"
	case DeviceHealthReadyForUsers:
		return "ready_for_users"
	case DeviceHealthImpaired:
		return "impaired"
	default:
		return "unknown"
	}
}

func (d DeviceHealth) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type DeviceDesiredStatus uint8

const (
	DeviceDesiredStatusPending   DeviceDesiredStatus = 0
	DeviceDesiredStatusActivated DeviceDesiredStatus = 1
	DeviceDesiredStatusDrained   DeviceDesiredStatus = 6
)

func (d DeviceDesiredStatus) String() string {
	switch d {
	case DeviceDesiredStatusPending:
		return "pending"
	case DeviceDesiredStatusActivated:
		return "activated"
	case DeviceDesiredStatusDrained:
		return "drained"
	default:
		return "unknown"
	}
}

func (d DeviceDesiredStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Device is the on-ledger record for a contributor-operated switch. The
// user-count fields after DeviceDesiredStatus were appended later and are
// defaulted by the incremental decoder when absent.
type Device struct {
	AccountType            AccountType
	Owner                  [32]byte
	Index                  Uint128
	BumpSeed               uint8
	LocationPubKey         [32]byte
	ExchangePubKey         [32]byte
	DeviceType             DeviceDeviceType
	PublicIp               [4]uint8
	Status                 DeviceStatus
	Code                   string
	DzPrefixes             [][5]uint8
	MetricsPublisherPubKey [32]byte
	ContributorPubKey      [32]byte
	MgmtVrf                string
	Interfaces             []Interface
	ReferenceCount         uint32
	UsersCount             uint16
	MaxUsers               uint16
	DeviceHealth           DeviceHealth
	DeviceDesiredStatus    DeviceDesiredStatus
	UnicastUsersCount      uint16
	MulticastUsersCount    uint16
	MaxUnicastUsers        uint16
	MaxMulticastUsers      uint16
	PubKey                 [32]byte
}

func DeserializeDevice(reader *ByteReader, dev *Device) error {
	dev.AccountType = AccountType(reader.ReadU8())
	dev.Owner = reader.ReadPubkey()
	dev.Index = reader.ReadU128()
	dev.BumpSeed = reader.ReadU8()
	dev.LocationPubKey = reader.ReadPubkey()
	dev.ExchangePubKey = reader.ReadPubkey()
	dev.DeviceType = DeviceDeviceType(reader.ReadU8())
	dev.PublicIp = reader.ReadIPv4()
	dev.Status = DeviceStatus(reader.ReadU8())
	dev.Code = reader.ReadString()
	dev.DzPrefixes = reader.ReadNetworkV4Slice()
	dev.MetricsPublisherPubKey = reader.ReadPubkey()
	dev.ContributorPubKey = reader.ReadPubkey()
	dev.MgmtVrf = reader.ReadString()
	length := reader.ReadU32()
	// 18 bytes is the smallest possible encoded interface; a count promising
	// more than the buffer holds is corrupt data, not trailing fields.
	if length > 0 && int(length)*18 > reader.Remaining() {
		return dzerror.Newf(dzerror.InvalidAccountData, "not enough data for %d interfaces", length)
	}
	dev.Interfaces = make([]Interface, 0, length)
	for i := uint32(0); i < length; i++ {
		var iface Interface
		if err := DeserializeInterface(reader, &iface); err != nil {
			return err
		}
		dev.Interfaces = append(dev.Interfaces, iface)
	}
	dev.ReferenceCount = reader.ReadU32()
	dev.UsersCount = reader.ReadU16()
	dev.MaxUsers = reader.ReadU16()
	dev.DeviceHealth = DeviceHealth(reader.ReadU8())
	dev.DeviceDesiredStatus = DeviceDesiredStatus(reader.ReadU8())
	dev.UnicastUsersCount = reader.ReadU16()
	dev.MulticastUsersCount = reader.ReadU16()
	dev.MaxUnicastUsers = reader.ReadU16()
	dev.MaxMulticastUsers = reader.ReadU16()
	return nil
}

func (d *Device) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(d.AccountType))
	w.WritePubkey(d.Owner)
	w.WriteU128(d.Index)
	w.WriteU8(d.BumpSeed)
	w.WritePubkey(d.LocationPubKey)
	w.WritePubkey(d.ExchangePubKey)
	w.WriteU8(uint8(d.DeviceType))
	w.WriteIPv4(d.PublicIp)
	w.WriteU8(uint8(d.Status))
	w.WriteString(d.Code)
	w.WriteNetworkV4Slice(d.DzPrefixes)
	w.WritePubkey(d.MetricsPublisherPubKey)
	w.WritePubkey(d.ContributorPubKey)
	w.WriteString(d.MgmtVrf)
	w.WriteU32(uint32(len(d.Interfaces)))
	for i := range d.Interfaces {
		d.Interfaces[i].Serialize(w)
	}
	w.WriteU32(d.ReferenceCount)
	w.WriteU16(d.UsersCount)
	w.WriteU16(d.MaxUsers)
	w.WriteU8(uint8(d.DeviceHealth))
	w.WriteU8(uint8(d.DeviceDesiredStatus))
	w.WriteU16(d.UnicastUsersCount)
	w.WriteU16(d.MulticastUsersCount)
	w.WriteU16(d.MaxUnicastUsers)
	w.WriteU16(d.MaxMulticastUsers)
	return w.Bytes()
}

func (d *Device) Validate() error {
	if d.AccountType != DeviceType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(d.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if len(d.DzPrefixes) == 0 {
		return dzerror.Newf(dzerror.InvalidAccountData, "device %s has no dz prefixes", d.Code)
	}
	seen := make(map[string]struct{}, len(d.Interfaces))
	for i := range d.Interfaces {
		if err := d.Interfaces[i].Validate(); err != nil {
			return err
		}
		name := d.Interfaces[i].Name
		if _, dup := seen[name]; dup {
			return dzerror.Newf(dzerror.InvalidInterfaceName, "duplicate interface %q on device %s", name, d.Code)
		}
		seen[name] = struct{}{}
	}
	if d.Status > DeviceStatusSuspended {
		return dzerror.Newf(dzerror.InvalidStatus, "device status %d out of range", d.Status)
	}
	return nil
}

// FindInterface returns the interface with the given name, promoted to the
// current record version.
func (d *Device) FindInterface(name string) (Interface, bool) {
	for i := range d.Interfaces {
		if d.Interfaces[i].Name == name {
			return d.Interfaces[i].IntoCurrentVersion(), true
		}
	}
	return Interface{}, false
}

func (d Device) MarshalJSON() ([]byte, error) {
	type DeviceAlias Device

	jsonDevice := &struct {
		DeviceAlias
		Owner                  string   `json:"Owner"`
		LocationPubKey         string   `json:"LocationPubKey"`
		ExchangePubKey         string   `json:"ExchangePubKey"`
		MetricsPublisherPubKey string   `json:"MetricsPublisherPubKey"`
		ContributorPubKey      string   `json:"ContributorPubKey"`
		PublicIp               string   `json:"PublicIp"`
		DzPrefixes             []string `json:"DzPrefixes"`
		PubKey                 string   `json:"PubKey"`
		Status                 string   `json:"Status"`
		DeviceHealth           string   `json:"DeviceHealth"`
		DeviceDesiredStatus    string   `json:"DeviceDesiredStatus"`
	}{
		DeviceAlias: DeviceAlias(d),
	}

	jsonDevice.Owner = base58.Encode(d.Owner[:])
	jsonDevice.LocationPubKey = base58.Encode(d.LocationPubKey[:])
	jsonDevice.ExchangePubKey = base58.Encode(d.ExchangePubKey[:])
	jsonDevice.MetricsPublisherPubKey = base58.Encode(d.MetricsPublisherPubKey[:])
	jsonDevice.ContributorPubKey = base58.Encode(d.ContributorPubKey[:])
	jsonDevice.PubKey = base58.Encode(d.PubKey[:])
	jsonDevice.PublicIp = net.IP(d.PublicIp[:]).String()

	prefixes := make([]string, len(d.DzPrefixes))
	for i, p := range d.DzPrefixes {
		prefixes[i] = NetworkV4String(p)
	}
	jsonDevice.DzPrefixes = prefixes
	jsonDevice.Status = d.Status.String()
	jsonDevice.DeviceHealth = d.DeviceHealth.String()
	jsonDevice.DeviceDesiredStatus = d.DeviceDesiredStatus.String()

	return json.Marshal(jsonDevice)
}
