package state

import (
	"encoding/json"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type InterfaceStatus uint8

const (
	InterfaceStatusInvalid   InterfaceStatus = 0
	InterfaceStatusUnmanaged InterfaceStatus = 1
	InterfaceStatusPending   InterfaceStatus = 2
	InterfaceStatusActivated InterfaceStatus = 3
	InterfaceStatusDeleting  InterfaceStatus = 4
	InterfaceStatusRejecting InterfaceStatus = 5
	InterfaceStatusUnlinked  InterfaceStatus = 6
)

func (i InterfaceStatus) String() string {
	switch i {
	case InterfaceStatusInvalid:
		return "invalid"
	case InterfaceStatusUnmanaged:
		return "unmanaged"
	case InterfaceStatusPending:
		return "pending"
	case InterfaceStatusActivated:
		return "activated"
	case InterfaceStatusDeleting:
		return "deleting"
	case InterfaceStatusRejecting:
		return "rejecting"
	case InterfaceStatusUnlinked:
		return "unlinked"
	default:
		return "unknown"
	}
}

func (i InterfaceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

type InterfaceType uint8

const (
	InterfaceTypeInvalid  InterfaceType = 0
	InterfaceTypeLoopback InterfaceType = 1
	InterfaceTypePhysical InterfaceType = 2
)

func (i InterfaceType) String() string {
	switch i {
	case InterfaceTypeLoopback:
		return "loopback"
	case InterfaceTypePhysical:
		return "physical"
	default:
		return "invalid"
	}
}

func (i InterfaceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

type LoopbackType uint8

const (
	LoopbackTypeNone      LoopbackType = 0
	LoopbackTypeVpnv4     LoopbackType = 1
	LoopbackTypeIpv4      LoopbackType = 2
	LoopbackTypePimRpAddr LoopbackType = 3
	LoopbackTypeReserved  LoopbackType = 4
)

func (l LoopbackType) String() string {
	switch l {
	case LoopbackTypeNone:
		return "none"
	case LoopbackTypeVpnv4:
		return "vpnv4"
	case LoopbackTypeIpv4:
		return "ipv4"
	case LoopbackTypePimRpAddr:
		return "pim_rp_addr"
	case LoopbackTypeReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// InterfaceCYOA and InterfaceDIA are edge-assignment tags carried verbatim
// from the dataplane domain.
type InterfaceCYOA uint8

const (
	InterfaceCYOANone               InterfaceCYOA = 0
	InterfaceCYOAGREOverDIA         InterfaceCYOA = 1
	InterfaceCYOAGREOverFabric      InterfaceCYOA = 2
	InterfaceCYOAGREOverPrivatePeer InterfaceCYOA = 3
	InterfaceCYOAGREOverPublicPeer  InterfaceCYOA = 4
	InterfaceCYOAGREOverCable       InterfaceCYOA = 5
)

type InterfaceDIA uint8

const (
	InterfaceDIANone InterfaceDIA = 0
	InterfaceDIADIA  InterfaceDIA = 1
)

type RoutingMode uint8

const (
	RoutingModeStatic RoutingMode = 0
	RoutingModeBGP    RoutingMode = 1
)

// CurrentInterfaceVersion is the version byte written by the encoder. The
// decoder dispatches on the stored version and promotes older records via
// IntoCurrentVersion.
const CurrentInterfaceVersion = 2

// Interface is a versioned record embedded in Device.
type Interface struct {
	Version            uint8
	Status             InterfaceStatus
	Name               string
	InterfaceType      InterfaceType
	InterfaceCYOA      InterfaceCYOA
	InterfaceDIA       InterfaceDIA
	LoopbackType       LoopbackType
	Bandwidth          uint64
	Cir                uint64
	Mtu                uint16
	RoutingMode        RoutingMode
	VlanId             uint16
	IpNet              [5]byte
	NodeSegmentIdx     uint16
	UserTunnelEndpoint bool
}

// DeserializeInterface reads the version byte and dispatches. Unknown
// versions fail decoding so a reader never silently misparses newer records.
func DeserializeInterface(reader *ByteReader, iface *Interface) error {
	iface.Version = reader.ReadU8()
	switch iface.Version {
	case 0: // version 1
		deserializeInterfaceV1(reader, iface)
	case 1: // version 2
		deserializeInterfaceV2(reader, iface)
	default:
		return dzerror.Newf(dzerror.InvalidAccountData, "unsupported interface version %d", iface.Version)
	}
	return nil
}

func deserializeInterfaceV1(reader *ByteReader, iface *Interface) {
	iface.Status = InterfaceStatus(reader.ReadU8())
	iface.Name = reader.ReadString()
	iface.InterfaceType = InterfaceType(reader.ReadU8())
	iface.LoopbackType = LoopbackType(reader.ReadU8())
	iface.VlanId = reader.ReadU16()
	iface.IpNet = reader.ReadNetworkV4()
	iface.NodeSegmentIdx = reader.ReadU16()
	iface.UserTunnelEndpoint = reader.ReadBool()
}

func deserializeInterfaceV2(reader *ByteReader, iface *Interface) {
	iface.Status = InterfaceStatus(reader.ReadU8())
	iface.Name = reader.ReadString()
	iface.InterfaceType = InterfaceType(reader.ReadU8())
	iface.InterfaceCYOA = InterfaceCYOA(reader.ReadU8())
	iface.InterfaceDIA = InterfaceDIA(reader.ReadU8())
	iface.LoopbackType = LoopbackType(reader.ReadU8())
	iface.Bandwidth = reader.ReadU64()
	iface.Cir = reader.ReadU64()
	iface.Mtu = reader.ReadU16()
	iface.RoutingMode = RoutingMode(reader.ReadU8())
	iface.VlanId = reader.ReadU16()
	iface.IpNet = reader.ReadNetworkV4()
	iface.NodeSegmentIdx = reader.ReadU16()
	iface.UserTunnelEndpoint = reader.ReadBool()
}

// IntoCurrentVersion promotes an interface record to the current version,
// defaulting the fields older versions did not carry.
func (iface Interface) IntoCurrentVersion() Interface {
	if iface.Version >= CurrentInterfaceVersion-1 {
		return iface
	}
	iface.Version = CurrentInterfaceVersion - 1
	iface.InterfaceCYOA = InterfaceCYOANone
	iface.InterfaceDIA = InterfaceDIANone
	iface.Bandwidth = 0
	iface.Cir = 0
	iface.Mtu = 0
	iface.RoutingMode = RoutingModeStatic
	return iface
}

// Serialize always writes the current version.
func (iface *Interface) Serialize(w *ByteWriter) {
	v := iface.IntoCurrentVersion()
	w.WriteU8(CurrentInterfaceVersion - 1)
	w.WriteU8(uint8(v.Status))
	w.WriteString(v.Name)
	w.WriteU8(uint8(v.InterfaceType))
	w.WriteU8(uint8(v.InterfaceCYOA))
	w.WriteU8(uint8(v.InterfaceDIA))
	w.WriteU8(uint8(v.LoopbackType))
	w.WriteU64(v.Bandwidth)
	w.WriteU64(v.Cir)
	w.WriteU16(v.Mtu)
	w.WriteU8(uint8(v.RoutingMode))
	w.WriteU16(v.VlanId)
	w.WriteNetworkV4(v.IpNet)
	w.WriteU16(v.NodeSegmentIdx)
	w.WriteBool(v.UserTunnelEndpoint)
}

func (iface *Interface) Validate() error {
	if iface.Name == "" {
		return dzerror.Newf(dzerror.InvalidInterfaceName, "interface name is empty")
	}
	if len(iface.Name) > MaxCodeLength {
		return dzerror.Newf(dzerror.InvalidInterfaceName, "interface name %q too long", iface.Name)
	}
	if iface.InterfaceType == InterfaceTypeInvalid {
		return dzerror.Newf(dzerror.InvalidAccountData, "interface %q has invalid type", iface.Name)
	}
	return nil
}
