package instruction

import (
	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// Optional fields follow the borsh Option layout: a presence byte, then the
// value only when present.

func writeOptU8(w *state.ByteWriter, v *uint8) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteU8(*v)
	}
}

func writeOptU16(w *state.ByteWriter, v *uint16) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteU16(*v)
	}
}

func writeOptU32(w *state.ByteWriter, v *uint32) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteU32(*v)
	}
}

func writeOptU64(w *state.ByteWriter, v *uint64) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteU64(*v)
	}
}

func writeOptF64(w *state.ByteWriter, v *float64) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteF64(*v)
	}
}

func writeOptBool(w *state.ByteWriter, v *bool) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteBool(*v)
	}
}

func writeOptString(w *state.ByteWriter, v *string) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteString(*v)
	}
}

func writeOptPubkey(w *state.ByteWriter, v *[32]byte) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WritePubkey(*v)
	}
}

func writeOptIPv4(w *state.ByteWriter, v *[4]byte) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteIPv4(*v)
	}
}

func writeOptNetworkV4(w *state.ByteWriter, v *[5]byte) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteNetworkV4(*v)
	}
}

func writeOptNetworkV4Slice(w *state.ByteWriter, v *[][5]byte) {
	w.WriteBool(v != nil)
	if v != nil {
		w.WriteNetworkV4Slice(*v)
	}
}

func readOpt[T any](r *state.ByteReader, read func() T) *T {
	if !r.ReadBool() {
		return nil
	}
	v := read()
	return &v
}

func encode(tag Tag, body func(w *state.ByteWriter)) []byte {
	w := state.NewByteWriter()
	w.WriteU8(uint8(tag))
	if body != nil {
		body(w)
	}
	return w.Bytes()
}

// Global state and config.

type InitGlobalStateArgs struct{}

func (InitGlobalStateArgs) Encode() []byte { return encode(TagInitGlobalState, nil) }

type SetAuthorityArgs struct {
	ActivatorAuthorityPK       [32]byte
	SentinelAuthorityPK        [32]byte
	HealthOraclePK             [32]byte
	ContributorManagerPK       [32]byte
	InternetLatencyCollectorPK [32]byte
	ContributorAirdropLamports uint64
	UserAirdropLamports        uint64
}

func (a SetAuthorityArgs) Encode() []byte {
	return encode(TagSetAuthority, func(w *state.ByteWriter) {
		w.WritePubkey(a.ActivatorAuthorityPK)
		w.WritePubkey(a.SentinelAuthorityPK)
		w.WritePubkey(a.HealthOraclePK)
		w.WritePubkey(a.ContributorManagerPK)
		w.WritePubkey(a.InternetLatencyCollectorPK)
		w.WriteU64(a.ContributorAirdropLamports)
		w.WriteU64(a.UserAirdropLamports)
	})
}

func decodeSetAuthority(r *state.ByteReader) SetAuthorityArgs {
	return SetAuthorityArgs{
		ActivatorAuthorityPK:       r.ReadPubkey(),
		SentinelAuthorityPK:        r.ReadPubkey(),
		HealthOraclePK:             r.ReadPubkey(),
		ContributorManagerPK:       r.ReadPubkey(),
		InternetLatencyCollectorPK: r.ReadPubkey(),
		ContributorAirdropLamports: r.ReadU64(),
		UserAirdropLamports:        r.ReadU64(),
	}
}

type AllowlistArgs struct {
	Pubkey [32]byte
}

func (a AllowlistArgs) encodeWith(tag Tag) []byte {
	return encode(tag, func(w *state.ByteWriter) { w.WritePubkey(a.Pubkey) })
}

func decodeAllowlist(r *state.ByteReader) AllowlistArgs {
	return AllowlistArgs{Pubkey: r.ReadPubkey()}
}

type AddFoundationAllowlistArgs struct{ AllowlistArgs }

func (a AddFoundationAllowlistArgs) Encode() []byte { return a.encodeWith(TagAddFoundationAllowlist) }

type RemoveFoundationAllowlistArgs struct{ AllowlistArgs }

func (a RemoveFoundationAllowlistArgs) Encode() []byte {
	return a.encodeWith(TagRemoveFoundationAllowlist)
}

type AddQAAllowlistArgs struct{ AllowlistArgs }

func (a AddQAAllowlistArgs) Encode() []byte { return a.encodeWith(TagAddQAAllowlist) }

type RemoveQAAllowlistArgs struct{ AllowlistArgs }

func (a RemoveQAAllowlistArgs) Encode() []byte { return a.encodeWith(TagRemoveQAAllowlist) }

type SetFeatureFlagsArgs struct {
	Flags uint32
}

func (a SetFeatureFlagsArgs) Encode() []byte {
	return encode(TagSetFeatureFlags, func(w *state.ByteWriter) { w.WriteU32(a.Flags) })
}

type SetGlobalConfigArgs struct {
	LocalASN                uint32
	RemoteASN               uint32
	DeviceTunnelBlock       [5]byte
	UserTunnelBlock         [5]byte
	MulticastGroupBlock     [5]byte
	MulticastPublisherBlock [5]byte
	LinkTunnelPrefix        uint8
	UserTunnelPrefix        uint8
}

func (a SetGlobalConfigArgs) Encode() []byte {
	return encode(TagSetGlobalConfig, func(w *state.ByteWriter) {
		w.WriteU32(a.LocalASN)
		w.WriteU32(a.RemoteASN)
		w.WriteNetworkV4(a.DeviceTunnelBlock)
		w.WriteNetworkV4(a.UserTunnelBlock)
		w.WriteNetworkV4(a.MulticastGroupBlock)
		w.WriteNetworkV4(a.MulticastPublisherBlock)
		w.WriteU8(a.LinkTunnelPrefix)
		w.WriteU8(a.UserTunnelPrefix)
	})
}

func decodeSetGlobalConfig(r *state.ByteReader) SetGlobalConfigArgs {
	return SetGlobalConfigArgs{
		LocalASN:                r.ReadU32(),
		RemoteASN:               r.ReadU32(),
		DeviceTunnelBlock:       r.ReadNetworkV4(),
		UserTunnelBlock:         r.ReadNetworkV4(),
		MulticastGroupBlock:     r.ReadNetworkV4(),
		MulticastPublisherBlock: r.ReadNetworkV4(),
		LinkTunnelPrefix:        r.ReadU8(),
		UserTunnelPrefix:        r.ReadU8(),
	}
}

type SetProgramVersionArgs struct {
	Version          state.ProgramVersion
	MinCompatVersion state.ProgramVersion
}

func (a SetProgramVersionArgs) Encode() []byte {
	return encode(TagSetProgramVersion, func(w *state.ByteWriter) {
		w.WriteU32(a.Version.Major)
		w.WriteU32(a.Version.Minor)
		w.WriteU32(a.Version.Patch)
		w.WriteU32(a.MinCompatVersion.Major)
		w.WriteU32(a.MinCompatVersion.Minor)
		w.WriteU32(a.MinCompatVersion.Patch)
	})
}

func decodeSetProgramVersion(r *state.ByteReader) SetProgramVersionArgs {
	return SetProgramVersionArgs{
		Version:          state.ProgramVersion{Major: r.ReadU32(), Minor: r.ReadU32(), Patch: r.ReadU32()},
		MinCompatVersion: state.ProgramVersion{Major: r.ReadU32(), Minor: r.ReadU32(), Patch: r.ReadU32()},
	}
}

// Location.

type CreateLocationArgs struct {
	Code    string
	Name    string
	Country string
	Lat     float64
	Lng     float64
	LocId   uint32
}

func (a CreateLocationArgs) Encode() []byte {
	return encode(TagCreateLocation, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WriteString(a.Name)
		w.WriteString(a.Country)
		w.WriteF64(a.Lat)
		w.WriteF64(a.Lng)
		w.WriteU32(a.LocId)
	})
}

func decodeCreateLocation(r *state.ByteReader) CreateLocationArgs {
	return CreateLocationArgs{
		Code:    r.ReadString(),
		Name:    r.ReadString(),
		Country: r.ReadString(),
		Lat:     r.ReadF64(),
		Lng:     r.ReadF64(),
		LocId:   r.ReadU32(),
	}
}

type UpdateLocationArgs struct {
	Code    *string
	Name    *string
	Country *string
	Lat     *float64
	Lng     *float64
	LocId   *uint32
}

func (a UpdateLocationArgs) Encode() []byte {
	return encode(TagUpdateLocation, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptString(w, a.Name)
		writeOptString(w, a.Country)
		writeOptF64(w, a.Lat)
		writeOptF64(w, a.Lng)
		writeOptU32(w, a.LocId)
	})
}

func decodeUpdateLocation(r *state.ByteReader) UpdateLocationArgs {
	return UpdateLocationArgs{
		Code:    readOpt(r, r.ReadString),
		Name:    readOpt(r, r.ReadString),
		Country: readOpt(r, r.ReadString),
		Lat:     readOpt(r, r.ReadF64),
		Lng:     readOpt(r, r.ReadF64),
		LocId:   readOpt(r, r.ReadU32),
	}
}

// Exchange.

type CreateExchangeArgs struct {
	Code string
	Name string
	Lat  float64
	Lng  float64
}

func (a CreateExchangeArgs) Encode() []byte {
	return encode(TagCreateExchange, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WriteString(a.Name)
		w.WriteF64(a.Lat)
		w.WriteF64(a.Lng)
	})
}

func decodeCreateExchange(r *state.ByteReader) CreateExchangeArgs {
	return CreateExchangeArgs{
		Code: r.ReadString(),
		Name: r.ReadString(),
		Lat:  r.ReadF64(),
		Lng:  r.ReadF64(),
	}
}

type UpdateExchangeArgs struct {
	Code *string
	Name *string
	Lat  *float64
	Lng  *float64
}

func (a UpdateExchangeArgs) Encode() []byte {
	return encode(TagUpdateExchange, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptString(w, a.Name)
		writeOptF64(w, a.Lat)
		writeOptF64(w, a.Lng)
	})
}

func decodeUpdateExchange(r *state.ByteReader) UpdateExchangeArgs {
	return UpdateExchangeArgs{
		Code: readOpt(r, r.ReadString),
		Name: readOpt(r, r.ReadString),
		Lat:  readOpt(r, r.ReadF64),
		Lng:  readOpt(r, r.ReadF64),
	}
}

// Contributor.

type CreateContributorArgs struct {
	Code         string
	OpsManagerPK [32]byte
}

func (a CreateContributorArgs) Encode() []byte {
	return encode(TagCreateContributor, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WritePubkey(a.OpsManagerPK)
	})
}

func decodeCreateContributor(r *state.ByteReader) CreateContributorArgs {
	return CreateContributorArgs{
		Code:         r.ReadString(),
		OpsManagerPK: r.ReadPubkey(),
	}
}

type UpdateContributorArgs struct {
	Code         *string
	OpsManagerPK *[32]byte
}

func (a UpdateContributorArgs) Encode() []byte {
	return encode(TagUpdateContributor, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptPubkey(w, a.OpsManagerPK)
	})
}

func decodeUpdateContributor(r *state.ByteReader) UpdateContributorArgs {
	return UpdateContributorArgs{
		Code:         readOpt(r, r.ReadString),
		OpsManagerPK: readOpt(r, r.ReadPubkey),
	}
}

// Device.

type CreateDeviceArgs struct {
	Code               string
	DeviceType         uint8
	PublicIp           [4]byte
	DzPrefixes         [][5]byte
	MetricsPublisherPK [32]byte
	MgmtVrf            string
	MaxUsers           uint16
}

func (a CreateDeviceArgs) Encode() []byte {
	return encode(TagCreateDevice, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WriteU8(a.DeviceType)
		w.WriteIPv4(a.PublicIp)
		w.WriteNetworkV4Slice(a.DzPrefixes)
		w.WritePubkey(a.MetricsPublisherPK)
		w.WriteString(a.MgmtVrf)
		w.WriteU16(a.MaxUsers)
	})
}

func decodeCreateDevice(r *state.ByteReader) CreateDeviceArgs {
	return CreateDeviceArgs{
		Code:               r.ReadString(),
		DeviceType:         r.ReadU8(),
		PublicIp:           r.ReadIPv4(),
		DzPrefixes:         r.ReadNetworkV4Slice(),
		MetricsPublisherPK: r.ReadPubkey(),
		MgmtVrf:            r.ReadString(),
		MaxUsers:           r.ReadU16(),
	}
}

type UpdateDeviceArgs struct {
	Code               *string
	DeviceType         *uint8
	PublicIp           *[4]byte
	DzPrefixes         *[][5]byte
	MetricsPublisherPK *[32]byte
	MgmtVrf            *string
	MaxUsers           *uint16
	DesiredStatus      *uint8
}

func (a UpdateDeviceArgs) Encode() []byte {
	return encode(TagUpdateDevice, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptU8(w, a.DeviceType)
		writeOptIPv4(w, a.PublicIp)
		writeOptNetworkV4Slice(w, a.DzPrefixes)
		writeOptPubkey(w, a.MetricsPublisherPK)
		writeOptString(w, a.MgmtVrf)
		writeOptU16(w, a.MaxUsers)
		writeOptU8(w, a.DesiredStatus)
	})
}

func decodeUpdateDevice(r *state.ByteReader) UpdateDeviceArgs {
	return UpdateDeviceArgs{
		Code:               readOpt(r, r.ReadString),
		DeviceType:         readOpt(r, r.ReadU8),
		PublicIp:           readOpt(r, r.ReadIPv4),
		DzPrefixes:         readOpt(r, r.ReadNetworkV4Slice),
		MetricsPublisherPK: readOpt(r, r.ReadPubkey),
		MgmtVrf:            readOpt(r, r.ReadString),
		MaxUsers:           readOpt(r, r.ReadU16),
		DesiredStatus:      readOpt(r, r.ReadU8),
	}
}

type SetDeviceHealthArgs struct {
	Health uint8
}

func (a SetDeviceHealthArgs) Encode() []byte {
	return encode(TagSetDeviceHealth, func(w *state.ByteWriter) { w.WriteU8(a.Health) })
}

type CreateDeviceInterfaceArgs struct {
	Name               string
	InterfaceType      uint8
	LoopbackType       uint8
	VlanId             uint16
	IpNet              [5]byte
	NodeSegmentIdx     uint16
	UserTunnelEndpoint bool
	Bandwidth          uint64
	Cir                uint64
	Mtu                uint16
	RoutingMode        uint8
}

func (a CreateDeviceInterfaceArgs) Encode() []byte {
	return encode(TagCreateDeviceInterface, func(w *state.ByteWriter) {
		w.WriteString(a.Name)
		w.WriteU8(a.InterfaceType)
		w.WriteU8(a.LoopbackType)
		w.WriteU16(a.VlanId)
		w.WriteNetworkV4(a.IpNet)
		w.WriteU16(a.NodeSegmentIdx)
		w.WriteBool(a.UserTunnelEndpoint)
		w.WriteU64(a.Bandwidth)
		w.WriteU64(a.Cir)
		w.WriteU16(a.Mtu)
		w.WriteU8(a.RoutingMode)
	})
}

func decodeCreateDeviceInterface(r *state.ByteReader) CreateDeviceInterfaceArgs {
	return CreateDeviceInterfaceArgs{
		Name:               r.ReadString(),
		InterfaceType:      r.ReadU8(),
		LoopbackType:       r.ReadU8(),
		VlanId:             r.ReadU16(),
		IpNet:              r.ReadNetworkV4(),
		NodeSegmentIdx:     r.ReadU16(),
		UserTunnelEndpoint: r.ReadBool(),
		Bandwidth:          r.ReadU64(),
		Cir:                r.ReadU64(),
		Mtu:                r.ReadU16(),
		RoutingMode:        r.ReadU8(),
	}
}

type UpdateDeviceInterfaceArgs struct {
	Name               string
	Status             *uint8
	VlanId             *uint16
	IpNet              *[5]byte
	NodeSegmentIdx     *uint16
	UserTunnelEndpoint *bool
	Bandwidth          *uint64
	Cir                *uint64
	Mtu                *uint16
	RoutingMode        *uint8
}

func (a UpdateDeviceInterfaceArgs) Encode() []byte {
	return encode(TagUpdateDeviceInterface, func(w *state.ByteWriter) {
		w.WriteString(a.Name)
		writeOptU8(w, a.Status)
		writeOptU16(w, a.VlanId)
		writeOptNetworkV4(w, a.IpNet)
		writeOptU16(w, a.NodeSegmentIdx)
		writeOptBool(w, a.UserTunnelEndpoint)
		writeOptU64(w, a.Bandwidth)
		writeOptU64(w, a.Cir)
		writeOptU16(w, a.Mtu)
		writeOptU8(w, a.RoutingMode)
	})
}

func decodeUpdateDeviceInterface(r *state.ByteReader) UpdateDeviceInterfaceArgs {
	return UpdateDeviceInterfaceArgs{
		Name:               r.ReadString(),
		Status:             readOpt(r, r.ReadU8),
		VlanId:             readOpt(r, r.ReadU16),
		IpNet:              readOpt(r, r.ReadNetworkV4),
		NodeSegmentIdx:     readOpt(r, r.ReadU16),
		UserTunnelEndpoint: readOpt(r, r.ReadBool),
		Bandwidth:          readOpt(r, r.ReadU64),
		Cir:                readOpt(r, r.ReadU64),
		Mtu:                readOpt(r, r.ReadU16),
		RoutingMode:        readOpt(r, r.ReadU8),
	}
}

type RemoveDeviceInterfaceArgs struct {
	Name string
}

func (a RemoveDeviceInterfaceArgs) Encode() []byte {
	return encode(TagRemoveDeviceInterface, func(w *state.ByteWriter) { w.WriteString(a.Name) })
}

// Link.

type CreateLinkArgs struct {
	Code           string
	LinkType       uint8
	Bandwidth      uint64
	Mtu            uint32
	DelayNs        uint64
	JitterNs       uint64
	SideAIfaceName string
	SideZIfaceName string
}

func (a CreateLinkArgs) Encode() []byte {
	return encode(TagCreateLink, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WriteU8(a.LinkType)
		w.WriteU64(a.Bandwidth)
		w.WriteU32(a.Mtu)
		w.WriteU64(a.DelayNs)
		w.WriteU64(a.JitterNs)
		w.WriteString(a.SideAIfaceName)
		w.WriteString(a.SideZIfaceName)
	})
}

func decodeCreateLink(r *state.ByteReader) CreateLinkArgs {
	return CreateLinkArgs{
		Code:           r.ReadString(),
		LinkType:       r.ReadU8(),
		Bandwidth:      r.ReadU64(),
		Mtu:            r.ReadU32(),
		DelayNs:        r.ReadU64(),
		JitterNs:       r.ReadU64(),
		SideAIfaceName: r.ReadString(),
		SideZIfaceName: r.ReadString(),
	}
}

type AcceptLinkArgs struct {
	SideZIfaceName string
}

func (a AcceptLinkArgs) Encode() []byte {
	return encode(TagAcceptLink, func(w *state.ByteWriter) { w.WriteString(a.SideZIfaceName) })
}

type UpdateLinkArgs struct {
	Code            *string
	Bandwidth       *uint64
	Mtu             *uint32
	DelayNs         *uint64
	JitterNs        *uint64
	DelayOverrideNs *uint64
	DesiredStatus   *uint8
}

func (a UpdateLinkArgs) Encode() []byte {
	return encode(TagUpdateLink, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptU64(w, a.Bandwidth)
		writeOptU32(w, a.Mtu)
		writeOptU64(w, a.DelayNs)
		writeOptU64(w, a.JitterNs)
		writeOptU64(w, a.DelayOverrideNs)
		writeOptU8(w, a.DesiredStatus)
	})
}

func decodeUpdateLink(r *state.ByteReader) UpdateLinkArgs {
	return UpdateLinkArgs{
		Code:            readOpt(r, r.ReadString),
		Bandwidth:       readOpt(r, r.ReadU64),
		Mtu:             readOpt(r, r.ReadU32),
		DelayNs:         readOpt(r, r.ReadU64),
		JitterNs:        readOpt(r, r.ReadU64),
		DelayOverrideNs: readOpt(r, r.ReadU64),
		DesiredStatus:   readOpt(r, r.ReadU8),
	}
}

type ActivateLinkArgs struct {
	TunnelId  uint16
	TunnelNet [5]byte
}

func (a ActivateLinkArgs) Encode() []byte {
	return encode(TagActivateLink, func(w *state.ByteWriter) {
		w.WriteU16(a.TunnelId)
		w.WriteNetworkV4(a.TunnelNet)
	})
}

func decodeActivateLink(r *state.ByteReader) ActivateLinkArgs {
	return ActivateLinkArgs{
		TunnelId:  r.ReadU16(),
		TunnelNet: r.ReadNetworkV4(),
	}
}

type SetLinkHealthArgs struct {
	Health uint8
}

func (a SetLinkHealthArgs) Encode() []byte {
	return encode(TagSetLinkHealth, func(w *state.ByteWriter) { w.WriteU8(a.Health) })
}

// User.

type CreateUserArgs struct {
	UserType uint8
	CyoaType uint8
	ClientIp [4]byte
}

func (a CreateUserArgs) Encode() []byte {
	return encode(TagCreateUser, func(w *state.ByteWriter) {
		w.WriteU8(a.UserType)
		w.WriteU8(a.CyoaType)
		w.WriteIPv4(a.ClientIp)
	})
}

func decodeCreateUser(r *state.ByteReader) CreateUserArgs {
	return CreateUserArgs{
		UserType: r.ReadU8(),
		CyoaType: r.ReadU8(),
		ClientIp: r.ReadIPv4(),
	}
}

type CreateSubscribeUserArgs struct {
	UserType   uint8
	CyoaType   uint8
	ClientIp   [4]byte
	Publisher  bool
	Subscriber bool
}

func (a CreateSubscribeUserArgs) Encode() []byte {
	return encode(TagCreateSubscribeUser, func(w *state.ByteWriter) {
		w.WriteU8(a.UserType)
		w.WriteU8(a.CyoaType)
		w.WriteIPv4(a.ClientIp)
		w.WriteBool(a.Publisher)
		w.WriteBool(a.Subscriber)
	})
}

func decodeCreateSubscribeUser(r *state.ByteReader) CreateSubscribeUserArgs {
	return CreateSubscribeUserArgs{
		UserType:   r.ReadU8(),
		CyoaType:   r.ReadU8(),
		ClientIp:   r.ReadIPv4(),
		Publisher:  r.ReadBool(),
		Subscriber: r.ReadBool(),
	}
}

type ActivateUserArgs struct {
	TunnelId  uint16
	TunnelNet [5]byte
	DzIp      [4]byte
}

func (a ActivateUserArgs) Encode() []byte {
	return encode(TagActivateUser, func(w *state.ByteWriter) {
		w.WriteU16(a.TunnelId)
		w.WriteNetworkV4(a.TunnelNet)
		w.WriteIPv4(a.DzIp)
	})
}

func decodeActivateUser(r *state.ByteReader) ActivateUserArgs {
	return ActivateUserArgs{
		TunnelId:  r.ReadU16(),
		TunnelNet: r.ReadNetworkV4(),
		DzIp:      r.ReadIPv4(),
	}
}

type UpdateUserArgs struct {
	DzIp      *[4]byte
	TunnelId  *uint16
	TunnelNet *[5]byte
}

func (a UpdateUserArgs) Encode() []byte {
	return encode(TagUpdateUser, func(w *state.ByteWriter) {
		writeOptIPv4(w, a.DzIp)
		writeOptU16(w, a.TunnelId)
		writeOptNetworkV4(w, a.TunnelNet)
	})
}

func decodeUpdateUser(r *state.ByteReader) UpdateUserArgs {
	return UpdateUserArgs{
		DzIp:      readOpt(r, r.ReadIPv4),
		TunnelId:  readOpt(r, r.ReadU16),
		TunnelNet: readOpt(r, r.ReadNetworkV4),
	}
}

type SubscribeMulticastGroupArgs struct {
	Publisher  bool
	Subscriber bool
}

func (a SubscribeMulticastGroupArgs) Encode() []byte {
	return encode(TagSubscribeMulticastGroup, func(w *state.ByteWriter) {
		w.WriteBool(a.Publisher)
		w.WriteBool(a.Subscriber)
	})
}

func decodeSubscribeMulticastGroup(r *state.ByteReader) SubscribeMulticastGroupArgs {
	return SubscribeMulticastGroupArgs{
		Publisher:  r.ReadBool(),
		Subscriber: r.ReadBool(),
	}
}

type UnsubscribeMulticastGroupArgs struct {
	Publisher  bool
	Subscriber bool
}

func (a UnsubscribeMulticastGroupArgs) Encode() []byte {
	return encode(TagUnsubscribeMulticastGroup, func(w *state.ByteWriter) {
		w.WriteBool(a.Publisher)
		w.WriteBool(a.Subscriber)
	})
}

// Multicast group.

type CreateMulticastGroupArgs struct {
	Code         string
	MaxBandwidth uint64
}

func (a CreateMulticastGroupArgs) Encode() []byte {
	return encode(TagCreateMulticastGroup, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WriteU64(a.MaxBandwidth)
	})
}

func decodeCreateMulticastGroup(r *state.ByteReader) CreateMulticastGroupArgs {
	return CreateMulticastGroupArgs{
		Code:         r.ReadString(),
		MaxBandwidth: r.ReadU64(),
	}
}

type UpdateMulticastGroupArgs struct {
	Code         *string
	MaxBandwidth *uint64
}

func (a UpdateMulticastGroupArgs) Encode() []byte {
	return encode(TagUpdateMulticastGroup, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptU64(w, a.MaxBandwidth)
	})
}

func decodeUpdateMulticastGroup(r *state.ByteReader) UpdateMulticastGroupArgs {
	return UpdateMulticastGroupArgs{
		Code:         readOpt(r, r.ReadString),
		MaxBandwidth: readOpt(r, r.ReadU64),
	}
}

type ActivateMulticastGroupArgs struct {
	MulticastIp [4]byte
}

func (a ActivateMulticastGroupArgs) Encode() []byte {
	return encode(TagActivateMulticastGroup, func(w *state.ByteWriter) { w.WriteIPv4(a.MulticastIp) })
}

// Access pass.

type SetAccessPassArgs struct {
	AccessPassType   uint8
	AssociatedPubkey [32]byte
	ClientIp         [4]byte
	LastAccessEpoch  uint64
	AllowMultipleIP  bool
}

func (a SetAccessPassArgs) Encode() []byte {
	return encode(TagSetAccessPass, func(w *state.ByteWriter) {
		w.WriteU8(a.AccessPassType)
		w.WritePubkey(a.AssociatedPubkey)
		w.WriteIPv4(a.ClientIp)
		w.WriteU64(a.LastAccessEpoch)
		w.WriteBool(a.AllowMultipleIP)
	})
}

func decodeSetAccessPass(r *state.ByteReader) SetAccessPassArgs {
	return SetAccessPassArgs{
		AccessPassType:   r.ReadU8(),
		AssociatedPubkey: r.ReadPubkey(),
		ClientIp:         r.ReadIPv4(),
		LastAccessEpoch:  r.ReadU64(),
		AllowMultipleIP:  r.ReadBool(),
	}
}

// Tenant.

type CreateTenantArgs struct {
	Code           string
	VrfId          uint16
	Administrators [][32]byte
	TokenAccount   [32]byte
	MetroRouting   bool
	RouteLiveness  bool
}

func (a CreateTenantArgs) Encode() []byte {
	return encode(TagCreateTenant, func(w *state.ByteWriter) {
		w.WriteString(a.Code)
		w.WriteU16(a.VrfId)
		w.WritePubkeySlice(a.Administrators)
		w.WritePubkey(a.TokenAccount)
		w.WriteBool(a.MetroRouting)
		w.WriteBool(a.RouteLiveness)
	})
}

func decodeCreateTenant(r *state.ByteReader) CreateTenantArgs {
	return CreateTenantArgs{
		Code:           r.ReadString(),
		VrfId:          r.ReadU16(),
		Administrators: r.ReadPubkeySlice(),
		TokenAccount:   r.ReadPubkey(),
		MetroRouting:   r.ReadBool(),
		RouteLiveness:  r.ReadBool(),
	}
}

type UpdateTenantArgs struct {
	Code           *string
	VrfId          *uint16
	Administrators *[][32]byte
	MetroRouting   *bool
	RouteLiveness  *bool
}

func (a UpdateTenantArgs) Encode() []byte {
	return encode(TagUpdateTenant, func(w *state.ByteWriter) {
		writeOptString(w, a.Code)
		writeOptU16(w, a.VrfId)
		w.WriteBool(a.Administrators != nil)
		if a.Administrators != nil {
			w.WritePubkeySlice(*a.Administrators)
		}
		writeOptBool(w, a.MetroRouting)
		writeOptBool(w, a.RouteLiveness)
	})
}

func decodeUpdateTenant(r *state.ByteReader) UpdateTenantArgs {
	return UpdateTenantArgs{
		Code:           readOpt(r, r.ReadString),
		VrfId:          readOpt(r, r.ReadU16),
		Administrators: readOpt(r, r.ReadPubkeySlice),
		MetroRouting:   readOpt(r, r.ReadBool),
		RouteLiveness:  readOpt(r, r.ReadBool),
	}
}

// Resource extensions.

type ResourceKind uint8

const (
	ResourceKindLinkIds                 ResourceKind = 0
	ResourceKindSegmentRoutingIds       ResourceKind = 1
	ResourceKindUserTunnelBlock         ResourceKind = 2
	ResourceKindDeviceTunnelBlock       ResourceKind = 3
	ResourceKindMulticastGroupBlock     ResourceKind = 4
	ResourceKindMulticastPublisherBlock ResourceKind = 5
	ResourceKindDzPrefixBlock           ResourceKind = 6
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindLinkIds:
		return "link_ids"
	case ResourceKindSegmentRoutingIds:
		return "segment_routing_ids"
	case ResourceKindUserTunnelBlock:
		return "user_tunnel_block"
	case ResourceKindDeviceTunnelBlock:
		return "device_tunnel_block"
	case ResourceKindMulticastGroupBlock:
		return "multicast_group_block"
	case ResourceKindMulticastPublisherBlock:
		return "multicast_publisher_block"
	case ResourceKindDzPrefixBlock:
		return "dz_prefix_block"
	default:
		return "unknown"
	}
}

type InitializeResourceExtensionArgs struct {
	Kind        ResourceKind
	BaseNet     [5]byte // IP kinds
	AllocPrefix uint8   // IP kinds: per-allocation carve size
	RangeStart  uint16  // ID kinds
	RangeEnd    uint16  // ID kinds, exclusive
	PrefixIdx   uint32  // dz-prefix block: index into device.DzPrefixes
}

func (a InitializeResourceExtensionArgs) Encode() []byte {
	return encode(TagInitializeResourceExtension, func(w *state.ByteWriter) {
		w.WriteU8(uint8(a.Kind))
		w.WriteNetworkV4(a.BaseNet)
		w.WriteU8(a.AllocPrefix)
		w.WriteU16(a.RangeStart)
		w.WriteU16(a.RangeEnd)
		w.WriteU32(a.PrefixIdx)
	})
}

func decodeInitializeResourceExtension(r *state.ByteReader) InitializeResourceExtensionArgs {
	return InitializeResourceExtensionArgs{
		Kind:        ResourceKind(r.ReadU8()),
		BaseNet:     r.ReadNetworkV4(),
		AllocPrefix: r.ReadU8(),
		RangeStart:  r.ReadU16(),
		RangeEnd:    r.ReadU16(),
		PrefixIdx:   r.ReadU32(),
	}
}

// NoArgs is the payload of every instruction that only names accounts.
type NoArgs struct {
	Tag Tag
}

func (a NoArgs) Encode() []byte { return encode(a.Tag, nil) }

// Decode parses an instruction buffer into its tag and typed arguments.
// Instructions without arguments decode to NoArgs.
func Decode(data []byte) (Tag, any, error) {
	if len(data) == 0 {
		return 0, nil, dzerror.Newf(dzerror.InvalidAccountData, "empty instruction data")
	}
	tag := Tag(data[0])
	r := state.NewByteReader(data[1:])
	switch tag {
	case TagInitGlobalState:
		return tag, InitGlobalStateArgs{}, nil
	case TagSetAuthority:
		return tag, decodeSetAuthority(r), nil
	case TagAddFoundationAllowlist:
		return tag, AddFoundationAllowlistArgs{decodeAllowlist(r)}, nil
	case TagRemoveFoundationAllowlist:
		return tag, RemoveFoundationAllowlistArgs{decodeAllowlist(r)}, nil
	case TagAddQAAllowlist:
		return tag, AddQAAllowlistArgs{decodeAllowlist(r)}, nil
	case TagRemoveQAAllowlist:
		return tag, RemoveQAAllowlistArgs{decodeAllowlist(r)}, nil
	case TagSetFeatureFlags:
		return tag, SetFeatureFlagsArgs{Flags: r.ReadU32()}, nil
	case TagSetGlobalConfig:
		return tag, decodeSetGlobalConfig(r), nil
	case TagSetProgramVersion:
		return tag, decodeSetProgramVersion(r), nil
	case TagCreateLocation:
		return tag, decodeCreateLocation(r), nil
	case TagUpdateLocation:
		return tag, decodeUpdateLocation(r), nil
	case TagCreateExchange:
		return tag, decodeCreateExchange(r), nil
	case TagUpdateExchange:
		return tag, decodeUpdateExchange(r), nil
	case TagCreateContributor:
		return tag, decodeCreateContributor(r), nil
	case TagUpdateContributor:
		return tag, decodeUpdateContributor(r), nil
	case TagCreateDevice:
		return tag, decodeCreateDevice(r), nil
	case TagUpdateDevice:
		return tag, decodeUpdateDevice(r), nil
	case TagSetDeviceHealth:
		return tag, SetDeviceHealthArgs{Health: r.ReadU8()}, nil
	case TagCreateDeviceInterface:
		return tag, decodeCreateDeviceInterface(r), nil
	case TagUpdateDeviceInterface:
		return tag, decodeUpdateDeviceInterface(r), nil
	case TagRemoveDeviceInterface:
		return tag, RemoveDeviceInterfaceArgs{Name: r.ReadString()}, nil
	case TagCreateLink:
		return tag, decodeCreateLink(r), nil
	case TagAcceptLink:
		return tag, AcceptLinkArgs{SideZIfaceName: r.ReadString()}, nil
	case TagUpdateLink:
		return tag, decodeUpdateLink(r), nil
	case TagActivateLink:
		return tag, decodeActivateLink(r), nil
	case TagSetLinkHealth:
		return tag, SetLinkHealthArgs{Health: r.ReadU8()}, nil
	case TagCreateUser:
		return tag, decodeCreateUser(r), nil
	case TagCreateSubscribeUser:
		return tag, decodeCreateSubscribeUser(r), nil
	case TagActivateUser:
		return tag, decodeActivateUser(r), nil
	case TagUpdateUser:
		return tag, decodeUpdateUser(r), nil
	case TagSubscribeMulticastGroup:
		return tag, decodeSubscribeMulticastGroup(r), nil
	case TagUnsubscribeMulticastGroup:
		return tag, UnsubscribeMulticastGroupArgs{Publisher: r.ReadBool(), Subscriber: r.ReadBool()}, nil
	case TagCreateMulticastGroup:
		return tag, decodeCreateMulticastGroup(r), nil
	case TagUpdateMulticastGroup:
		return tag, decodeUpdateMulticastGroup(r), nil
	case TagActivateMulticastGroup:
		return tag, ActivateMulticastGroupArgs{MulticastIp: r.ReadIPv4()}, nil
	case TagSetAccessPass:
		return tag, decodeSetAccessPass(r), nil
	case TagCreateTenant:
		return tag, decodeCreateTenant(r), nil
	case TagUpdateTenant:
		return tag, decodeUpdateTenant(r), nil
	case TagInitializeResourceExtension:
		return tag, decodeInitializeResourceExtension(r), nil
	case TagSuspendLocation, TagResumeLocation, TagDeleteLocation,
		TagSuspendExchange, TagResumeExchange, TagDeleteExchange,
		TagSuspendContributor, TagResumeContributor, TagDeleteContributor,
		TagActivateDevice, TagRejectDevice, TagSuspendDevice, TagResumeDevice,
		TagDeleteDevice, TagCloseAccountDevice,
		TagRejectLink, TagDeleteLink, TagDeleteLinkAtomic, TagCloseAccountLink,
		TagRejectUser, TagDeleteUser, TagDeleteUserAtomic, TagCloseAccountUser,
		TagRejectMulticastGroup, TagSuspendMulticastGroup, TagResumeMulticastGroup,
		TagDeleteMulticastGroup, TagDeleteMulticastGroupAtomic, TagCloseAccountMulticastGroup,
		TagAddMGroupPubAllowlist, TagRemoveMGroupPubAllowlist,
		TagAddMGroupSubAllowlist, TagRemoveMGroupSubAllowlist,
		TagCloseAccessPass, TagDeleteTenant:
		return tag, NoArgs{Tag: tag}, nil
	default:
		return tag, nil, dzerror.Newf(dzerror.InvalidAccountData, "unknown instruction tag %d", tag)
	}
}
