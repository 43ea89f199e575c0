package state

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

func TestLocationRoundTrip(t *testing.T) {
	t.Parallel()

	loc := Location{
		AccountType:    LocationType,
		Owner:          [32]byte{1, 2, 3},
		Index:          Uint128{Low: 7},
		BumpSeed:       250,
		Lat:            52.52,
		Lng:            13.405,
		LocId:          1001,
		Status:         LocationStatusActivated,
		Code:           "ber",
		Name:           "Berlin",
		Country:        "DE",
		ReferenceCount: 2,
	}

	data := loc.Serialize()

	var got Location
	DeserializeLocation(NewByteReader(data), &got)
	if diff := cmp.Diff(loc, got); diff != "" {
		t.Errorf("location round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceRoundTrip(t *testing.T) {
	t.Parallel()

	dev := Device{
		AccountType:    DeviceType,
		Owner:          [32]byte{9},
		Index:          Uint128{Low: 3},
		BumpSeed:       253,
		LocationPubKey: [32]byte{1},
		ExchangePubKey: [32]byte{2},
		DeviceType:     DeviceDeviceTypeEdge,
		PublicIp:       [4]byte{203, 0, 113, 10},
		Status:         DeviceStatusActivated,
		Code:           "ber-dz001",
		DzPrefixes:     [][5]byte{{100, 0, 0, 0, 24}},
		MgmtVrf:        "mgmt",
		Interfaces: []Interface{
			{
				Version:       CurrentInterfaceVersion - 1,
				Status:        InterfaceStatusActivated,
				Name:          "loopback0",
				InterfaceType: InterfaceTypeLoopback,
				LoopbackType:  LoopbackTypeVpnv4,
				Bandwidth:     10_000_000_000,
				Mtu:           9000,
				IpNet:         [5]byte{100, 0, 0, 1, 32},
			},
		},
		ReferenceCount:      1,
		UsersCount:          4,
		MaxUsers:            128,
		DeviceHealth:        DeviceHealthReadyForUsers,
		DeviceDesiredStatus: DeviceDesiredStatusActivated,
		UnicastUsersCount:   3,
		MulticastUsersCount: 1,
		MaxUnicastUsers:     100,
		MaxMulticastUsers:   28,
	}

	data := dev.Serialize()

	var got Device
	require.NoError(t, DeserializeDevice(NewByteReader(data), &got))
	if diff := cmp.Diff(dev, got); diff != "" {
		t.Errorf("device round trip mismatch (-want +got):\n%s", diff)
	}
}

// Buffers written before the user-count split must decode with the appended
// fields zeroed.
func TestDeviceDecodeWithoutAppendedCounts(t *testing.T) {
	t.Parallel()

	dev := Device{
		AccountType:  DeviceType,
		Status:       DeviceStatusPending,
		Code:         "lax-dz001",
		DzPrefixes:   [][5]byte{{100, 64, 0, 0, 26}},
		DeviceHealth: DeviceHealthPending,
	}
	data := dev.Serialize()
	data = data[:len(data)-8] // strip the four appended u16 counts

	var got Device
	require.NoError(t, DeserializeDevice(NewByteReader(data), &got))
	require.Equal(t, uint16(0), got.UnicastUsersCount)
	require.Equal(t, uint16(0), got.MulticastUsersCount)
	require.Equal(t, uint16(0), got.MaxUnicastUsers)
	require.Equal(t, uint16(0), got.MaxMulticastUsers)
	require.Equal(t, "lax-dz001", got.Code)
}

// A corrupt interface count larger than the remaining buffer must fail the
// decode instead of fabricating empty interfaces.
func TestDeviceRejectsOversizedInterfaceCount(t *testing.T) {
	t.Parallel()

	dev := Device{
		AccountType: DeviceType,
		Status:      DeviceStatusActivated,
		Code:        "nyc-dz001",
		DzPrefixes:  [][5]byte{{100, 0, 0, 0, 24}},
	}
	data := dev.Serialize()
	// Drop everything after the interface count, then claim a million
	// interfaces with no payload behind them.
	data = data[:len(data)-18]
	binary.LittleEndian.PutUint32(data[len(data)-4:], 1_000_000)

	var got Device
	err := DeserializeDevice(NewByteReader(data), &got)
	require.Error(t, err)
	require.Equal(t, dzerror.InvalidAccountData, dzerror.CodeOf(err))
	require.Empty(t, got.Interfaces)
}

func TestInterfaceV1PromotesToCurrent(t *testing.T) {
	t.Parallel()

	w := NewByteWriter()
	w.WriteU8(0) // version 1
	w.WriteU8(uint8(InterfaceStatusActivated))
	w.WriteString("ethernet1")
	w.WriteU8(uint8(InterfaceTypePhysical))
	w.WriteU8(uint8(LoopbackTypeNone))
	w.WriteU16(100) // vlan
	w.WriteNetworkV4([5]byte{172, 16, 0, 0, 31})
	w.WriteU16(7) // node segment
	w.WriteBool(true)

	var iface Interface
	require.NoError(t, DeserializeInterface(NewByteReader(w.Bytes()), &iface))

	cur := iface.IntoCurrentVersion()
	require.Equal(t, "ethernet1", cur.Name)
	require.Equal(t, InterfaceTypePhysical, cur.InterfaceType)
	require.Equal(t, uint16(100), cur.VlanId)
	require.True(t, cur.UserTunnelEndpoint)
	require.Equal(t, uint64(0), cur.Bandwidth)
	require.Equal(t, RoutingModeStatic, cur.RoutingMode)
}

func TestLinkRoundTrip(t *testing.T) {
	t.Parallel()

	link := Link{
		AccountType:       LinkType,
		Owner:             [32]byte{5},
		Index:             Uint128{Low: 11},
		BumpSeed:          252,
		SideAPubKey:       [32]byte{10},
		SideZPubKey:       [32]byte{11},
		LinkType:          LinkLinkTypeWAN,
		Bandwidth:         100_000_000_000,
		Mtu:               9000,
		DelayNs:           1_500_000,
		JitterNs:          20_000,
		TunnelId:          502,
		TunnelNet:         [5]byte{172, 16, 0, 4, 31},
		Status:            LinkStatusActivated,
		Code:              "ber-lax-01",
		ContributorPubKey: [32]byte{12},
		SideAIfaceName:    "ethernet1",
		SideZIfaceName:    "ethernet2",
		DelayOverrideNs:   0,
		LinkHealth:        LinkHealthReadyForService,
		LinkDesiredStatus: LinkDesiredStatusActivated,
	}

	var got Link
	DeserializeLink(NewByteReader(link.Serialize()), &got)
	if diff := cmp.Diff(link, got); diff != "" {
		t.Errorf("link round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()

	user := User{
		AccountType:    UserType,
		Owner:          [32]byte{1},
		Index:          Uint128{Low: 42},
		BumpSeed:       251,
		UserType:       UserTypeMulticast,
		TenantPubKey:   [32]byte{2},
		DevicePubKey:   [32]byte{3},
		CyoaType:       CyoaTypeGREOverDIA,
		ClientIp:       [4]byte{10, 0, 0, 1},
		DzIp:           [4]byte{100, 0, 0, 5},
		TunnelId:       501,
		TunnelNet:      [5]byte{169, 254, 0, 0, 31},
		Status:         UserStatusActivated,
		Publishers:     [][32]byte{{20}},
		Subscribers:    [][32]byte{{21}, {22}},
		TunnelEndpoint: [4]byte{203, 0, 113, 10},
	}

	var got User
	DeserializeUser(NewByteReader(user.Serialize()), &got)
	if diff := cmp.Diff(user, got); diff != "" {
		t.Errorf("user round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUserDecodeWithoutTunnelEndpoint(t *testing.T) {
	t.Parallel()

	user := User{
		AccountType:    UserType,
		UserType:       UserTypeIBRL,
		ClientIp:       [4]byte{10, 0, 0, 9},
		Status:         UserStatusPending,
		TunnelEndpoint: [4]byte{1, 2, 3, 4},
	}
	data := user.Serialize()
	data = data[:len(data)-4]

	var got User
	DeserializeUser(NewByteReader(data), &got)
	require.Equal(t, [4]byte{}, got.TunnelEndpoint)
	require.Equal(t, [4]byte{10, 0, 0, 9}, got.ClientIp)
}

func TestAccessPassRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ap := range []AccessPass{
		{
			AccountType:       AccessPassType,
			BumpSeed:          249,
			AccessPassTypeTag: AccessPassTypePrepaid,
			ClientIp:          [4]byte{10, 0, 0, 1},
			UserPayer:         [32]byte{7},
			LastAccessEpoch:   900,
			ConnectionCount:   1,
			Status:            AccessPassStatusConnected,
			Flags:             AccessPassFlagIsDynamic,
		},
		{
			AccountType:        AccessPassType,
			AccessPassTypeTag:  AccessPassTypeSolanaValidator,
			AssociatedPubkey:   [32]byte{8},
			UserPayer:          [32]byte{9},
			Status:             AccessPassStatusRequested,
			MGroupPubAllowlist: [][32]byte{{30}},
			MGroupSubAllowlist: [][32]byte{{31}},
			TenantAllowlist:    [][32]byte{{32}},
		},
		{
			AccountType:       AccessPassType,
			AccessPassTypeTag: AccessPassTypeOthers,
			OthersTypeName:    "partner",
			OthersKey:         "abc123",
			UserPayer:         [32]byte{10},
		},
	} {
		var got AccessPass
		DeserializeAccessPass(NewByteReader(ap.Serialize()), &got)
		if diff := cmp.Diff(ap, got); diff != "" {
			t.Errorf("access pass round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestAccessPassExpiry(t *testing.T) {
	t.Parallel()

	ap := AccessPass{LastAccessEpoch: 100}
	require.False(t, ap.IsExpired(100))
	require.True(t, ap.IsExpired(101))

	forever := AccessPass{LastAccessEpoch: 0}
	require.False(t, forever.IsExpired(1 << 40))
}

func TestTenantRoundTrip(t *testing.T) {
	t.Parallel()

	tenant := Tenant{
		AccountType:                 TenantType,
		Owner:                       [32]byte{3},
		BumpSeed:                    248,
		Code:                        "acme",
		VrfId:                       17,
		ReferenceCount:              2,
		Administrators:              [][32]byte{{40}, {41}},
		PaymentStatus:               TenantPaymentStatusPaid,
		TokenAccount:                [32]byte{42},
		MetroRouting:                true,
		RouteLiveness:               false,
		BillingDiscriminant:         1,
		BillingRate:                 5000,
		BillingLastDeductionDzEpoch: 88,
	}

	var got Tenant
	DeserializeTenant(NewByteReader(tenant.Serialize()), &got)
	if diff := cmp.Diff(tenant, got); diff != "" {
		t.Errorf("tenant round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceExtensionIdAllocatorLayout(t *testing.T) {
	t.Parallel()

	data := make([]byte, 96)
	data[0] = byte(ResourceExtensionType)
	for i := 1; i <= 32; i++ {
		data[i] = byte(i)
	}
	data[33] = 255
	data[66] = 1  // Id allocator
	data[69] = 64 // range end = 64
	data[88] = 0x07

	var ext ResourceExtension
	require.NoError(t, DeserializeResourceExtension(data, &ext))
	require.Equal(t, ResourceExtensionType, ext.AccountType)
	require.Equal(t, uint8(255), ext.BumpSeed)
	require.NotNil(t, ext.Allocator.IdAllocator)
	require.Equal(t, uint16(0), ext.Allocator.IdAllocator.RangeStart)
	require.Equal(t, uint16(64), ext.Allocator.IdAllocator.RangeEnd)
	require.Equal(t, 64, ext.TotalCapacity())
	require.Equal(t, 3, ext.AllocatedCount())
	require.Equal(t, 61, ext.AvailableCount())

	require.Equal(t, data, ext.Serialize())
}

func TestResourceExtensionIpAllocatorLayout(t *testing.T) {
	t.Parallel()

	data := make([]byte, 96)
	data[0] = byte(ResourceExtensionType)
	data[33] = 254
	data[66] = 0 // Ip allocator
	data[67] = 100
	data[68] = 0
	data[69] = 0
	data[70] = 0
	data[71] = 29 // /29 = 8 addresses
	data[88] = 0x03

	var ext ResourceExtension
	require.NoError(t, DeserializeResourceExtension(data, &ext))
	require.NotNil(t, ext.Allocator.IpAllocator)
	require.Equal(t, "100.0.0.0/29", ext.BaseNetString())
	require.Equal(t, 8, ext.TotalCapacity())
	require.Equal(t, 2, ext.AllocatedCount())

	require.Equal(t, data, ext.Serialize())
}

func TestGlobalStateRoundTrip(t *testing.T) {
	t.Parallel()

	gs := GlobalState{
		AccountType:                GlobalStateType,
		BumpSeed:                   245,
		AccountIndex:               Uint128{Low: 99},
		FoundationAllowlist:        [][32]byte{{1}, {2}},
		QAAllowlist:                [][32]byte{{3}},
		ActivatorAuthorityPK:       [32]byte{4},
		SentinelAuthorityPK:        [32]byte{5},
		HealthOraclePK:             [32]byte{6},
		ContributorManagerPK:       [32]byte{7},
		InternetLatencyCollectorPK: [32]byte{8},
		FeatureFlags:               FeatureFlagAtomicDelete,
	}

	var got GlobalState
	DeserializeGlobalState(NewByteReader(gs.Serialize()), &got)
	if diff := cmp.Diff(gs, got); diff != "" {
		t.Errorf("global state round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCode(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"ber", "lax-dz001", "a_b:c", "x"} {
		require.NoError(t, ValidateCode(code), code)
	}
	for _, code := range []string{"", "UPPER", "space here", "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"} {
		require.Error(t, ValidateCode(code), code)
	}
}

func TestCheckDiscriminator(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckDiscriminator([]byte{byte(DeviceType), 0}, DeviceType))
	require.Error(t, CheckDiscriminator([]byte{byte(LinkType)}, DeviceType))
	require.Error(t, CheckDiscriminator(nil, DeviceType))
}
