package processor

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

const testFunding = 100_000_000_000_000

type testEnv struct {
	t          *testing.T
	p          *Processor
	ledger     *Ledger
	programID  solana.PublicKey
	foundation solana.PublicKey
	activator  solana.PublicKey
	sentinel   solana.PublicKey
	oracle     solana.PublicKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		t:          t,
		ledger:     NewLedger(),
		programID:  solana.NewWallet().PublicKey(),
		foundation: solana.NewWallet().PublicKey(),
		activator:  solana.NewWallet().PublicKey(),
		sentinel:   solana.NewWallet().PublicKey(),
		oracle:     solana.NewWallet().PublicKey(),
	}
	e.p = New(e.ledger, e.programID, nil)
	for _, pk := range []solana.PublicKey{e.foundation, e.activator, e.sentinel, e.oracle} {
		e.ledger.Airdrop(pk, testFunding)
	}
	e.ledger.SetClock(Clock{Slot: 1, Epoch: 1})
	require.NoError(t, e.p.InitGlobalState(e.foundation))
	require.NoError(t, e.p.SetAuthority(e.foundation, instruction.SetAuthorityArgs{
		ActivatorAuthorityPK: pk32(e.activator),
		SentinelAuthorityPK:  pk32(e.sentinel),
		HealthOraclePK:       pk32(e.oracle),
		ContributorManagerPK: pk32(e.foundation),
	}))
	return e
}

func (e *testEnv) setGlobalConfig() {
	e.t.Helper()
	require.NoError(e.t, e.p.SetGlobalConfig(e.foundation, instruction.SetGlobalConfigArgs{
		LocalASN:                65000,
		RemoteASN:               65001,
		DeviceTunnelBlock:       [5]byte{10, 0, 0, 0, 24},
		UserTunnelBlock:         [5]byte{10, 0, 0, 0, 24},
		MulticastGroupBlock:     [5]byte{224, 0, 0, 0, 4},
		MulticastPublisherBlock: [5]byte{233, 0, 0, 0, 8},
	}))
}

// newSite creates an activated location and exchange pair.
func (e *testEnv) newSite(code string) (locPK, exPK solana.PublicKey) {
	e.t.Helper()
	locPK, err := e.p.CreateLocation(e.foundation, instruction.CreateLocationArgs{
		Code: code, Name: code, Country: "us", Lat: 34.05, Lng: -118.25,
	})
	require.NoError(e.t, err)
	exPK, err = e.p.CreateExchange(e.foundation, instruction.CreateExchangeArgs{
		Code: "x" + code, Name: "x" + code, Lat: 34.05, Lng: -118.25,
	})
	require.NoError(e.t, err)
	return locPK, exPK
}

// newContributor creates a contributor whose ops manager wallet is funded
// so it can pay for the accounts it creates.
func (e *testEnv) newContributor(code string) (conPK, ops solana.PublicKey) {
	e.t.Helper()
	ops = solana.NewWallet().PublicKey()
	e.ledger.Airdrop(ops, testFunding)
	conPK, err := e.p.CreateContributor(e.foundation, instruction.CreateContributorArgs{
		Code: code, OpsManagerPK: pk32(ops),
	})
	require.NoError(e.t, err)
	return conPK, ops
}

// newActivatedDevice creates a device with one tunnel-capable interface and
// drives it to Activated.
func (e *testEnv) newActivatedDevice(code string, conPK, locPK, exPK, ops solana.PublicKey, publicIP [4]byte) solana.PublicKey {
	e.t.Helper()
	devPK, err := e.p.CreateDevice(ops, conPK, locPK, exPK, instruction.CreateDeviceArgs{
		Code:       code,
		DeviceType: uint8(state.DeviceDeviceTypeHybrid),
		PublicIp:   publicIP,
		DzPrefixes: [][5]byte{{10, 1, 0, 0, 23}},
		MaxUsers:   128,
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.p.CreateDeviceInterface(ops, devPK, instruction.CreateDeviceInterfaceArgs{
		Name:          "ethernet0",
		InterfaceType: uint8(state.InterfaceTypePhysical),
		Bandwidth:     10_000_000_000,
		Mtu:           9000,
	}))
	require.NoError(e.t, e.p.ActivateDevice(e.activator, devPK))
	return devPK
}

// newActivatedGroup creates a multicast group and activates it at addr.
func (e *testEnv) newActivatedGroup(code string, addr [4]byte) solana.PublicKey {
	e.t.Helper()
	mgPK, err := e.p.CreateMulticastGroup(e.foundation, solana.PublicKey{}, instruction.CreateMulticastGroupArgs{
		Code: code, MaxBandwidth: 1_000_000_000,
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.p.ActivateMulticastGroup(e.activator, mgPK, instruction.ActivateMulticastGroupArgs{
		MulticastIp: addr,
	}))
	return mgPK
}

func TestLocationLifecycle(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	locPK, err := e.p.CreateLocation(e.foundation, instruction.CreateLocationArgs{
		Code:    "la",
		Name:    "Los Angeles",
		Country: "us",
		Lat:     1.234,
		Lng:     4.567,
	})
	require.NoError(t, err)

	loc, err := e.p.location(locPK)
	require.NoError(t, err)
	require.Equal(t, "la", loc.Code)
	require.Equal(t, "Los Angeles", loc.Name)
	require.Equal(t, state.LocationStatusActivated, loc.Status)

	require.NoError(t, e.p.SuspendLocation(e.foundation, locPK))
	loc, err = e.p.location(locPK)
	require.NoError(t, err)
	require.Equal(t, state.LocationStatusSuspended, loc.Status)

	require.NoError(t, e.p.ResumeLocation(e.foundation, locPK))
	loc, err = e.p.location(locPK)
	require.NoError(t, err)
	require.Equal(t, state.LocationStatusActivated, loc.Status)

	require.NoError(t, e.p.DeleteLocation(e.foundation, locPK))
	_, ok := e.ledger.Account(locPK)
	require.False(t, ok, "deleted location account should be closed")
}

func TestCreateLocationRejectsDuplicateCode(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	_, err := e.p.CreateLocation(e.foundation, instruction.CreateLocationArgs{
		Code: "la", Name: "Los Angeles", Country: "us",
	})
	require.NoError(t, err)
	_, err = e.p.CreateLocation(e.foundation, instruction.CreateLocationArgs{
		Code: "la", Name: "Los Angeles 2", Country: "us",
	})
	require.Equal(t, dzerror.CodeAlreadyExists, dzerror.CodeOf(err))
}

func TestDeviceLifecycle(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")

	devPK, err := e.p.CreateDevice(ops, conPK, locPK, exPK, instruction.CreateDeviceArgs{
		Code:       "la",
		DeviceType: uint8(state.DeviceDeviceTypeHybrid),
		PublicIp:   [4]byte{10, 0, 0, 1},
		DzPrefixes: [][5]byte{{10, 1, 0, 0, 23}},
		MaxUsers:   128,
	})
	require.NoError(t, err)

	con, err := e.p.contributor(conPK)
	require.NoError(t, err)
	require.Equal(t, uint32(1), con.ReferenceCount)

	dev, err := e.p.device(devPK)
	require.NoError(t, err)
	require.Equal(t, state.DeviceStatusPending, dev.Status)
	require.Equal(t, state.DeviceHealthUnknown, dev.DeviceHealth)

	require.NoError(t, e.p.ActivateDevice(e.activator, devPK))
	dev, err = e.p.device(devPK)
	require.NoError(t, err)
	require.Equal(t, state.DeviceStatusActivated, dev.Status)

	require.NoError(t, e.p.SuspendDevice(e.foundation, devPK))
	dev, err = e.p.device(devPK)
	require.NoError(t, err)
	require.Equal(t, state.DeviceStatusSuspended, dev.Status)

	require.NoError(t, e.p.ResumeDevice(e.foundation, devPK))

	require.NoError(t, e.p.DeleteDevice(ops, devPK))
	dev, err = e.p.device(devPK)
	require.NoError(t, err)
	require.Equal(t, state.DeviceStatusDeleting, dev.Status)

	require.NoError(t, e.p.CloseAccountDevice(e.activator, devPK))
	_, ok := e.ledger.Account(devPK)
	require.False(t, ok, "closed device account should be gone")

	con, err = e.p.contributor(conPK)
	require.NoError(t, err)
	require.Equal(t, uint32(0), con.ReferenceCount)
}

func TestActivateDeviceRequiresActivatorAuthority(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK, err := e.p.CreateDevice(ops, conPK, locPK, exPK, instruction.CreateDeviceArgs{
		Code:       "dev01",
		PublicIp:   [4]byte{10, 0, 0, 1},
		DzPrefixes: [][5]byte{{10, 1, 0, 0, 23}},
		MaxUsers:   16,
	})
	require.NoError(t, err)

	err = e.p.ActivateDevice(ops, devPK)
	require.Equal(t, dzerror.Unauthorized, dzerror.CodeOf(err))
}

func TestActivateDeviceBringsUpLoopbacks(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK, err := e.p.CreateDevice(ops, conPK, locPK, exPK, instruction.CreateDeviceArgs{
		Code:       "dev01",
		PublicIp:   [4]byte{10, 0, 0, 1},
		DzPrefixes: [][5]byte{{10, 1, 0, 0, 23}},
		MaxUsers:   16,
	})
	require.NoError(t, err)

	require.NoError(t, e.p.CreateDeviceInterface(ops, devPK, instruction.CreateDeviceInterfaceArgs{
		Name:          "Loopback255",
		InterfaceType: uint8(state.InterfaceTypeLoopback),
		LoopbackType:  uint8(state.LoopbackTypeVpnv4),
		IpNet:         [5]byte{10, 1, 0, 1, 32},
	}))
	require.NoError(t, e.p.CreateDeviceInterface(ops, devPK, instruction.CreateDeviceInterfaceArgs{
		Name:          "Switch1/1/1",
		InterfaceType: uint8(state.InterfaceTypePhysical),
		Bandwidth:     100_000_000_000,
		Mtu:           9000,
	}))

	require.NoError(t, e.p.ActivateDevice(e.activator, devPK))

	dev, err := e.p.device(devPK)
	require.NoError(t, err)
	lo, ok := dev.FindInterface("Loopback255")
	require.True(t, ok)
	require.Equal(t, state.InterfaceStatusActivated, lo.Status)
	phys, ok := dev.FindInterface("Switch1/1/1")
	require.True(t, ok)
	require.Equal(t, state.InterfaceStatusPending, phys.Status, "physical interfaces wait for a link")
}

func TestImpairedDeviceCannotActivate(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK, err := e.p.CreateDevice(ops, conPK, locPK, exPK, instruction.CreateDeviceArgs{
		Code:       "dev01",
		PublicIp:   [4]byte{10, 0, 0, 1},
		DzPrefixes: [][5]byte{{10, 1, 0, 0, 23}},
		MaxUsers:   16,
	})
	require.NoError(t, err)

	require.NoError(t, e.p.SetDeviceHealth(e.oracle, devPK, instruction.SetDeviceHealthArgs{
		Health: uint8(state.DeviceHealthImpaired),
	}))
	err = e.p.ActivateDevice(e.activator, devPK)
	require.Equal(t, dzerror.InvalidStatus, dzerror.CodeOf(err))
}

func TestAcceptLinkUnknownInterface(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conA, opsA := e.newContributor("co01")
	conZ, opsZ := e.newContributor("co02")
	devA := e.newActivatedDevice("dev-a", conA, locPK, exPK, opsA, [4]byte{10, 0, 0, 1})
	devZ := e.newActivatedDevice("dev-z", conZ, locPK, exPK, opsZ, [4]byte{10, 0, 0, 2})

	linkPK, err := e.p.CreateLink(opsA, conA, devA, devZ, instruction.CreateLinkArgs{
		Code:           "dzx01",
		LinkType:       uint8(state.LinkLinkTypeDZX),
		Bandwidth:      10_000_000_000,
		Mtu:            9000,
		SideAIfaceName: "ethernet0",
	})
	require.NoError(t, err)

	link, err := e.p.link(linkPK)
	require.NoError(t, err)
	require.Equal(t, state.LinkStatusRequested, link.Status)
	require.Empty(t, link.SideZIfaceName)

	err = e.p.AcceptLink(opsZ, linkPK, instruction.AcceptLinkArgs{SideZIfaceName: "eth99"})
	require.Equal(t, dzerror.InvalidInterfaceName, dzerror.CodeOf(err))

	link, err = e.p.link(linkPK)
	require.NoError(t, err)
	require.Equal(t, state.LinkStatusRequested, link.Status, "failed accept must not move the link")
	require.Empty(t, link.SideZIfaceName)

	require.NoError(t, e.p.AcceptLink(opsZ, linkPK, instruction.AcceptLinkArgs{SideZIfaceName: "ethernet0"}))
	link, err = e.p.link(linkPK)
	require.NoError(t, err)
	require.Equal(t, state.LinkStatusPending, link.Status)
	require.Equal(t, "ethernet0", link.SideZIfaceName)
}

func TestCreateSubscribeUser(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK := e.newActivatedDevice("dev01", conPK, locPK, exPK, ops, [4]byte{10, 0, 0, 1})
	mgPK := e.newActivatedGroup("mg01", [4]byte{233, 1, 1, 1})

	userPayer := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(userPayer, testFunding)
	clientIP := [4]byte{100, 0, 0, 9}
	apPK, err := e.p.SetAccessPass(e.sentinel, userPayer, instruction.SetAccessPassArgs{
		AccessPassType: uint8(state.AccessPassTypePrepaid),
		ClientIp:       clientIP,
	})
	require.NoError(t, err)
	// A publisher-only grant: subscribing must not require a subscriber
	// entry, only the publisher role is allowlist-gated.
	require.NoError(t, e.p.AddMGroupAllowlist(e.sentinel, apPK, mgPK, state.MGroupRolePublisher))

	userPK, err := e.p.CreateSubscribeUser(userPayer, devPK, solana.PublicKey{}, mgPK, instruction.CreateSubscribeUserArgs{
		UserType:   uint8(state.UserTypeMulticast),
		CyoaType:   uint8(state.CyoaTypeGREOverDIA),
		ClientIp:   clientIP,
		Subscriber: true,
	})
	require.NoError(t, err)

	user, err := e.p.user(userPK)
	require.NoError(t, err)
	require.Equal(t, state.UserStatusPending, user.Status)
	require.Equal(t, [][32]byte{pk32(mgPK)}, user.Subscribers)
	require.Empty(t, user.Publishers)

	mg, err := e.p.multicastGroup(mgPK)
	require.NoError(t, err)
	require.Equal(t, uint32(1), mg.SubscriberCount)
	require.Equal(t, uint32(0), mg.PublisherCount)

	ap, err := e.p.accessPass(apPK)
	require.NoError(t, err)
	require.Equal(t, uint16(1), ap.ConnectionCount)
	require.Equal(t, state.AccessPassStatusConnected, ap.Status)

	dev, err := e.p.device(devPK)
	require.NoError(t, err)
	require.Equal(t, uint16(1), dev.UsersCount)
	require.Equal(t, uint16(1), dev.MulticastUsersCount)

	require.NoError(t, e.p.ActivateUser(e.activator, userPK, instruction.ActivateUserArgs{
		TunnelId:  500,
		TunnelNet: [5]byte{10, 0, 0, 0, 31},
	}))
	user, err = e.p.user(userPK)
	require.NoError(t, err)
	require.Equal(t, state.UserStatusActivated, user.Status)
	require.Equal(t, uint16(500), user.TunnelId)
	require.Equal(t, [4]uint8{}, user.DzIp, "subscriber-only users carry no dz IP")
}

func TestSubscribeMigratesInlineAllowlistEntry(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK := e.newActivatedDevice("dev01", conPK, locPK, exPK, ops, [4]byte{10, 0, 0, 1})
	mgPK := e.newActivatedGroup("mg01", [4]byte{233, 1, 1, 1})

	userPayer := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(userPayer, testFunding)
	clientIP := [4]byte{100, 0, 0, 9}
	apPK, err := e.p.SetAccessPass(e.sentinel, userPayer, instruction.SetAccessPassArgs{
		AccessPassType: uint8(state.AccessPassTypePrepaid),
		ClientIp:       clientIP,
	})
	require.NoError(t, err)

	// Write the publisher grant in the legacy inline form, the way passes
	// created before the entry PDAs look on chain.
	ap, err := e.p.accessPass(apPK)
	require.NoError(t, err)
	ap.MGroupPubAllowlist = append(ap.MGroupPubAllowlist, pk32(mgPK))
	require.NoError(t, e.ledger.WriteAccount(apPK, e.foundation, ap.Serialize()))

	_, err = e.p.CreateSubscribeUser(userPayer, devPK, solana.PublicKey{}, mgPK, instruction.CreateSubscribeUserArgs{
		UserType:  uint8(state.UserTypeMulticast),
		CyoaType:  uint8(state.CyoaTypeGREOverDIA),
		ClientIp:  clientIP,
		Publisher: true,
	})
	require.NoError(t, err)

	ap, err = e.p.accessPass(apPK)
	require.NoError(t, err)
	require.Empty(t, ap.MGroupPubAllowlist, "inline grant should migrate to its entry PDA")

	entryPK, _, err := pda.DeriveMGroupAllowlistEntryPDA(e.programID, apPK, mgPK, uint8(state.MGroupRolePublisher))
	require.NoError(t, err)
	_, ok := e.ledger.Account(entryPK)
	require.True(t, ok, "entry PDA should exist after migration")

	mg, err := e.p.multicastGroup(mgPK)
	require.NoError(t, err)
	require.Equal(t, uint32(1), mg.PublisherCount)
}

func TestPublishWithoutGrantIsRejected(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK := e.newActivatedDevice("dev01", conPK, locPK, exPK, ops, [4]byte{10, 0, 0, 1})
	mgPK := e.newActivatedGroup("mg01", [4]byte{233, 1, 1, 1})

	userPayer := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(userPayer, testFunding)
	clientIP := [4]byte{100, 0, 0, 9}
	_, err := e.p.SetAccessPass(e.sentinel, userPayer, instruction.SetAccessPassArgs{
		AccessPassType: uint8(state.AccessPassTypePrepaid),
		ClientIp:       clientIP,
	})
	require.NoError(t, err)

	_, err = e.p.CreateSubscribeUser(userPayer, devPK, solana.PublicKey{}, mgPK, instruction.CreateSubscribeUserArgs{
		UserType:  uint8(state.UserTypeMulticast),
		CyoaType:  uint8(state.CyoaTypeGREOverDIA),
		ClientIp:  clientIP,
		Publisher: true,
	})
	require.Equal(t, dzerror.MulticastNotAllowed, dzerror.CodeOf(err))

	mg, err := e.p.multicastGroup(mgPK)
	require.NoError(t, err)
	require.Equal(t, uint32(0), mg.PublisherCount, "failed publish must not leak a count")
}

func TestSubscribeNeedsNoAllowlistGrant(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK := e.newActivatedDevice("dev01", conPK, locPK, exPK, ops, [4]byte{10, 0, 0, 1})
	mgPK := e.newActivatedGroup("mg01", [4]byte{233, 1, 1, 1})

	userPayer := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(userPayer, testFunding)
	clientIP := [4]byte{100, 0, 0, 9}
	_, err := e.p.SetAccessPass(e.sentinel, userPayer, instruction.SetAccessPassArgs{
		AccessPassType: uint8(state.AccessPassTypePrepaid),
		ClientIp:       clientIP,
	})
	require.NoError(t, err)

	userPK, err := e.p.CreateSubscribeUser(userPayer, devPK, solana.PublicKey{}, mgPK, instruction.CreateSubscribeUserArgs{
		UserType:   uint8(state.UserTypeMulticast),
		CyoaType:   uint8(state.CyoaTypeGREOverDIA),
		ClientIp:   clientIP,
		Subscriber: true,
	})
	require.NoError(t, err)

	user, err := e.p.user(userPK)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{pk32(mgPK)}, user.Subscribers)

	mg, err := e.p.multicastGroup(mgPK)
	require.NoError(t, err)
	require.Equal(t, uint32(1), mg.SubscriberCount)
}

func TestDynamicAccessPassBindsAndResets(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	devPK := e.newActivatedDevice("dev01", conPK, locPK, exPK, ops, [4]byte{10, 0, 0, 1})

	userPayer := solana.NewWallet().PublicKey()
	e.ledger.Airdrop(userPayer, testFunding)
	apPK, err := e.p.SetAccessPass(e.sentinel, userPayer, instruction.SetAccessPassArgs{
		AccessPassType:  uint8(state.AccessPassTypePrepaid),
		ClientIp:        [4]byte{}, // dynamic
		AllowMultipleIP: true,
	})
	require.NoError(t, err)

	clientIP := [4]byte{100, 0, 0, 9}
	userPK, err := e.p.CreateUser(userPayer, devPK, solana.PublicKey{}, instruction.CreateUserArgs{
		UserType: uint8(state.UserTypeIBRL),
		CyoaType: uint8(state.CyoaTypeGREOverDIA),
		ClientIp: clientIP,
	})
	require.NoError(t, err)

	ap, err := e.p.accessPass(apPK)
	require.NoError(t, err)
	require.Equal(t, clientIP, [4]byte(ap.ClientIp), "dynamic pass binds to its first client ip")

	require.NoError(t, e.p.DeleteUser(userPayer, userPK))
	require.NoError(t, e.p.CloseAccountUser(e.activator, userPK))

	ap, err = e.p.accessPass(apPK)
	require.NoError(t, err)
	require.Equal(t, uint16(0), ap.ConnectionCount)
	require.Equal(t, state.AccessPassStatusDisconnected, ap.Status)
	require.Equal(t, [4]byte{}, [4]byte(ap.ClientIp), "last disconnect frees the binding")
}

func TestCreateUserRejectsMulticastType(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	_, err := e.p.CreateUser(e.foundation, solana.PublicKey{}, solana.PublicKey{}, instruction.CreateUserArgs{
		UserType: uint8(state.UserTypeMulticast),
	})
	require.Equal(t, dzerror.InvalidAccountData, dzerror.CodeOf(err))
}

func TestFailedCreateDeviceRollsBackCounters(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.setGlobalConfig()

	locPK, exPK := e.newSite("la")
	conPK, ops := e.newContributor("co01")
	require.NoError(t, e.p.SuspendExchange(e.foundation, exPK))

	_, err := e.p.CreateDevice(ops, conPK, locPK, exPK, instruction.CreateDeviceArgs{
		Code:       "dev01",
		PublicIp:   [4]byte{10, 0, 0, 1},
		DzPrefixes: [][5]byte{{10, 1, 0, 0, 23}},
		MaxUsers:   16,
	})
	require.Equal(t, dzerror.InvalidStatus, dzerror.CodeOf(err))

	con, err := e.p.contributor(conPK)
	require.NoError(t, err)
	require.Equal(t, uint32(0), con.ReferenceCount)
	loc, err := e.p.location(locPK)
	require.NoError(t, err)
	require.Equal(t, uint32(0), loc.ReferenceCount)
}

func TestSetFeatureFlagsAuthorities(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	upgrade := solana.NewWallet().PublicKey()
	e.ledger.SetUpgradeAuthority(upgrade)

	outsider := solana.NewWallet().PublicKey()
	err := e.p.SetFeatureFlags(outsider, instruction.SetFeatureFlagsArgs{
		Flags: state.FeatureFlagAtomicDelete,
	})
	require.Equal(t, dzerror.NotAllowed, dzerror.CodeOf(err))

	// The deploy key may flip flags without a foundation allowlist entry.
	require.NoError(t, e.p.SetFeatureFlags(upgrade, instruction.SetFeatureFlagsArgs{
		Flags: state.FeatureFlagAtomicDelete,
	}))
	gs, _, err := e.p.globalState()
	require.NoError(t, err)
	require.Equal(t, state.FeatureFlagAtomicDelete, gs.FeatureFlags)

	require.NoError(t, e.p.SetFeatureFlags(e.foundation, instruction.SetFeatureFlagsArgs{
		Flags: state.FeatureFlagAtomicDelete | state.FeatureFlagDisjointPublisher,
	}))

	err = e.p.SetFeatureFlags(e.foundation, instruction.SetFeatureFlagsArgs{Flags: 1 << 31})
	require.Equal(t, dzerror.UnknownFeatureFlag, dzerror.CodeOf(err))
}

func TestExecuteDispatch(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	data := instruction.CreateLocationArgs{
		Code: "la", Name: "Los Angeles", Country: "us", Lat: 1.234, Lng: 4.567,
	}.Encode()
	require.NoError(t, e.p.Execute(e.foundation, nil, data))

	gs, _, err := e.p.globalState()
	require.NoError(t, err)
	require.Equal(t, uint64(1), gs.AccountIndex.Low, "location create consumed one index")

	err = e.p.Execute(e.foundation, nil, []byte{0xEE})
	require.Equal(t, dzerror.InvalidAccountData, dzerror.CodeOf(err))
}
