package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceTransitions(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckDeviceTransition(DeviceStatusPending, DeviceStatusActivated, DeviceHealthReadyForUsers))
	require.NoError(t, CheckDeviceTransition(DeviceStatusActivated, DeviceStatusSuspended, DeviceHealthUnknown))
	require.NoError(t, CheckDeviceTransition(DeviceStatusSuspended, DeviceStatusActivated, DeviceHealthUnknown))
	require.NoError(t, CheckDeviceTransition(DeviceStatusActivated, DeviceStatusDeleting, DeviceHealthUnknown))

	// impaired devices cannot be activated
	require.Error(t, CheckDeviceTransition(DeviceStatusPending, DeviceStatusActivated, DeviceHealthImpaired))
	// no skipping pending
	require.Error(t, CheckDeviceTransition(DeviceStatusPending, DeviceStatusSuspended, DeviceHealthUnknown))
	// rejected is terminal before close
	require.Error(t, CheckDeviceTransition(DeviceStatusRejected, DeviceStatusActivated, DeviceHealthUnknown))
	// no self transitions
	require.Error(t, CheckDeviceTransition(DeviceStatusActivated, DeviceStatusActivated, DeviceHealthUnknown))
}

func TestLinkTransitions(t *testing.T) {
	t.Parallel()

	// DZX path: requested -> pending (accept) -> activated
	require.NoError(t, CheckLinkTransition(LinkStatusRequested, LinkStatusPending))
	require.NoError(t, CheckLinkTransition(LinkStatusPending, LinkStatusActivated))
	// drain ladder
	require.NoError(t, CheckLinkTransition(LinkStatusActivated, LinkStatusSoftDrained))
	require.NoError(t, CheckLinkTransition(LinkStatusSoftDrained, LinkStatusHardDrained))
	require.NoError(t, CheckLinkTransition(LinkStatusSoftDrained, LinkStatusActivated))
	require.NoError(t, CheckLinkTransition(LinkStatusHardDrained, LinkStatusDeleting))

	// drains only reachable from activated
	require.Error(t, CheckLinkTransition(LinkStatusPending, LinkStatusSoftDrained))
	require.Error(t, CheckLinkTransition(LinkStatusActivated, LinkStatusHardDrained))
	// requested cannot be activated without accept
	require.Error(t, CheckLinkTransition(LinkStatusRequested, LinkStatusActivated))
	require.Error(t, CheckLinkTransition(LinkStatusRejected, LinkStatusActivated))
}

func TestUserTransitions(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckUserTransition(UserStatusPending, UserStatusActivated))
	require.NoError(t, CheckUserTransition(UserStatusActivated, UserStatusUpdating))
	require.NoError(t, CheckUserTransition(UserStatusUpdating, UserStatusActivated))
	require.NoError(t, CheckUserTransition(UserStatusActivated, UserStatusDeleting))
	require.NoError(t, CheckUserTransition(UserStatusUpdating, UserStatusDeleting))
	require.NoError(t, CheckUserTransition(UserStatusPendingBan, UserStatusBanned))

	require.Error(t, CheckUserTransition(UserStatusPending, UserStatusUpdating))
	require.Error(t, CheckUserTransition(UserStatusBanned, UserStatusActivated))
	require.Error(t, CheckUserTransition(UserStatusDeleting, UserStatusActivated))
}

func TestMulticastGroupTransitions(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckMulticastGroupTransition(MulticastGroupStatusPending, MulticastGroupStatusActivated))
	require.NoError(t, CheckMulticastGroupTransition(MulticastGroupStatusActivated, MulticastGroupStatusSuspended))
	require.NoError(t, CheckMulticastGroupTransition(MulticastGroupStatusSuspended, MulticastGroupStatusActivated))

	require.Error(t, CheckMulticastGroupTransition(MulticastGroupStatusPending, MulticastGroupStatusSuspended))
	require.Error(t, CheckMulticastGroupTransition(MulticastGroupStatusRejected, MulticastGroupStatusActivated))
}

func TestLocationTransitions(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckLocationTransition(LocationStatusPending, LocationStatusActivated))
	require.NoError(t, CheckLocationTransition(LocationStatusActivated, LocationStatusSuspended))
	require.NoError(t, CheckLocationTransition(LocationStatusSuspended, LocationStatusActivated))
	require.NoError(t, CheckLocationTransition(LocationStatusSuspended, LocationStatusDeleting))

	require.Error(t, CheckLocationTransition(LocationStatusDeleting, LocationStatusActivated))
}
