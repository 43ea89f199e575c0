package state

import (
	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

// Explicit transition tables. Every status mutation in the processors goes
// through one of these checks; a pair missing from the table is rejected.

var locationTransitions = map[LocationStatus][]LocationStatus{
	LocationStatusPending:   {LocationStatusActivated, LocationStatusDeleting},
	LocationStatusActivated: {LocationStatusSuspended, LocationStatusDeleting},
	LocationStatusSuspended: {LocationStatusActivated, LocationStatusDeleting},
}

func CheckLocationTransition(from, to LocationStatus) error {
	return checkTransition("location", transitionAllowed(locationTransitions[from], to), from.String(), to.String())
}

var exchangeTransitions = map[ExchangeStatus][]ExchangeStatus{
	ExchangeStatusPending:   {ExchangeStatusActivated, ExchangeStatusDeleting},
	ExchangeStatusActivated: {ExchangeStatusSuspended, ExchangeStatusDeleting},
	ExchangeStatusSuspended: {ExchangeStatusActivated, ExchangeStatusDeleting},
}

func CheckExchangeTransition(from, to ExchangeStatus) error {
	return checkTransition("exchange", transitionAllowed(exchangeTransitions[from], to), from.String(), to.String())
}

var contributorTransitions = map[ContributorStatus][]ContributorStatus{
	ContributorStatusNone:      {ContributorStatusActivated},
	ContributorStatusActivated: {ContributorStatusSuspended, ContributorStatusDeleting},
	ContributorStatusSuspended: {ContributorStatusActivated, ContributorStatusDeleting},
}

func CheckContributorTransition(from, to ContributorStatus) error {
	return checkTransition("contributor", transitionAllowed(contributorTransitions[from], to), from.String(), to.String())
}

var deviceTransitions = map[DeviceStatus][]DeviceStatus{
	DeviceStatusPending: {
		DeviceStatusActivated,
		DeviceStatusRejected,
		DeviceStatusDeleting,
	},
	DeviceStatusActivated: {
		DeviceStatusSuspended,
		DeviceStatusDrained,
		DeviceStatusDeleting,
	},
	DeviceStatusSuspended: {
		DeviceStatusActivated,
		DeviceStatusDeleting,
	},
	DeviceStatusDrained: {
		DeviceStatusActivated,
		DeviceStatusDeleting,
	},
}

// CheckDeviceTransition validates a device status change. Activation is
// additionally gated on reported health: an impaired device cannot be
// activated, only drained or deleted.
func CheckDeviceTransition(from, to DeviceStatus, health DeviceHealth) error {
	if to == DeviceStatusActivated && health == DeviceHealthImpaired {
		return dzerror.Newf(dzerror.InvalidStatus, "device is impaired, cannot activate")
	}
	return checkTransition("device", transitionAllowed(deviceTransitions[from], to), from.String(), to.String())
}

var linkTransitions = map[LinkStatus][]LinkStatus{
	LinkStatusRequested: {
		LinkStatusPending, // accept: side Z binds its interface
		LinkStatusRejected,
		LinkStatusDeleting,
	},
	LinkStatusPending: {
		LinkStatusActivated,
		LinkStatusRejected,
		LinkStatusDeleting,
	},
	LinkStatusActivated: {
		LinkStatusSoftDrained,
		LinkStatusDeleting,
	},
	LinkStatusSoftDrained: {
		LinkStatusActivated,
		LinkStatusHardDrained,
		LinkStatusDeleting,
	},
	LinkStatusHardDrained: {
		LinkStatusSoftDrained,
		LinkStatusDeleting,
	},
}

func CheckLinkTransition(from, to LinkStatus) error {
	return checkTransition("link", transitionAllowed(linkTransitions[from], to), from.String(), to.String())
}

var userTransitions = map[UserStatus][]UserStatus{
	UserStatusPending: {
		UserStatusActivated,
		UserStatusRejected,
		UserStatusDeleting,
	},
	UserStatusActivated: {
		UserStatusUpdating,
		UserStatusPendingBan,
		UserStatusOutOfCredits,
		UserStatusDeleting,
	},
	UserStatusUpdating: {
		UserStatusActivated,
		UserStatusDeleting,
	},
	UserStatusPendingBan: {
		UserStatusBanned,
		UserStatusDeleting,
	},
	UserStatusBanned: {
		UserStatusDeleting,
	},
	UserStatusOutOfCredits: {
		UserStatusActivated,
		UserStatusDeleting,
	},
	UserStatusRejected: {
		UserStatusDeleting,
	},
}

func CheckUserTransition(from, to UserStatus) error {
	return checkTransition("user", transitionAllowed(userTransitions[from], to), from.String(), to.String())
}

var multicastGroupTransitions = map[MulticastGroupStatus][]MulticastGroupStatus{
	MulticastGroupStatusPending: {
		MulticastGroupStatusActivated,
		MulticastGroupStatusRejected,
		MulticastGroupStatusDeleting,
	},
	MulticastGroupStatusActivated: {
		MulticastGroupStatusSuspended,
		MulticastGroupStatusDeleting,
	},
	MulticastGroupStatusSuspended: {
		MulticastGroupStatusActivated,
		MulticastGroupStatusDeleting,
	},
}

func CheckMulticastGroupTransition(from, to MulticastGroupStatus) error {
	return checkTransition("multicast group", transitionAllowed(multicastGroupTransitions[from], to), from.String(), to.String())
}

func transitionAllowed[S comparable](allowed []S, to S) bool {
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(entity string, ok bool, from, to string) error {
	if !ok {
		return dzerror.Newf(dzerror.InvalidStatus, "%s cannot transition from %s to %s", entity, from, to)
	}
	return nil
}
