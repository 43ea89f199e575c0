package state

import (
	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

// AccountType is the single-byte discriminator stored at offset 0 of every
// account. Values are append-only and never reused.
type AccountType uint8

const (
	GlobalStateType          AccountType = 1
	GlobalConfigType         AccountType = 2
	LocationType             AccountType = 3
	ExchangeType             AccountType = 4
	DeviceType               AccountType = 5
	LinkType                 AccountType = 6
	UserType                 AccountType = 7
	MulticastGroupType       AccountType = 8
	ProgramConfigType        AccountType = 9
	ContributorType          AccountType = 10
	AccessPassType           AccountType = 11
	ResourceExtensionType    AccountType = 12
	TenantType               AccountType = 13
	MGroupAllowlistEntryType AccountType = 14
)

func (t AccountType) String() string {
	switch t {
	case GlobalStateType:
		return "globalstate"
	case GlobalConfigType:
		return "globalconfig"
	case LocationType:
		return "location"
	case ExchangeType:
		return "exchange"
	case DeviceType:
		return "device"
	case LinkType:
		return "link"
	case UserType:
		return "user"
	case MulticastGroupType:
		return "multicastgroup"
	case ProgramConfigType:
		return "programconfig"
	case ContributorType:
		return "contributor"
	case AccessPassType:
		return "accesspass"
	case ResourceExtensionType:
		return "resourceextension"
	case TenantType:
		return "tenant"
	case MGroupAllowlistEntryType:
		return "mgroupallowlistentry"
	}
	return "unknown"
}

// CheckDiscriminator verifies that account data carries the expected
// discriminator byte.
func CheckDiscriminator(data []byte, want AccountType) error {
	if len(data) == 0 {
		return dzerror.New(dzerror.InvalidAccountData)
	}
	if AccountType(data[0]) != want {
		return dzerror.Newf(dzerror.InvalidAccountType, "got %s, want %s", AccountType(data[0]), want)
	}
	return nil
}
