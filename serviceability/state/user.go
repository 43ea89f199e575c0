package state

import (
	"encoding/json"
	"net"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type UserUserType uint8

const (
	UserTypeIBRL            UserUserType = 0
	UserTypeIBRLWithAllocIP UserUserType = 1
	UserTypeEdgeFiltering   UserUserType = 2
	UserTypeMulticast       UserUserType = 3
)

func (u UserUserType) String() string {
	switch u {
	case UserTypeIBRL:
		return "ibrl"
	case UserTypeIBRLWithAllocIP:
		return "ibrl_with_allocated_ip"
	case UserTypeEdgeFiltering:
		return "edge_filtering"
	case UserTypeMulticast:
		return "multicast"
	default:
		return "unknown"
	}
}

func (u UserUserType) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

type CyoaType uint8

const (
	CyoaTypeNone               CyoaType = 0
	CyoaTypeGREOverDIA         CyoaType = 1
	CyoaTypeGREOverFabric      CyoaType = 2
	CyoaTypeGREOverPrivatePeer CyoaType = 3
	CyoaTypeGREOverPublicPeer  CyoaType = 4
	CyoaTypeGREOverCable       CyoaType = 5
)

func (c CyoaType) String() string {
	switch c {
	case CyoaTypeNone:
		return "none"
	case CyoaTypeGREOverDIA:
		return "gre_over_dia"
	case CyoaTypeGREOverFabric:
		return "gre_over_fabric"
	case CyoaTypeGREOverPrivatePeer:
		return "gre_over_private_peering"
	case CyoaTypeGREOverPublicPeer:
		return "gre_over_public_peering"
	case CyoaTypeGREOverCable:
		return "gre_over_cable"
	default:
		return "unknown"
	}
}

func (c CyoaType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

type UserStatus uint8

const (
	UserStatusPending      UserStatus = 0
	UserStatusActivated    UserStatus = 1
	UserStatusDeleting     UserStatus = 3
	UserStatusRejected     UserStatus = 4
	UserStatusPendingBan   UserStatus = 5
	UserStatusBanned       UserStatus = 6
	UserStatusUpdating     UserStatus = 7
	UserStatusOutOfCredits UserStatus = 8
)

func (u UserStatus) String() string {
	switch u {
	case UserStatusPending:
		return "pending"
	case UserStatusActivated:
		return "activated"
	case UserStatusDeleting:
		return "deleting"
	case UserStatusRejected:
		return "rejected"
	case UserStatusPendingBan:
		return "pending_ban"
	case UserStatusBanned:
		return "banned"
	case UserStatusUpdating:
		return "updating"
	case UserStatusOutOfCredits:
		return "out_of_credits"
	default:
		return "unknown"
	}
}

func (u UserStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// User is a tunnel connection from a client to a device. Publishers and
// Subscribers carry multicast group membership for multicast users; they stay
// empty for unicast user types.
type User struct {
	AccountType     AccountType
	Owner           [32]byte
	Index           Uint128
	BumpSeed        uint8
	UserType        UserUserType
	TenantPubKey    [32]byte
	DevicePubKey    [32]byte
	CyoaType        CyoaType
	ClientIp        [4]uint8
	DzIp            [4]uint8
	TunnelId        uint16
	TunnelNet       [5]uint8
	Status          UserStatus
	Publishers      [][32]byte
	Subscribers     [][32]byte
	ValidatorPubKey [32]byte
	TunnelEndpoint  [4]uint8
	PubKey          [32]byte
}

func DeserializeUser(reader *ByteReader, user *User) {
	user.AccountType = AccountType(reader.ReadU8())
	user.Owner = reader.ReadPubkey()
	user.Index = reader.ReadU128()
	user.BumpSeed = reader.ReadU8()
	user.UserType = UserUserType(reader.ReadU8())
	user.TenantPubKey = reader.ReadPubkey()
	user.DevicePubKey = reader.ReadPubkey()
	user.CyoaType = CyoaType(reader.ReadU8())
	user.ClientIp = reader.ReadIPv4()
	user.DzIp = reader.ReadIPv4()
	user.TunnelId = reader.ReadU16()
	user.TunnelNet = reader.ReadNetworkV4()
	user.Status = UserStatus(reader.ReadU8())
	user.Publishers = reader.ReadPubkeySlice()
	user.Subscribers = reader.ReadPubkeySlice()
	user.ValidatorPubKey = reader.ReadPubkey()
	user.TunnelEndpoint = reader.ReadIPv4()
}

func (user *User) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(user.AccountType))
	w.WritePubkey(user.Owner)
	w.WriteU128(user.Index)
	w.WriteU8(user.BumpSeed)
	w.WriteU8(uint8(user.UserType))
	w.WritePubkey(user.TenantPubKey)
	w.WritePubkey(user.DevicePubKey)
	w.WriteU8(uint8(user.CyoaType))
	w.WriteIPv4(user.ClientIp)
	w.WriteIPv4(user.DzIp)
	w.WriteU16(user.TunnelId)
	w.WriteNetworkV4(user.TunnelNet)
	w.WriteU8(uint8(user.Status))
	w.WritePubkeySlice(user.Publishers)
	w.WritePubkeySlice(user.Subscribers)
	w.WritePubkey(user.ValidatorPubKey)
	w.WriteIPv4(user.TunnelEndpoint)
	return w.Bytes()
}

func (user *User) Validate() error {
	if user.AccountType != UserType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if user.UserType > UserTypeMulticast {
		return dzerror.Newf(dzerror.InvalidAccountData, "user type %d out of range", user.UserType)
	}
	if user.Status > UserStatusOutOfCredits || user.Status == 2 {
		return dzerror.Newf(dzerror.InvalidAccountData, "user status %d out of range", user.Status)
	}
	if user.UserType != UserTypeMulticast && (len(user.Publishers) > 0 || len(user.Subscribers) > 0) {
		return dzerror.Newf(dzerror.InvalidAccountData, "unicast user carries multicast memberships")
	}
	if hasDuplicatePubkeys(user.Publishers) || hasDuplicatePubkeys(user.Subscribers) {
		return dzerror.Newf(dzerror.InvalidAccountData, "duplicate multicast membership")
	}
	return nil
}

// IsPublisher reports whether the user publishes to the given group.
func (user *User) IsPublisher(group [32]byte) bool {
	return containsPubkey(user.Publishers, group)
}

// IsSubscriber reports whether the user subscribes to the given group.
func (user *User) IsSubscriber(group [32]byte) bool {
	return containsPubkey(user.Subscribers, group)
}

func (user User) MarshalJSON() ([]byte, error) {
	type UserAlias User
	jsonUser := &struct {
		UserAlias
		Owner           string   `json:"Owner"`
		TenantPubKey    string   `json:"TenantPubKey"`
		DevicePubKey    string   `json:"DevicePubKey"`
		ClientIp        string   `json:"ClientIp"`
		DzIp            string   `json:"DzIp"`
		TunnelNet       string   `json:"TunnelNet"`
		Publishers      []string `json:"Publishers"`
		Subscribers     []string `json:"Subscribers"`
		ValidatorPubKey string   `json:"ValidatorPubKey"`
		TunnelEndpoint  string   `json:"TunnelEndpoint"`
		PubKey          string   `json:"PubKey"`
	}{
		UserAlias: UserAlias(user),
	}
	jsonUser.Owner = base58.Encode(user.Owner[:])
	jsonUser.TenantPubKey = base58.Encode(user.TenantPubKey[:])
	jsonUser.DevicePubKey = base58.Encode(user.DevicePubKey[:])
	jsonUser.ClientIp = net.IP(user.ClientIp[:]).String()
	jsonUser.DzIp = net.IP(user.DzIp[:]).String()
	jsonUser.TunnelNet = NetworkV4String(user.TunnelNet)
	jsonUser.Publishers = make([]string, len(user.Publishers))
	for i, p := range user.Publishers {
		jsonUser.Publishers[i] = base58.Encode(p[:])
	}
	jsonUser.Subscribers = make([]string, len(user.Subscribers))
	for i, s := range user.Subscribers {
		jsonUser.Subscribers[i] = base58.Encode(s[:])
	}
	jsonUser.ValidatorPubKey = base58.Encode(user.ValidatorPubKey[:])
	jsonUser.TunnelEndpoint = net.IP(user.TunnelEndpoint[:]).String()
	jsonUser.PubKey = base58.Encode(user.PubKey[:])
	return json.Marshal(jsonUser)
}
