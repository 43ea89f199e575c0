package state

import (
	"encoding/json"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/mr-tron/base58"
)

type LocationStatus uint8

const (
	LocationStatusPending   LocationStatus = 0
	LocationStatusActivated LocationStatus = 1
	LocationStatusSuspended LocationStatus = 2
	LocationStatusDeleting  LocationStatus = 3
)

func (s LocationStatus) String() string {
	switch s {
	case LocationStatusPending:
		return "pending"
	case LocationStatusActivated:
		return "activated"
	case LocationStatusSuspended:
		return "suspended"
	case LocationStatusDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

func (s LocationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Location struct {
	AccountType    AccountType
	Owner          [32]byte
	Index          Uint128
	BumpSeed       uint8
	Lat            float64
	Lng            float64
	LocId          uint32
	Status         LocationStatus
	Code           string
	Name           string
	Country        string
	ReferenceCount uint32
	PubKey         [32]byte
}

func DeserializeLocation(reader *ByteReader, loc *Location) {
	loc.AccountType = AccountType(reader.ReadU8())
	loc.Owner = reader.ReadPubkey()
	loc.Index = reader.ReadU128()
	loc.BumpSeed = reader.ReadU8()
	loc.Lat = reader.ReadF64()
	loc.Lng = reader.ReadF64()
	loc.LocId = reader.ReadU32()
	loc.Status = LocationStatus(reader.ReadU8())
	loc.Code = reader.ReadString()
	loc.Name = reader.ReadString()
	loc.Country = reader.ReadString()
	loc.ReferenceCount = reader.ReadU32()
}

func (loc *Location) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(loc.AccountType))
	w.WritePubkey(loc.Owner)
	w.WriteU128(loc.Index)
	w.WriteU8(loc.BumpSeed)
	w.WriteF64(loc.Lat)
	w.WriteF64(loc.Lng)
	w.WriteU32(loc.LocId)
	w.WriteU8(uint8(loc.Status))
	w.WriteString(loc.Code)
	w.WriteString(loc.Name)
	w.WriteString(loc.Country)
	w.WriteU32(loc.ReferenceCount)
	return w.Bytes()
}

func (loc *Location) Validate() error {
	if loc.AccountType != LocationType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(loc.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if loc.Status > LocationStatusDeleting {
		return dzerror.Newf(dzerror.InvalidAccountData, "location status %d out of range", loc.Status)
	}
	return nil
}

func (loc Location) MarshalJSON() ([]byte, error) {
	type LocationAlias Location
	return json.Marshal(&struct {
		LocationAlias
		Owner  string `json:"Owner"`
		PubKey string `json:"PubKey"`
	}{
		LocationAlias: LocationAlias(loc),
		Owner:         base58.Encode(loc.Owner[:]),
		PubKey:        base58.Encode(loc.PubKey[:]),
	})
}
