package state

import (
	"encoding/json"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/mr-tron/base58"
)

type ContributorStatus uint8

const (
	ContributorStatusNone      ContributorStatus = 0
	ContributorStatusActivated ContributorStatus = 1
	ContributorStatusSuspended ContributorStatus = 2
	ContributorStatusDeleting  ContributorStatus = 3
)

func (s ContributorStatus) String() string {
	switch s {
	case ContributorStatusNone:
		return "none"
	case ContributorStatusActivated:
		return "activated"
	case ContributorStatusSuspended:
		return "suspended"
	case ContributorStatusDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

func (s ContributorStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Contributor struct {
	AccountType    AccountType
	Owner          [32]byte
	Index          Uint128
	BumpSeed       uint8
	Status         ContributorStatus
	Code           string
	ReferenceCount uint32
	OpsManagerPK   [32]byte
	PubKey         [32]byte
}

func DeserializeContributor(reader *ByteReader, contributor *Contributor) {
	contributor.AccountType = AccountType(reader.ReadU8())
	contributor.Owner = reader.ReadPubkey()
	contributor.Index = reader.ReadU128()
	contributor.BumpSeed = reader.ReadU8()
	contributor.Status = ContributorStatus(reader.ReadU8())
	contributor.Code = reader.ReadString()
	contributor.ReferenceCount = reader.ReadU32()
	contributor.OpsManagerPK = reader.ReadPubkey()
}

func (contributor *Contributor) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(contributor.AccountType))
	w.WritePubkey(contributor.Owner)
	w.WriteU128(contributor.Index)
	w.WriteU8(contributor.BumpSeed)
	w.WriteU8(uint8(contributor.Status))
	w.WriteString(contributor.Code)
	w.WriteU32(contributor.ReferenceCount)
	w.WritePubkey(contributor.OpsManagerPK)
	return w.Bytes()
}

func (contributor *Contributor) Validate() error {
	if contributor.AccountType != ContributorType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(contributor.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if contributor.Status > ContributorStatusDeleting {
		return dzerror.Newf(dzerror.InvalidAccountData, "contributor status %d out of range", contributor.Status)
	}
	return nil
}

func (contributor Contributor) MarshalJSON() ([]byte, error) {
	type ContributorAlias Contributor
	return json.Marshal(&struct {
		ContributorAlias
		Owner        string `json:"Owner"`
		OpsManagerPK string `json:"OpsManagerPK"`
		PubKey       string `json:"PubKey"`
	}{
		ContributorAlias: ContributorAlias(contributor),
		Owner:            base58.Encode(contributor.Owner[:]),
		OpsManagerPK:     base58.Encode(contributor.OpsManagerPK[:]),
		PubKey:           base58.Encode(contributor.PubKey[:]),
	})
}
