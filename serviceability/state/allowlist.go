package state

import (
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type MGroupRole uint8

const (
	MGroupRolePublisher  MGroupRole = 0
	MGroupRoleSubscriber MGroupRole = 1
)

func (r MGroupRole) String() string {
	switch r {
	case MGroupRolePublisher:
		return "publisher"
	case MGroupRoleSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}

func (r MGroupRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// MGroupAllowlistEntry is the per-entry PDA form of the multicast allowlists.
// Entries are created lazily on first Add (or migrated out of the inline
// AccessPass vectors on first subscribe) and closed on Remove.
type MGroupAllowlistEntry struct {
	AccountType      AccountType
	Owner            [32]byte
	BumpSeed         uint8
	AccessPassPubKey [32]byte
	MGroupPubKey     [32]byte
	Role             MGroupRole
	PubKey           [32]byte
}

func DeserializeMGroupAllowlistEntry(reader *ByteReader, e *MGroupAllowlistEntry) {
	e.AccountType = AccountType(reader.ReadU8())
	e.Owner = reader.ReadPubkey()
	e.BumpSeed = reader.ReadU8()
	e.AccessPassPubKey = reader.ReadPubkey()
	e.MGroupPubKey = reader.ReadPubkey()
	e.Role = MGroupRole(reader.ReadU8())
}

func (e *MGroupAllowlistEntry) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(e.AccountType))
	w.WritePubkey(e.Owner)
	w.WriteU8(e.BumpSeed)
	w.WritePubkey(e.AccessPassPubKey)
	w.WritePubkey(e.MGroupPubKey)
	w.WriteU8(uint8(e.Role))
	return w.Bytes()
}

func (e *MGroupAllowlistEntry) Validate() error {
	if e.AccountType != MGroupAllowlistEntryType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if e.Role > MGroupRoleSubscriber {
		return dzerror.Newf(dzerror.InvalidAccountData, "allowlist role %d out of range", e.Role)
	}
	return nil
}

func (e MGroupAllowlistEntry) MarshalJSON() ([]byte, error) {
	type EntryAlias MGroupAllowlistEntry
	jsonEntry := &struct {
		EntryAlias
		Owner            string `json:"Owner"`
		AccessPassPubKey string `json:"AccessPassPubKey"`
		MGroupPubKey     string `json:"MGroupPubKey"`
		PubKey           string `json:"PubKey"`
	}{
		EntryAlias: EntryAlias(e),
	}
	jsonEntry.Owner = base58.Encode(e.Owner[:])
	jsonEntry.AccessPassPubKey = base58.Encode(e.AccessPassPubKey[:])
	jsonEntry.MGroupPubKey = base58.Encode(e.MGroupPubKey[:])
	jsonEntry.PubKey = base58.Encode(e.PubKey[:])
	return json.Marshal(jsonEntry)
}
