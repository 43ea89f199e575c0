package state

import (
	"encoding/json"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/mr-tron/base58"
)

type ExchangeStatus uint8

const (
	ExchangeStatusPending   ExchangeStatus = 0
	ExchangeStatusActivated ExchangeStatus = 1
	ExchangeStatusSuspended ExchangeStatus = 2
	ExchangeStatusDeleting  ExchangeStatus = 3
)

func (s ExchangeStatus) String() string {
	switch s {
	case ExchangeStatusPending:
		return "pending"
	case ExchangeStatusActivated:
		return "activated"
	case ExchangeStatusSuspended:
		return "suspended"
	case ExchangeStatusDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

func (s ExchangeStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Exchange struct {
	AccountType    AccountType
	Owner          [32]byte
	Index          Uint128
	BumpSeed       uint8
	Lat            float64
	Lng            float64
	BgpCommunity   uint16
	Status         ExchangeStatus
	Code           string
	Name           string
	ReferenceCount uint32
	Device1PK      [32]byte
	Device2PK      [32]byte
	PubKey         [32]byte
}

func DeserializeExchange(reader *ByteReader, exchange *Exchange) {
	exchange.AccountType = AccountType(reader.ReadU8())
	exchange.Owner = reader.ReadPubkey()
	exchange.Index = reader.ReadU128()
	exchange.BumpSeed = reader.ReadU8()
	exchange.Lat = reader.ReadF64()
	exchange.Lng = reader.ReadF64()
	exchange.BgpCommunity = reader.ReadU16()
	_ = reader.ReadU16() // unused padding
	exchange.Status = ExchangeStatus(reader.ReadU8())
	exchange.Code = reader.ReadString()
	exchange.Name = reader.ReadString()
	exchange.ReferenceCount = reader.ReadU32()
	exchange.Device1PK = reader.ReadPubkey()
	exchange.Device2PK = reader.ReadPubkey()
}

func (exchange *Exchange) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(exchange.AccountType))
	w.WritePubkey(exchange.Owner)
	w.WriteU128(exchange.Index)
	w.WriteU8(exchange.BumpSeed)
	w.WriteF64(exchange.Lat)
	w.WriteF64(exchange.Lng)
	w.WriteU16(exchange.BgpCommunity)
	w.WriteU16(0) // unused padding
	w.WriteU8(uint8(exchange.Status))
	w.WriteString(exchange.Code)
	w.WriteString(exchange.Name)
	w.WriteU32(exchange.ReferenceCount)
	w.WritePubkey(exchange.Device1PK)
	w.WritePubkey(exchange.Device2PK)
	return w.Bytes()
}

func (exchange *Exchange) Validate() error {
	if exchange.AccountType != ExchangeType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(exchange.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if exchange.Status > ExchangeStatusDeleting {
		return dzerror.Newf(dzerror.InvalidAccountData, "exchange status %d out of range", exchange.Status)
	}
	return nil
}

func (exchange Exchange) MarshalJSON() ([]byte, error) {
	type ExchangeAlias Exchange
	return json.Marshal(&struct {
		ExchangeAlias
		Owner     string `json:"Owner"`
		Device1PK string `json:"Device1PK"`
		Device2PK string `json:"Device2PK"`
		PubKey    string `json:"PubKey"`
	}{
		ExchangeAlias: ExchangeAlias(exchange),
		Owner:         base58.Encode(exchange.Owner[:]),
		Device1PK:     base58.Encode(exchange.Device1PK[:]),
		Device2PK:     base58.Encode(exchange.Device2PK[:]),
		PubKey:        base58.Encode(exchange.PubKey[:]),
	})
}
