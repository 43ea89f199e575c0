package state

import (
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type TenantPaymentStatus uint8

const (
	TenantPaymentStatusDelinquent TenantPaymentStatus = iota
	TenantPaymentStatusPaid
)

func (s TenantPaymentStatus) String() string {
	switch s {
	case TenantPaymentStatusDelinquent:
		return "delinquent"
	case TenantPaymentStatusPaid:
		return "paid"
	default:
		return "unknown"
	}
}

func (s TenantPaymentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Tenant struct {
	AccountType                 AccountType
	Owner                       [32]uint8
	BumpSeed                    uint8
	Code                        string
	VrfId                       uint16
	ReferenceCount              uint32
	Administrators              [][32]byte
	PaymentStatus               TenantPaymentStatus
	TokenAccount                [32]byte
	MetroRouting                bool
	RouteLiveness               bool
	BillingDiscriminant         uint8
	BillingRate                 uint64
	BillingLastDeductionDzEpoch uint64
	PubKey                      [32]byte
}

func DeserializeTenant(reader *ByteReader, t *Tenant) {
	t.AccountType = AccountType(reader.ReadU8())
	t.Owner = reader.ReadPubkey()
	t.BumpSeed = reader.ReadU8()
	t.Code = reader.ReadString()
	t.VrfId = reader.ReadU16()
	t.ReferenceCount = reader.ReadU32()
	t.Administrators = reader.ReadPubkeySlice()
	t.PaymentStatus = TenantPaymentStatus(reader.ReadU8())
	t.TokenAccount = reader.ReadPubkey()
	t.MetroRouting = reader.ReadBool()
	t.RouteLiveness = reader.ReadBool()
	t.BillingDiscriminant = reader.ReadU8()
	t.BillingRate = reader.ReadU64()
	t.BillingLastDeductionDzEpoch = reader.ReadU64()
}

func (t *Tenant) Serialize() []byte {
	w := NewByteWriter()
	w.WriteU8(uint8(t.AccountType))
	w.WritePubkey(t.Owner)
	w.WriteU8(t.BumpSeed)
	w.WriteString(t.Code)
	w.WriteU16(t.VrfId)
	w.WriteU32(t.ReferenceCount)
	w.WritePubkeySlice(t.Administrators)
	w.WriteU8(uint8(t.PaymentStatus))
	w.WritePubkey(t.TokenAccount)
	w.WriteBool(t.MetroRouting)
	w.WriteBool(t.RouteLiveness)
	w.WriteU8(t.BillingDiscriminant)
	w.WriteU64(t.BillingRate)
	w.WriteU64(t.BillingLastDeductionDzEpoch)
	return w.Bytes()
}

func (t *Tenant) Validate() error {
	if t.AccountType != TenantType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	if err := ValidateCode(t.Code); err != nil {
		return dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	if len(t.Administrators) > MaxAdministrators {
		return dzerror.Newf(dzerror.InvalidAccountData, "administrators exceed %d entries", MaxAdministrators)
	}
	if hasDuplicatePubkeys(t.Administrators) {
		return dzerror.Newf(dzerror.InvalidAccountData, "duplicate administrator")
	}
	if t.PaymentStatus > TenantPaymentStatusPaid {
		return dzerror.Newf(dzerror.InvalidAccountData, "payment status %d out of range", t.PaymentStatus)
	}
	return nil
}

// IsAdministrator reports whether pk manages the tenant.
func (t *Tenant) IsAdministrator(pk [32]byte) bool {
	return t.Owner == pk || containsPubkey(t.Administrators, pk)
}

func (t Tenant) MarshalJSON() ([]byte, error) {
	type TenantAlias Tenant

	adminStrings := make([]string, len(t.Administrators))
	for i, admin := range t.Administrators {
		adminStrings[i] = base58.Encode(admin[:])
	}

	jsonTenant := &struct {
		TenantAlias
		Owner          string   `json:"Owner"`
		PubKey         string   `json:"PubKey"`
		Administrators []string `json:"Administrators"`
		PaymentStatus  string   `json:"PaymentStatus"`
		TokenAccount   string   `json:"TokenAccount"`
	}{
		TenantAlias:    TenantAlias(t),
		Administrators: adminStrings,
	}

	jsonTenant.Owner = base58.Encode(t.Owner[:])
	jsonTenant.PubKey = base58.Encode(t.PubKey[:])
	jsonTenant.PaymentStatus = t.PaymentStatus.String()
	jsonTenant.TokenAccount = base58.Encode(t.TokenAccount[:])

	return json.Marshal(jsonTenant)
}
