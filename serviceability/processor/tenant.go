package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// CreateTenant registers a tenant. Contributor manager or foundation only.
// The tenant PDA is keyed by the global account index; the index is not
// stored on the account, the derived address is.
func (p *Processor) CreateTenant(payer solana.PublicKey, args instruction.CreateTenantArgs) (tenantPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireContributorManagerOrFoundation(gs, payer); err != nil {
			return err
		}
		code, err := normalizeCode(args.Code)
		if err != nil {
			return err
		}
		if p.codeTaken(state.TenantType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "tenant code %q already in use", code)
		}
		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveTenantPDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		t := &state.Tenant{
			AccountType:    state.TenantType,
			Owner:          pk32(payer),
			BumpSeed:       bump,
			Code:           code,
			VrfId:          args.VrfId,
			Administrators: args.Administrators,
			PaymentStatus:  state.TenantPaymentStatusPaid,
			TokenAccount:   args.TokenAccount,
			MetroRouting:   args.MetroRouting,
			RouteLiveness:  args.RouteLiveness,
			PubKey:         pk32(pk),
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if err := p.create(pk, payer, t.Serialize()); err != nil {
			return err
		}
		tenantPK = pk
		return nil
	})
	return tenantPK, err
}

// UpdateTenant edits tenant settings. A tenant administrator may edit its
// own tenant; the contributor manager and foundation may edit any.
func (p *Processor) UpdateTenant(payer, tenantPK solana.PublicKey, args instruction.UpdateTenantArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		t, err := p.tenant(tenantPK)
		if err != nil {
			return err
		}
		if !t.IsAdministrator(pk32(payer)) {
			if err := requireContributorManagerOrFoundation(gs, payer); err != nil {
				return err
			}
		}
		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != t.Code && p.codeTaken(state.TenantType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "tenant code %q already in use", code)
			}
			t.Code = code
		}
		if args.VrfId != nil {
			t.VrfId = *args.VrfId
		}
		if args.Administrators != nil {
			t.Administrators = *args.Administrators
		}
		if args.MetroRouting != nil {
			t.MetroRouting = *args.MetroRouting
		}
		if args.RouteLiveness != nil {
			t.RouteLiveness = *args.RouteLiveness
		}
		if err := t.Validate(); err != nil {
			return err
		}
		return p.store(tenantPK, payer, t.Serialize())
	})
}

// DeleteTenant closes the account. Tenants hold no dataplane state, so
// there is no activator round trip; referenced tenants cannot be deleted.
func (p *Processor) DeleteTenant(payer, tenantPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireContributorManagerOrFoundation(gs, payer); err != nil {
			return err
		}
		t, err := p.tenant(tenantPK)
		if err != nil {
			return err
		}
		if t.ReferenceCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "tenant %q is referenced by %d accounts", t.Code, t.ReferenceCount)
		}
		return p.closeTo(tenantPK, payer)
	})
}
