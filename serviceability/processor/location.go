package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// codeTaken reports whether another account of the given type already uses
// the code.
func (p *Processor) codeTaken(at state.AccountType, code string) bool {
	for _, acc := range p.ledger.Accounts(p.programID) {
		if len(acc.Data) == 0 || state.AccountType(acc.Data[0]) != at {
			continue
		}
		r := state.NewByteReader(acc.Data)
		var existing string
		switch at {
		case state.LocationType:
			var v state.Location
			state.DeserializeLocation(r, &v)
			existing = v.Code
		case state.ExchangeType:
			var v state.Exchange
			state.DeserializeExchange(r, &v)
			existing = v.Code
		case state.ContributorType:
			var v state.Contributor
			state.DeserializeContributor(r, &v)
			existing = v.Code
		case state.DeviceType:
			var v state.Device
			if state.DeserializeDevice(r, &v) != nil {
				continue
			}
			existing = v.Code
		case state.LinkType:
			var v state.Link
			state.DeserializeLink(r, &v)
			existing = v.Code
		case state.MulticastGroupType:
			var v state.MulticastGroup
			state.DeserializeMulticastGroup(r, &v)
			existing = v.Code
		case state.TenantType:
			var v state.Tenant
			state.DeserializeTenant(r, &v)
			existing = v.Code
		}
		if existing == code {
			return true
		}
	}
	return false
}

func normalizeCode(code string) (string, error) {
	code = state.NormalizeCode(code)
	if err := state.ValidateCode(code); err != nil {
		return "", dzerror.Newf(dzerror.InvalidCode, "%v", err)
	}
	return code, nil
}

// CreateLocation registers a new location. Foundation only; locations carry
// no dataplane state so they are born Activated.
func (p *Processor) CreateLocation(payer solana.PublicKey, args instruction.CreateLocationArgs) (locPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		code, err := normalizeCode(args.Code)
		if err != nil {
			return err
		}
		if p.codeTaken(state.LocationType, code) {
			return dzerror.Newf(dzerror.CodeAlreadyExists, "location code %q already in use", code)
		}
		index, err := p.nextAccountIndex(payer)
		if err != nil {
			return err
		}
		pk, bump, err := pda.DeriveLocationPDA(p.programID, index.Bytes())
		if err != nil {
			return err
		}
		loc := &state.Location{
			AccountType: state.LocationType,
			Owner:       pk32(payer),
			Index:       index,
			BumpSeed:    bump,
			Lat:         args.Lat,
			Lng:         args.Lng,
			LocId:       args.LocId,
			Status:      state.LocationStatusActivated,
			Code:        code,
			Name:        args.Name,
			Country:     args.Country,
			PubKey:      pk32(pk),
		}
		if err := loc.Validate(); err != nil {
			return err
		}
		locPK = pk
		return p.create(pk, payer, loc.Serialize())
	})
	return locPK, err
}

func (p *Processor) UpdateLocation(payer, locPK solana.PublicKey, args instruction.UpdateLocationArgs) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		loc, err := p.location(locPK)
		if err != nil {
			return err
		}
		if err := requireOwnerOrFoundation(loc.Owner, gs, payer); err != nil {
			return err
		}
		if args.Code != nil {
			code, err := normalizeCode(*args.Code)
			if err != nil {
				return err
			}
			if code != loc.Code && p.codeTaken(state.LocationType, code) {
				return dzerror.Newf(dzerror.CodeAlreadyExists, "location code %q already in use", code)
			}
			loc.Code = code
		}
		if args.Name != nil {
			loc.Name = *args.Name
		}
		if args.Country != nil {
			loc.Country = *args.Country
		}
		if args.Lat != nil {
			loc.Lat = *args.Lat
		}
		if args.Lng != nil {
			loc.Lng = *args.Lng
		}
		if args.LocId != nil {
			loc.LocId = *args.LocId
		}
		if err := loc.Validate(); err != nil {
			return err
		}
		return p.store(locPK, payer, loc.Serialize())
	})
}

func (p *Processor) SuspendLocation(payer, locPK solana.PublicKey) error {
	return p.setLocationStatus(payer, locPK, state.LocationStatusSuspended)
}

func (p *Processor) ResumeLocation(payer, locPK solana.PublicKey) error {
	return p.setLocationStatus(payer, locPK, state.LocationStatusActivated)
}

func (p *Processor) setLocationStatus(payer, locPK solana.PublicKey, to state.LocationStatus) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		loc, err := p.location(locPK)
		if err != nil {
			return err
		}
		if err := state.CheckLocationTransition(loc.Status, to); err != nil {
			return err
		}
		loc.Status = to
		return p.store(locPK, payer, loc.Serialize())
	})
}

// DeleteLocation closes the account. Locations hold no dataplane resources,
// so there is no activator step between Deleting and close.
func (p *Processor) DeleteLocation(payer, locPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		loc, err := p.location(locPK)
		if err != nil {
			return err
		}
		if err := state.CheckLocationTransition(loc.Status, state.LocationStatusDeleting); err != nil {
			return err
		}
		if loc.ReferenceCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "location %q has %d dependents", loc.Code, loc.ReferenceCount)
		}
		return p.closeTo(locPK, payer)
	})
}
