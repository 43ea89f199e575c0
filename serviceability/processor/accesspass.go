package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// SetAccessPass creates or refreshes the access pass for (client_ip,
// user_payer). Sentinel or foundation. On create the user wallet is funded
// so it can pay the rent of its own user accounts.
func (p *Processor) SetAccessPass(payer, userPayer solana.PublicKey, args instruction.SetAccessPassArgs) (apPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireSentinelOrFoundation(gs, payer); err != nil {
			return err
		}
		typeTag := state.AccessPassTypeTag(args.AccessPassType)
		if typeTag > state.AccessPassTypeOthers {
			return dzerror.Newf(dzerror.InvalidAccountData, "invalid access pass type %d", args.AccessPassType)
		}
		clock := p.ledger.Clock()
		if args.LastAccessEpoch != 0 && args.LastAccessEpoch < clock.Epoch {
			return dzerror.Newf(dzerror.AccessPassExpired, "last access epoch %d is before current epoch %d", args.LastAccessEpoch, clock.Epoch)
		}
		pk, bump, err := pda.DeriveAccessPassPDA(p.programID, args.ClientIp, userPayer)
		if err != nil {
			return err
		}

		var flags uint8
		if args.ClientIp == ([4]byte{}) {
			flags |= state.AccessPassFlagIsDynamic
		}
		if args.AllowMultipleIP {
			flags |= state.AccessPassFlagAllowMultipleIP
		}

		if existing, err := p.accessPass(pk); err == nil {
			existing.AccessPassTypeTag = typeTag
			existing.AssociatedPubkey = args.AssociatedPubkey
			existing.LastAccessEpoch = args.LastAccessEpoch
			existing.Flags = flags
			if existing.Status == state.AccessPassStatusExpired {
				existing.Status = state.AccessPassStatusRequested
			}
			if err := existing.Validate(); err != nil {
				return err
			}
			apPK = pk
			return p.store(pk, payer, existing.Serialize())
		}

		ap := &state.AccessPass{
			AccountType:       state.AccessPassType,
			Owner:             pk32(payer),
			BumpSeed:          bump,
			AccessPassTypeTag: typeTag,
			AssociatedPubkey:  args.AssociatedPubkey,
			ClientIp:          args.ClientIp,
			UserPayer:         pk32(userPayer),
			LastAccessEpoch:   args.LastAccessEpoch,
			Status:            state.AccessPassStatusRequested,
			Flags:             flags,
			PubKey:            pk32(pk),
		}
		if err := ap.Validate(); err != nil {
			return err
		}
		if err := p.create(pk, payer, ap.Serialize()); err != nil {
			return err
		}
		if gs.UserAirdropLamports > 0 {
			if err := p.ledger.Transfer(payer, userPayer, gs.UserAirdropLamports); err != nil {
				return err
			}
		}
		apPK = pk
		return nil
	})
	return apPK, err
}

// CloseAccessPass removes a pass with no live connections.
func (p *Processor) CloseAccessPass(payer, apPK solana.PublicKey) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireSentinelOrFoundation(gs, payer); err != nil {
			return err
		}
		ap, err := p.accessPass(apPK)
		if err != nil {
			return err
		}
		if ap.ConnectionCount != 0 {
			return dzerror.Newf(dzerror.ReferenceCountNotZero, "access pass has %d live connections", ap.ConnectionCount)
		}
		return p.closeTo(apPK, payer)
	})
}

// accessPassFor resolves the pass authorizing a user: the fixed pass at the
// client IP first, then the payer's dynamic pass.
func (p *Processor) accessPassFor(clientIP [4]byte, userPayer solana.PublicKey) (*state.AccessPass, error) {
	fixedPK, _, err := pda.DeriveAccessPassPDA(p.programID, clientIP, userPayer)
	if err != nil {
		return nil, err
	}
	if ap, err := p.accessPass(fixedPK); err == nil {
		return ap, nil
	}
	dynPK, _, err := pda.DeriveAccessPassPDA(p.programID, [4]byte{}, userPayer)
	if err != nil {
		return nil, err
	}
	if ap, err := p.accessPass(dynPK); err == nil {
		return ap, nil
	}
	return nil, dzerror.Newf(dzerror.AccessPassMismatch, "no access pass for %s", userPayer)
}

// checkAccessPassIP enforces the pass/IP binding and locks a dynamic pass
// to its first client IP.
func checkAccessPassIP(ap *state.AccessPass, clientIP [4]byte) (bound bool, err error) {
	if !ap.IsDynamic() {
		if ap.ClientIp != clientIP {
			return false, dzerror.Newf(dzerror.InvalidClientIP, "client ip does not match the access pass")
		}
		return false, nil
	}
	if ap.ClientIp == ([4]byte{}) {
		ap.ClientIp = clientIP
		return true, nil
	}
	if ap.ClientIp != clientIP && !ap.AllowMultipleIP() {
		return false, dzerror.Newf(dzerror.InvalidClientIP, "dynamic access pass is locked to another client ip")
	}
	return false, nil
}

// mgroupAllowlisted checks pass membership for a role with PDA precedence,
// then the inline vector. A vector hit migrates the entry to its PDA form
// so the vector rent can be reclaimed over time.
func (p *Processor) mgroupAllowlisted(payer solana.PublicKey, ap *state.AccessPass, mgroupPK solana.PublicKey, role state.MGroupRole) error {
	entryPK, bump, err := pda.DeriveMGroupAllowlistEntryPDA(p.programID, asPK(ap.PubKey), mgroupPK, uint8(role))
	if err != nil {
		return err
	}
	if _, ok := p.ledger.Account(entryPK); ok {
		return nil
	}

	inline := &ap.MGroupPubAllowlist
	if role == state.MGroupRoleSubscriber {
		inline = &ap.MGroupSubAllowlist
	}
	rest, found := removeKey(*inline, pk32(mgroupPK))
	if !found {
		return dzerror.Newf(dzerror.MulticastNotAllowed, "group is not in the access pass %s allowlist", role)
	}
	*inline = rest

	entry := &state.MGroupAllowlistEntry{
		AccountType:      state.MGroupAllowlistEntryType,
		Owner:            ap.Owner,
		BumpSeed:         bump,
		AccessPassPubKey: ap.PubKey,
		MGroupPubKey:     pk32(mgroupPK),
		Role:             role,
		PubKey:           pk32(entryPK),
	}
	return p.create(entryPK, payer, entry.Serialize())
}

// AddMGroupAllowlist creates the PDA-side allowlist entry. Sentinel or
// foundation.
func (p *Processor) AddMGroupAllowlist(payer, apPK, mgroupPK solana.PublicKey, role state.MGroupRole) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireSentinelOrFoundation(gs, payer); err != nil {
			return err
		}
		ap, err := p.accessPass(apPK)
		if err != nil {
			return err
		}
		if _, err := p.multicastGroup(mgroupPK); err != nil {
			return err
		}
		entryPK, bump, err := pda.DeriveMGroupAllowlistEntryPDA(p.programID, apPK, mgroupPK, uint8(role))
		if err != nil {
			return err
		}
		if _, ok := p.ledger.Account(entryPK); ok {
			return dzerror.Newf(dzerror.AccountAlreadyExists, "allowlist entry already exists")
		}
		entry := &state.MGroupAllowlistEntry{
			AccountType:      state.MGroupAllowlistEntryType,
			Owner:            ap.Owner,
			BumpSeed:         bump,
			AccessPassPubKey: pk32(apPK),
			MGroupPubKey:     pk32(mgroupPK),
			Role:             role,
			PubKey:           pk32(entryPK),
		}
		return p.create(entryPK, payer, entry.Serialize())
	})
}

// RemoveMGroupAllowlist removes membership from whichever side holds it:
// the PDA entry when present, otherwise the inline vector.
func (p *Processor) RemoveMGroupAllowlist(payer, apPK, mgroupPK solana.PublicKey, role state.MGroupRole) error {
	return p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireSentinelOrFoundation(gs, payer); err != nil {
			return err
		}
		entryPK, _, err := pda.DeriveMGroupAllowlistEntryPDA(p.programID, apPK, mgroupPK, uint8(role))
		if err != nil {
			return err
		}
		if _, ok := p.ledger.Account(entryPK); ok {
			return p.closeTo(entryPK, payer)
		}
		ap, err := p.accessPass(apPK)
		if err != nil {
			return err
		}
		inline := &ap.MGroupPubAllowlist
		if role == state.MGroupRoleSubscriber {
			inline = &ap.MGroupSubAllowlist
		}
		rest, found := removeKey(*inline, pk32(mgroupPK))
		if !found {
			return dzerror.Newf(dzerror.AccountNotFound, "group is not in the access pass %s allowlist", role)
		}
		*inline = rest
		return p.store(apPK, payer, ap.Serialize())
	})
}
