package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// Authorization checks. Exactly one accept condition must hold per
// instruction: the entity owner, the foundation allowlist, or a role key
// held in GlobalState.

func requireFoundation(gs *state.GlobalState, payer solana.PublicKey) error {
	if !gs.IsFoundation(pk32(payer)) {
		return dzerror.Newf(dzerror.NotAllowed, "%s is not in the foundation allowlist", payer)
	}
	return nil
}

func requireOwnerOrFoundation(owner [32]byte, gs *state.GlobalState, payer solana.PublicKey) error {
	if pk32(payer) == owner {
		return nil
	}
	return requireFoundation(gs, payer)
}

// requireFoundationOrUpgradeAuthority accepts the foundation allowlist or
// the key holding the program's upgrade authority.
func requireFoundationOrUpgradeAuthority(gs *state.GlobalState, ledger *Ledger, payer solana.PublicKey) error {
	if ua := ledger.UpgradeAuthority(); !ua.IsZero() && payer == ua {
		return nil
	}
	return requireFoundation(gs, payer)
}

func requireActivator(gs *state.GlobalState, payer solana.PublicKey) error {
	if pk32(payer) != gs.ActivatorAuthorityPK {
		return dzerror.Newf(dzerror.Unauthorized, "%s is not the activator authority", payer)
	}
	return nil
}

func requireHealthOracle(gs *state.GlobalState, payer solana.PublicKey) error {
	if pk32(payer) != gs.HealthOraclePK {
		return dzerror.Newf(dzerror.Unauthorized, "%s is not the health oracle", payer)
	}
	return nil
}

func requireSentinelOrFoundation(gs *state.GlobalState, payer solana.PublicKey) error {
	if pk32(payer) == gs.SentinelAuthorityPK {
		return nil
	}
	return requireFoundation(gs, payer)
}

func requireContributorManagerOrFoundation(gs *state.GlobalState, payer solana.PublicKey) error {
	if pk32(payer) == gs.ContributorManagerPK {
		return nil
	}
	return requireFoundation(gs, payer)
}

// requireContributor accepts the contributor's owner, its ops manager, or
// the foundation.
func requireContributor(c *state.Contributor, gs *state.GlobalState, payer solana.PublicKey) error {
	if pk32(payer) == c.Owner || pk32(payer) == c.OpsManagerPK {
		return nil
	}
	return requireFoundation(gs, payer)
}
