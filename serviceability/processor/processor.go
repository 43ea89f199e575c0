// Package processor implements the serviceability program's instruction
// handlers over an in-memory ledger model. Each exported method is one
// instruction: it authorizes the payer, validates preconditions, and applies
// the mutation atomically. Account bytes always go through the canonical
// entity codecs.
package processor

import (
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

type Processor struct {
	ledger    *Ledger
	programID solana.PublicKey
	log       *slog.Logger
}

func New(ledger *Ledger, programID solana.PublicKey, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{ledger: ledger, programID: programID, log: log}
}

func (p *Processor) ProgramID() solana.PublicKey { return p.programID }
func (p *Processor) Ledger() *Ledger             { return p.ledger }

// atomic applies fn with transaction semantics: an error rolls back every
// ledger mutation fn made.
func (p *Processor) atomic(fn func() error) error {
	return p.ledger.WithTransaction(fn)
}

// accountData returns the data of a program-owned account.
func (p *Processor) accountData(pk solana.PublicKey) ([]byte, error) {
	acc, ok := p.ledger.Account(pk)
	if !ok {
		return nil, dzerror.Newf(dzerror.AccountNotFound, "account %s does not exist", pk)
	}
	if acc.Owner != p.programID {
		return nil, dzerror.Newf(dzerror.InvalidAccountOwner, "account %s is not owned by the program", pk)
	}
	return acc.Data, nil
}

// loadAccount decodes a program account through an entity codec.
func loadAccount[T any](p *Processor, pk solana.PublicKey, de func(*state.ByteReader, *T)) (*T, error) {
	data, err := p.accountData(pk)
	if err != nil {
		return nil, err
	}
	var v T
	de(state.NewByteReader(data), &v)
	return &v, nil
}

func (p *Processor) store(pk, payer solana.PublicKey, data []byte) error {
	return p.ledger.WriteAccount(pk, payer, data)
}

func (p *Processor) create(pk, payer solana.PublicKey, data []byte) error {
	return p.ledger.CreateAccount(pk, p.programID, payer, data)
}

// closeTo zeroes an account and refunds its lamports.
func (p *Processor) closeTo(pk, recipient solana.PublicKey) error {
	return p.ledger.CloseAccount(pk, recipient)
}

// Singleton loaders.

func (p *Processor) globalState() (*state.GlobalState, solana.PublicKey, error) {
	gsPK, _, err := pda.DeriveGlobalStatePDA(p.programID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	gs, err := loadAccount(p, gsPK, state.DeserializeGlobalState)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	gs.PubKey = gsPK
	if err := gs.Validate(); err != nil {
		return nil, solana.PublicKey{}, err
	}
	return gs, gsPK, nil
}

func (p *Processor) saveGlobalState(gs *state.GlobalState, payer solana.PublicKey) error {
	if err := gs.Validate(); err != nil {
		return err
	}
	return p.store(solana.PublicKey(gs.PubKey), payer, gs.Serialize())
}

func (p *Processor) globalConfig() (*state.GlobalConfig, error) {
	cfgPK, _, err := pda.DeriveGlobalConfigPDA(p.programID)
	if err != nil {
		return nil, err
	}
	cfg, err := loadAccount(p, cfgPK, state.DeserializeGlobalConfig)
	if err != nil {
		return nil, err
	}
	cfg.PubKey = cfgPK
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// nextAccountIndex increments GlobalState.account_index and returns the new
// value. Entity PDAs are keyed by it.
func (p *Processor) nextAccountIndex(payer solana.PublicKey) (state.Uint128, error) {
	gs, _, err := p.globalState()
	if err != nil {
		return state.Uint128{}, err
	}
	next := gs.AccountIndex.NextIndex()
	gs.AccountIndex = next
	if err := p.saveGlobalState(gs, payer); err != nil {
		return state.Uint128{}, err
	}
	return next, nil
}

// Entity loaders. Each decodes, pins the account pubkey, and validates.

func (p *Processor) location(pk solana.PublicKey) (*state.Location, error) {
	loc, err := loadAccount(p, pk, state.DeserializeLocation)
	if err != nil {
		return nil, err
	}
	loc.PubKey = pk
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}

func (p *Processor) exchange(pk solana.PublicKey) (*state.Exchange, error) {
	ex, err := loadAccount(p, pk, state.DeserializeExchange)
	if err != nil {
		return nil, err
	}
	ex.PubKey = pk
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	return ex, nil
}

func (p *Processor) contributor(pk solana.PublicKey) (*state.Contributor, error) {
	c, err := loadAccount(p, pk, state.DeserializeContributor)
	if err != nil {
		return nil, err
	}
	c.PubKey = pk
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Processor) device(pk solana.PublicKey) (*state.Device, error) {
	data, err := p.accountData(pk)
	if err != nil {
		return nil, err
	}
	var dev state.Device
	if err := state.DeserializeDevice(state.NewByteReader(data), &dev); err != nil {
		return nil, err
	}
	dev.PubKey = pk
	if err := dev.Validate(); err != nil {
		return nil, err
	}
	return &dev, nil
}

func (p *Processor) link(pk solana.PublicKey) (*state.Link, error) {
	l, err := loadAccount(p, pk, state.DeserializeLink)
	if err != nil {
		return nil, err
	}
	l.PubKey = pk
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (p *Processor) user(pk solana.PublicKey) (*state.User, error) {
	u, err := loadAccount(p, pk, state.DeserializeUser)
	if err != nil {
		return nil, err
	}
	u.PubKey = pk
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (p *Processor) multicastGroup(pk solana.PublicKey) (*state.MulticastGroup, error) {
	mg, err := loadAccount(p, pk, state.DeserializeMulticastGroup)
	if err != nil {
		return nil, err
	}
	mg.PubKey = pk
	if err := mg.Validate(); err != nil {
		return nil, err
	}
	return mg, nil
}

func (p *Processor) accessPass(pk solana.PublicKey) (*state.AccessPass, error) {
	ap, err := loadAccount(p, pk, state.DeserializeAccessPass)
	if err != nil {
		return nil, err
	}
	ap.PubKey = pk
	if err := ap.Validate(); err != nil {
		return nil, err
	}
	return ap, nil
}

func (p *Processor) tenant(pk solana.PublicKey) (*state.Tenant, error) {
	t, err := loadAccount(p, pk, state.DeserializeTenant)
	if err != nil {
		return nil, err
	}
	t.PubKey = pk
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Processor) resourceExtension(pk solana.PublicKey) (*state.ResourceExtension, error) {
	data, err := p.accountData(pk)
	if err != nil {
		return nil, err
	}
	var ext state.ResourceExtension
	if err := state.DeserializeResourceExtension(data, &ext); err != nil {
		return nil, err
	}
	ext.PubKey = pk
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	return &ext, nil
}

// pk32 converts between the account-key representations.
func pk32(pk solana.PublicKey) [32]byte { return [32]byte(pk) }

func asPK(b [32]byte) solana.PublicKey { return solana.PublicKey(b) }

func containsKey(keys [][32]byte, k [32]byte) bool {
	for _, e := range keys {
		if e == k {
			return true
		}
	}
	return false
}

// removeKey swap-removes k from keys, matching the on-chain vector removal.
func removeKey(keys [][32]byte, k [32]byte) ([][32]byte, bool) {
	for i, e := range keys {
		if e == k {
			keys[i] = keys[len(keys)-1]
			return keys[:len(keys)-1], true
		}
	}
	return keys, false
}
