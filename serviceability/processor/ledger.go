package processor

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

// Account is one ledger entry: lamports plus the owning program's data.
// Wallets are accounts with a zero owner and no data.
type Account struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

func (a *Account) clone() *Account {
	return &Account{
		Owner:    a.Owner,
		Lamports: a.Lamports,
		Data:     append([]byte(nil), a.Data...),
	}
}

// Clock mirrors the substrate clock sysvar.
type Clock struct {
	Slot  uint64
	Epoch uint64
}

// Rent parameters. An account must hold the exempt minimum for its size.
const (
	rentPerByte     = 6960
	rentAccountBase = 128
)

// RentExemptMinimum returns the lamports an account of the given data size
// must hold.
func RentExemptMinimum(dataLen int) uint64 {
	return uint64(rentAccountBase+dataLen) * rentPerByte
}

// Ledger is an in-memory model of the substrate: accounts, lamports, rent
// exemption, a clock, and snapshot-rollback transactions. The processors
// mutate state exclusively through it.
type Ledger struct {
	mu               sync.Mutex
	accounts         map[solana.PublicKey]*Account
	clock            Clock
	upgradeAuthority solana.PublicKey
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[solana.PublicKey]*Account)}
}

// SetUpgradeAuthority records the key that holds the deployed program's
// upgrade authority, as the loader's program-data account would.
func (l *Ledger) SetUpgradeAuthority(pk solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.upgradeAuthority = pk
}

func (l *Ledger) UpgradeAuthority() solana.PublicKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.upgradeAuthority
}

func (l *Ledger) SetClock(clock Clock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

func (l *Ledger) Clock() Clock {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clock
}

// Account returns a copy of the account, or false when it does not exist.
func (l *Ledger) Account(pk solana.PublicKey) (Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[pk]
	if !ok {
		return Account{}, false
	}
	return *acc.clone(), true
}

// Airdrop credits lamports out of thin air. Test and genesis paths only.
func (l *Ledger) Airdrop(pk solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[pk]
	if !ok {
		acc = &Account{}
		l.accounts[pk] = acc
	}
	acc.Lamports += lamports
}

func (l *Ledger) Balance(pk solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[pk]; ok {
		return acc.Lamports
	}
	return 0
}

// Transfer moves lamports between accounts, creating the destination wallet
// when missing.
func (l *Ledger) Transfer(from, to solana.PublicKey, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, lamports)
}

func (l *Ledger) transferLocked(from, to solana.PublicKey, lamports uint64) error {
	src, ok := l.accounts[from]
	if !ok || src.Lamports < lamports {
		return dzerror.Newf(dzerror.InsufficientFunds, "account %s cannot fund %d lamports", from, lamports)
	}
	dst, ok := l.accounts[to]
	if !ok {
		dst = &Account{}
		l.accounts[to] = dst
	}
	src.Lamports -= lamports
	dst.Lamports += lamports
	return nil
}

// CreateAccount funds a new program-owned account at pk with rent taken from
// payer, and stores data.
func (l *Ledger) CreateAccount(pk, owner, payer solana.PublicKey, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[pk]; ok && (len(acc.Data) > 0 || !acc.Owner.IsZero()) {
		return dzerror.Newf(dzerror.InvalidAccountData, "account %s already exists", pk)
	}
	rent := RentExemptMinimum(len(data))
	if err := l.transferLocked(payer, pk, rent); err != nil {
		return err
	}
	acc := l.accounts[pk]
	acc.Owner = owner
	acc.Data = append([]byte(nil), data...)
	return nil
}

// WriteAccount replaces an existing account's data. Growth is funded from
// payer to keep the account rent-exempt; shrink leaves the excess in place.
func (l *Ledger) WriteAccount(pk, payer solana.PublicKey, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[pk]
	if !ok {
		return dzerror.Newf(dzerror.InvalidAccountData, "account %s does not exist", pk)
	}
	need := RentExemptMinimum(len(data))
	if acc.Lamports < need {
		if err := l.transferLocked(payer, pk, need-acc.Lamports); err != nil {
			return err
		}
	}
	acc.Data = append([]byte(nil), data...)
	return nil
}

// CloseAccount zeroes the account and returns its lamports to recipient.
func (l *Ledger) CloseAccount(pk, recipient solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[pk]
	if !ok {
		return dzerror.Newf(dzerror.InvalidAccountData, "account %s does not exist", pk)
	}
	lamports := acc.Lamports
	delete(l.accounts, pk)
	dst, ok := l.accounts[recipient]
	if !ok {
		dst = &Account{}
		l.accounts[recipient] = dst
	}
	dst.Lamports += lamports
	return nil
}

// Accounts returns a copy of every account owned by the given program.
func (l *Ledger) Accounts(owner solana.PublicKey) map[solana.PublicKey]Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[solana.PublicKey]Account)
	for pk, acc := range l.accounts {
		if acc.Owner == owner {
			out[pk] = *acc.clone()
		}
	}
	return out
}

// WithTransaction runs fn atomically: any error rolls every account mutation
// back, mirroring the substrate's all-or-nothing transaction semantics.
func (l *Ledger) WithTransaction(fn func() error) error {
	l.mu.Lock()
	snapshot := make(map[solana.PublicKey]*Account, len(l.accounts))
	for pk, acc := range l.accounts {
		snapshot[pk] = acc.clone()
	}
	l.mu.Unlock()

	if err := fn(); err != nil {
		l.mu.Lock()
		l.accounts = snapshot
		l.mu.Unlock()
		return err
	}
	return nil
}
