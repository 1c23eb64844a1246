package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrAccountExists     = errors.New("token account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMintMismatch      = errors.New("token mint mismatch")
	ErrOwnerMismatch     = errors.New("account owner mismatch")
	ErrOverflow          = errors.New("balance overflow")
	ErrTxClosed          = errors.New("ledger transaction closed")
)

// TokenAccount is a balance of one mint held under one owner.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Owner   solana.PublicKey `json:"owner"`
	Mint    solana.PublicKey `json:"mint"`
	Amount  uint64           `json:"amount"`
}

// Ledger is the in-process asset ledger. Mutations go through Tx so a
// failed call never leaves a partial transfer behind.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]TokenAccount
}

func New() *Ledger {
	return &Ledger{accounts: make(map[solana.PublicKey]TokenAccount)}
}

// Open adds an account outside of any transaction (genesis, tests).
func (l *Ledger) Open(acc TokenAccount) error {
	if acc.Address.IsZero() {
		return fmt.Errorf("open account: address is zero")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[acc.Address]; ok {
		return fmt.Errorf("open %s: %w", acc.Address, ErrAccountExists)
	}
	l.accounts[acc.Address] = acc
	return nil
}

// Restore overwrites or adds accounts outside of any transaction. Used at
// startup to lay persisted balances over genesis.
func (l *Ledger) Restore(accs []TokenAccount) error {
	for _, acc := range accs {
		if acc.Address.IsZero() {
			return fmt.Errorf("restore account: address is zero")
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, acc := range accs {
		l.accounts[acc.Address] = acc
	}
	return nil
}

// Account returns the committed state of addr.
func (l *Ledger) Account(addr solana.PublicKey) (TokenAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return TokenAccount{}, fmt.Errorf("%s: %w", addr, ErrAccountNotFound)
	}
	return acc, nil
}

// Accounts returns every committed account ordered by address.
func (l *Ledger) Accounts() []TokenAccount {
	l.mu.RLock()
	out := make([]TokenAccount, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, acc)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out
}

// Begin opens a transaction. Callers are expected to hold exclusive access
// to every account they write.
func (l *Ledger) Begin() *Tx {
	return &Tx{l: l, dirty: make(map[solana.PublicKey]TokenAccount)}
}

type journalEntry struct {
	addr    solana.PublicKey
	prev    TokenAccount
	wasInTx bool
}

// WriteGuard vets an account before the transaction modifies it.
type WriteGuard func(addr solana.PublicKey) error

// Tx is a copy-on-write view over the ledger.
type Tx struct {
	l       *Ledger
	dirty   map[solana.PublicKey]TokenAccount
	journal []journalEntry
	guard   WriteGuard
	closed  bool
}

// SetWriteGuard installs g and returns the guard it replaced. A nil guard
// allows every write.
func (tx *Tx) SetWriteGuard(g WriteGuard) WriteGuard {
	prev := tx.guard
	tx.guard = g
	return prev
}

func (tx *Tx) checkWrite(addrs ...solana.PublicKey) error {
	if tx.guard == nil {
		return nil
	}
	for _, a := range addrs {
		if err := tx.guard(a); err != nil {
			return err
		}
	}
	return nil
}

// Savepoint marks the current state for RollbackTo.
type Savepoint int

func (tx *Tx) Account(addr solana.PublicKey) (TokenAccount, error) {
	if tx.closed {
		return TokenAccount{}, ErrTxClosed
	}
	if acc, ok := tx.dirty[addr]; ok {
		return acc, nil
	}
	return tx.l.Account(addr)
}

// Exists reports whether addr is visible to the transaction.
func (tx *Tx) Exists(addr solana.PublicKey) bool {
	_, err := tx.Account(addr)
	return err == nil
}

// Create adds a new account inside the transaction.
func (tx *Tx) Create(acc TokenAccount) error {
	if tx.closed {
		return ErrTxClosed
	}
	if acc.Address.IsZero() {
		return fmt.Errorf("create account: address is zero")
	}
	if tx.Exists(acc.Address) {
		return fmt.Errorf("create %s: %w", acc.Address, ErrAccountExists)
	}
	if err := tx.checkWrite(acc.Address); err != nil {
		return fmt.Errorf("create %s: %w", acc.Address, err)
	}
	tx.set(acc)
	return nil
}

// Transfer moves amount between two accounts of the same mint. authority
// must own the source account.
func (tx *Tx) Transfer(from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	if tx.closed {
		return ErrTxClosed
	}
	src, err := tx.Account(from)
	if err != nil {
		return fmt.Errorf("transfer source: %w", err)
	}
	dst, err := tx.Account(to)
	if err != nil {
		return fmt.Errorf("transfer destination: %w", err)
	}
	if err := tx.checkWrite(from, to); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("source %s owned by %s, not %s: %w", from, src.Owner, authority, ErrOwnerMismatch)
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("source mint %s, destination mint %s: %w", src.Mint, dst.Mint, ErrMintMismatch)
	}
	if src.Amount < amount {
		return fmt.Errorf("source %s holds %d, need %d: %w", from, src.Amount, amount, ErrInsufficientFunds)
	}
	if from.Equals(to) {
		return nil
	}
	if dst.Amount > ^uint64(0)-amount {
		return fmt.Errorf("destination %s: %w", to, ErrOverflow)
	}
	src.Amount -= amount
	dst.Amount += amount
	tx.set(src)
	tx.set(dst)
	return nil
}

func (tx *Tx) set(acc TokenAccount) {
	prev, inTx := tx.dirty[acc.Address]
	tx.journal = append(tx.journal, journalEntry{addr: acc.Address, prev: prev, wasInTx: inTx})
	tx.dirty[acc.Address] = acc
}

func (tx *Tx) Savepoint() Savepoint {
	return Savepoint(len(tx.journal))
}

// RollbackTo undoes every change made after sp.
func (tx *Tx) RollbackTo(sp Savepoint) error {
	if tx.closed {
		return ErrTxClosed
	}
	if int(sp) < 0 || int(sp) > len(tx.journal) {
		return fmt.Errorf("invalid savepoint %d", sp)
	}
	for i := len(tx.journal) - 1; i >= int(sp); i-- {
		e := tx.journal[i]
		if e.wasInTx {
			tx.dirty[e.addr] = e.prev
		} else {
			delete(tx.dirty, e.addr)
		}
	}
	tx.journal = tx.journal[:sp]
	return nil
}

// Changes returns the accounts modified by the transaction.
func (tx *Tx) Changes() []TokenAccount {
	out := make([]TokenAccount, 0, len(tx.dirty))
	for _, acc := range tx.dirty {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out
}

func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	tx.l.mu.Lock()
	defer tx.l.mu.Unlock()
	for addr, acc := range tx.dirty {
		tx.l.accounts[addr] = acc
	}
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a no-op.
func (tx *Tx) Rollback() {
	tx.closed = true
	tx.dirty = nil
	tx.journal = nil
}
