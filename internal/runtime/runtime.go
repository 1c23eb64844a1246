package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Program is a callee reachable through Context.Invoke.
type Program interface {
	ID() solana.PublicKey
	Process(x *Context, accounts []*solana.AccountMeta, data []byte) error
}

// Config holds the collaborators of a Runtime.
type Config struct {
	ProgramID solana.PublicKey
	Ledger    *ledger.Ledger
	Store     storage.Store
	Logger    *logrus.Logger
}

// Runtime executes calls of one program as all-or-nothing units over the
// ledger and the record store.
type Runtime struct {
	programID solana.PublicKey
	ledger    *ledger.Ledger
	store     storage.Store
	logger    *logrus.Logger
	locks     *lockTable

	mu       sync.RWMutex
	programs map[solana.PublicKey]Program
	nowFn    func() time.Time
}

func New(cfg Config) (*Runtime, error) {
	if cfg.ProgramID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Runtime{
		programID: cfg.ProgramID,
		ledger:    cfg.Ledger,
		store:     cfg.Store,
		logger:    cfg.Logger,
		locks:     newLockTable(),
		programs:  make(map[solana.PublicKey]Program),
		nowFn:     time.Now,
	}, nil
}

func (r *Runtime) ProgramID() solana.PublicKey { return r.programID }

func (r *Runtime) Ledger() *ledger.Ledger { return r.ledger }

func (r *Runtime) Store() storage.Store { return r.store }

// SetNowFunc replaces the clock. Intended for tests.
func (r *Runtime) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	r.mu.Lock()
	r.nowFn = fn
	r.mu.Unlock()
}

// Now reads the runtime clock.
func (r *Runtime) Now() time.Time { return r.now() }

func (r *Runtime) now() time.Time {
	r.mu.RLock()
	fn := r.nowFn
	r.mu.RUnlock()
	return fn()
}

// Register makes p callable through Invoke.
func (r *Runtime) Register(p Program) error {
	if p == nil || p.ID().IsZero() {
		return fmt.Errorf("register program: invalid program")
	}
	if p.ID().Equals(r.programID) {
		return fmt.Errorf("register program %s: reentrant registration of host program", p.ID())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[p.ID()]; ok {
		return fmt.Errorf("register program %s: already registered", p.ID())
	}
	r.programs[p.ID()] = p
	return nil
}

func (r *Runtime) program(id solana.PublicKey) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// RestoreLedger lays the account balances persisted by earlier calls over
// the ledger. Call it once at startup, before serving.
func (r *Runtime) RestoreLedger(ctx context.Context) (int, error) {
	accs, err := r.store.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list persisted accounts: %w", err)
	}
	if err := r.ledger.Restore(accs); err != nil {
		return 0, err
	}
	return len(accs), nil
}

// Invocation declares who signs a call and which accounts it may write.
// Every account the call touches must be listed; they are locked
// exclusively for the duration of the call.
type Invocation struct {
	Signers  []solana.PublicKey
	Accounts []solana.PublicKey
}

// Committed describes what a successful Execute persisted.
type Committed struct {
	Batch    storage.Batch
	Accounts []ledger.TokenAccount
}

// Execute runs fn with a fresh Context. A nil return commits every staged
// record and ledger change; any error discards all of them. Cancellation
// is honored only while waiting for locks.
func (r *Runtime) Execute(ctx context.Context, inv Invocation, fn func(x *Context) error) (*Committed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	release, err := r.locks.acquire(ctx, inv.Accounts)
	defer release()
	if err != nil {
		return nil, fmt.Errorf("acquire account locks: %w", err)
	}

	tx := r.ledger.Begin()
	defer tx.Rollback()

	// From here on the call either completes or unwinds; the caller going
	// away must not leave it half applied.
	runCtx := context.WithoutCancel(ctx)
	x := newContext(runCtx, r, inv, tx)

	if err := fn(x); err != nil {
		r.logger.WithError(err).Debug("invocation rolled back")
		return nil, err
	}

	changes := tx.Changes()
	batch := x.batch()
	batch.Accounts = changes
	if err := r.store.Apply(runCtx, batch); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, codes.Wrap(codes.OrderAlreadyExists, err)
		}
		return nil, fmt.Errorf("persist records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"orders_created":   len(batch.Created),
		"orders_updated":   len(batch.Updated),
		"config_written":   batch.Config != nil,
		"accounts_changed": len(changes),
	}).Debug("invocation committed")

	return &Committed{Batch: batch, Accounts: changes}, nil
}
