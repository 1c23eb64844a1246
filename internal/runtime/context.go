package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotLocked = errors.New("account not declared by invocation")
	ErrReadOnlyAccount  = errors.New("account not writable by this program")
	ErrMissingSignature = errors.New("missing required signature")
	ErrProgramNotFound  = errors.New("program not registered")
	ErrMaxDepth         = errors.New("max invoke depth exceeded")
)

type stagedOrder struct {
	order   *models.SettlementOrder
	created bool
	dirty   bool
}

// state is shared between a Context and every nested Invoke.
type state struct {
	ctx    context.Context
	rt     *Runtime
	tx     *ledger.Tx
	locked map[solana.PublicKey]bool

	config       *models.GlobalConfig
	configLoaded bool
	configDirty  bool
	orders       map[uint64]*stagedOrder
}

// Context is the view of one executing program over the current call.
// writable is nil for the top-level program, which may write every locked
// account; a callee may write only the metas passed to it as writable.
type Context struct {
	*state
	program  solana.PublicKey
	signers  map[solana.PublicKey]bool
	writable map[solana.PublicKey]bool
	depth    int
}

func newContext(ctx context.Context, rt *Runtime, inv Invocation, tx *ledger.Tx) *Context {
	st := &state{
		ctx:    ctx,
		rt:     rt,
		tx:     tx,
		locked: make(map[solana.PublicKey]bool, len(inv.Accounts)),
		orders: make(map[uint64]*stagedOrder),
	}
	for _, a := range inv.Accounts {
		st.locked[a] = true
	}
	signers := make(map[solana.PublicKey]bool, len(inv.Signers))
	for _, s := range inv.Signers {
		signers[s] = true
	}
	x := &Context{state: st, program: rt.programID, signers: signers}
	tx.SetWriteGuard(x.checkWritable)
	return x
}

func (x *Context) Context() context.Context { return x.ctx }

func (x *Context) Ledger() *ledger.Tx { return x.tx }

// Now reads the runtime clock. It is not frozen for the call.
func (x *Context) Now() time.Time { return x.rt.now() }

// ProgramID is the program currently executing.
func (x *Context) ProgramID() solana.PublicKey { return x.program }

func (x *Context) IsSigner(pk solana.PublicKey) bool { return x.signers[pk] }

func (x *Context) RequireSigner(pk solana.PublicKey) error {
	if !x.signers[pk] {
		return fmt.Errorf("%s: %w", pk, ErrMissingSignature)
	}
	return nil
}

// RequireLocked fails unless every address was declared by the invocation.
func (x *Context) RequireLocked(addrs ...solana.PublicKey) error {
	for _, a := range addrs {
		if !x.locked[a] {
			return fmt.Errorf("%s: %w", a, ErrAccountNotLocked)
		}
	}
	return nil
}

// RequireWritable fails unless the executing program may modify every
// address.
func (x *Context) RequireWritable(addrs ...solana.PublicKey) error {
	for _, a := range addrs {
		if err := x.checkWritable(a); err != nil {
			return err
		}
	}
	return nil
}

func (x *Context) checkWritable(a solana.PublicKey) error {
	if !x.locked[a] {
		return fmt.Errorf("%s: %w", a, ErrAccountNotLocked)
	}
	if x.writable != nil && !x.writable[a] {
		return fmt.Errorf("%s: %w", a, ErrReadOnlyAccount)
	}
	return nil
}

// Config returns a copy of the staged configuration, loading it on first use.
func (x *Context) Config() (*models.GlobalConfig, error) {
	if !x.configLoaded {
		c, err := x.rt.store.GetConfig(x.ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, codes.New(codes.NotInitialized)
		}
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		x.config = c
		x.configLoaded = true
	}
	if x.config == nil {
		return nil, codes.New(codes.NotInitialized)
	}
	c := *x.config
	return &c, nil
}

// InitConfig stages the first configuration write.
func (x *Context) InitConfig(c *models.GlobalConfig) error {
	if _, err := x.Config(); err == nil {
		return codes.New(codes.AlreadyInitialized)
	} else if !codes.Is(err, codes.NotInitialized) {
		return err
	}
	return x.stageConfig(c)
}

// PutConfig replaces an existing configuration.
func (x *Context) PutConfig(c *models.GlobalConfig) error {
	if _, err := x.Config(); err != nil {
		return err
	}
	return x.stageConfig(c)
}

func (x *Context) stageConfig(c *models.GlobalConfig) error {
	addr, _, err := address.Config(x.rt.programID)
	if err != nil {
		return err
	}
	if err := x.RequireWritable(addr); err != nil {
		return err
	}
	cp := *c
	x.config = &cp
	x.configLoaded = true
	x.configDirty = true
	return nil
}

// CreateOrder stages a new order. The id is insert-if-absent.
func (x *Context) CreateOrder(o *models.SettlementOrder) error {
	if err := x.RequireWritable(o.Address); err != nil {
		return err
	}
	if _, err := x.Order(o.OrderID); err == nil {
		return codes.Wrap(codes.OrderAlreadyExists, fmt.Errorf("order %d", o.OrderID))
	} else if !codes.Is(err, codes.OrderNotFound) {
		return err
	}
	x.orders[o.OrderID] = &stagedOrder{order: o.Clone(), created: true, dirty: true}
	return nil
}

// Order returns a copy of the staged or stored order.
func (x *Context) Order(orderID uint64) (*models.SettlementOrder, error) {
	if s, ok := x.orders[orderID]; ok {
		return s.order.Clone(), nil
	}
	o, err := x.rt.store.GetOrder(x.ctx, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, codes.Wrap(codes.OrderNotFound, fmt.Errorf("order %d", orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	x.orders[orderID] = &stagedOrder{order: o}
	return o.Clone(), nil
}

// PutOrder stages an update of an existing order.
func (x *Context) PutOrder(o *models.SettlementOrder) error {
	if err := x.RequireWritable(o.Address); err != nil {
		return err
	}
	if _, err := x.Order(o.OrderID); err != nil {
		return err
	}
	s := x.orders[o.OrderID]
	s.order = o.Clone()
	s.dirty = true
	return nil
}

// Savepoint captures ledger and staged record state.
type Savepoint struct {
	ledger       ledger.Savepoint
	config       *models.GlobalConfig
	configLoaded bool
	configDirty  bool
	orders       map[uint64]stagedOrder
}

func (x *Context) Savepoint() Savepoint {
	sp := Savepoint{
		ledger:       x.tx.Savepoint(),
		configLoaded: x.configLoaded,
		configDirty:  x.configDirty,
		orders:       make(map[uint64]stagedOrder, len(x.orders)),
	}
	if x.config != nil {
		c := *x.config
		sp.config = &c
	}
	for id, s := range x.orders {
		sp.orders[id] = stagedOrder{order: s.order.Clone(), created: s.created, dirty: s.dirty}
	}
	return sp
}

// RollbackTo undoes every change made after sp was taken.
func (x *Context) RollbackTo(sp Savepoint) error {
	if err := x.tx.RollbackTo(sp.ledger); err != nil {
		return err
	}
	x.config = sp.config
	x.configLoaded = sp.configLoaded
	x.configDirty = sp.configDirty
	x.orders = make(map[uint64]*stagedOrder, len(sp.orders))
	for id, s := range sp.orders {
		s := s
		x.orders[id] = &s
	}
	return nil
}

// Invoke runs a registered program with the given instruction. Signer
// metas must be signers of this call or program addresses derived from
// signerSeeds under the calling program. Writable metas must be writable
// by the caller; the callee may write nothing else. A failing callee leaves
// no changes behind.
func (x *Context) Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error {
	if x.depth+1 > constants.MaxInvokeDepth {
		return ErrMaxDepth
	}
	calleeID := ix.ProgramID()
	callee, ok := x.rt.program(calleeID)
	if !ok {
		return fmt.Errorf("%s: %w", calleeID, ErrProgramNotFound)
	}

	pdaSigners := make(map[solana.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		pda, err := solana.CreateProgramAddress(seeds, x.program)
		if err != nil {
			return fmt.Errorf("invoke %s: signer seeds: %w", calleeID, err)
		}
		pdaSigners[pda] = true
	}

	metas := ix.Accounts()
	signers := make(map[solana.PublicKey]bool)
	writable := make(map[solana.PublicKey]bool)
	for _, m := range metas {
		if m == nil {
			return fmt.Errorf("invoke %s: nil account meta", calleeID)
		}
		if m.IsSigner {
			if !x.signers[m.PublicKey] && !pdaSigners[m.PublicKey] {
				return fmt.Errorf("invoke %s: signer privilege escalated for %s: %w", calleeID, m.PublicKey, ErrMissingSignature)
			}
			signers[m.PublicKey] = true
		}
		if m.IsWritable {
			if err := x.checkWritable(m.PublicKey); err != nil {
				return fmt.Errorf("invoke %s: writable %w", calleeID, err)
			}
			writable[m.PublicKey] = true
		}
	}

	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("invoke %s: instruction data: %w", calleeID, err)
	}

	child := &Context{state: x.state, program: calleeID, signers: signers, writable: writable, depth: x.depth + 1}
	sp := x.Savepoint()
	prev := x.tx.SetWriteGuard(child.checkWritable)
	err = callee.Process(child, metas, data)
	x.tx.SetWriteGuard(prev)
	if err != nil {
		if rbErr := x.RollbackTo(sp); rbErr != nil {
			return fmt.Errorf("invoke %s: %w (rollback: %v)", calleeID, err, rbErr)
		}
		return err
	}
	return nil
}

func (x *Context) batch() storage.Batch {
	var b storage.Batch
	if x.configDirty && x.config != nil {
		c := *x.config
		b.Config = &c
	}
	ids := make([]uint64, 0, len(x.orders))
	for id := range x.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s := x.orders[id]
		if !s.dirty {
			continue
		}
		if s.created {
			b.Created = append(b.Created, s.order.Clone())
		} else {
			b.Updated = append(b.Updated, s.order.Clone())
		}
	}
	return b
}
