package runtime

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hostID   = solana.MustPublicKeyFromBase58("EzUq3vK7g8JvTLQzKvNAzBCjRz6wNJaZMWZPQVRz7nJq")
	calleeID = solana.MustPublicKeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")
	usdc     = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// transferProgram moves le64(data) from accounts[1] to accounts[2] with
// accounts[0] as authority, then fails when data has a trailing byte.
type transferProgram struct{}

func (transferProgram) ID() solana.PublicKey { return calleeID }

func (transferProgram) Process(x *Context, accounts []*solana.AccountMeta, data []byte) error {
	if len(accounts) < 3 || len(data) < 8 {
		return errors.New("bad instruction")
	}
	amount := binary.LittleEndian.Uint64(data)
	if err := x.Ledger().Transfer(accounts[1].PublicKey, accounts[2].PublicKey, amount, accounts[0].PublicKey); err != nil {
		return err
	}
	if len(data) > 8 {
		return codes.New(codes.SlippageExceeded)
	}
	return nil
}

type env struct {
	rt       *Runtime
	l        *ledger.Ledger
	store    *storage.MemoryStore
	authPDA  solana.PublicKey
	authBump uint8
	custody  solana.PublicKey
	sink     solana.PublicKey
}

func newEnv(t *testing.T) *env {
	t.Helper()
	l := ledger.New()
	store := storage.NewMemoryStore()
	rt, err := New(Config{ProgramID: hostID, Ledger: l, Store: store})
	require.NoError(t, err)
	require.NoError(t, rt.Register(transferProgram{}))

	pda, bump, err := address.Config(hostID)
	require.NoError(t, err)

	e := &env{rt: rt, l: l, store: store, authPDA: pda, authBump: bump,
		custody: solana.NewWallet().PublicKey(), sink: solana.NewWallet().PublicKey()}
	require.NoError(t, l.Open(ledger.TokenAccount{Address: e.custody, Owner: pda, Mint: usdc, Amount: 1000}))
	require.NoError(t, l.Open(ledger.TokenAccount{Address: e.sink, Owner: solana.NewWallet().PublicKey(), Mint: usdc}))
	return e
}

func (e *env) amount(t *testing.T, addr solana.PublicKey) uint64 {
	acc, err := e.l.Account(addr)
	require.NoError(t, err)
	return acc.Amount
}

func transferIx(e *env, amount uint64, fail bool) solana.Instruction {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, amount)
	if fail {
		data = append(data, 1)
	}
	return solana.NewInstruction(calleeID, []*solana.AccountMeta{
		{PublicKey: e.authPDA, IsSigner: true},
		{PublicKey: e.custody, IsWritable: true},
		{PublicKey: e.sink, IsWritable: true},
	}, data)
}

func TestExecute_CommitsOnSuccess(t *testing.T) {
	e := newEnv(t)
	orderAddr, _, err := address.Order(hostID, 1)
	require.NoError(t, err)

	committed, err := e.rt.Execute(context.Background(), Invocation{
		Accounts: []solana.PublicKey{e.custody, e.sink, orderAddr},
	}, func(x *Context) error {
		if err := x.Invoke(transferIx(e, 300, false), address.ConfigSignerSeeds(e.authBump)); err != nil {
			return err
		}
		return x.CreateOrder(&models.SettlementOrder{OrderID: 1, Address: orderAddr, GrossAmount: 300})
	})
	require.NoError(t, err)
	require.Len(t, committed.Batch.Created, 1)
	assert.Len(t, committed.Accounts, 2)

	assert.Equal(t, uint64(700), e.amount(t, e.custody))
	assert.Equal(t, uint64(300), e.amount(t, e.sink))
	_, err = e.store.GetOrder(context.Background(), 1)
	assert.NoError(t, err)
}

func TestExecute_DiscardsOnError(t *testing.T) {
	e := newEnv(t)
	orderAddr, _, err := address.Order(hostID, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = e.rt.Execute(context.Background(), Invocation{
		Accounts: []solana.PublicKey{e.custody, e.sink, orderAddr},
	}, func(x *Context) error {
		require.NoError(t, x.CreateOrder(&models.SettlementOrder{OrderID: 1, Address: orderAddr}))
		require.NoError(t, x.Invoke(transferIx(e, 300, false), address.ConfigSignerSeeds(e.authBump)))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1000), e.amount(t, e.custody))
	_, err = e.store.GetOrder(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateOrder_DuplicateAndLocking(t *testing.T) {
	e := newEnv(t)
	orderAddr, _, err := address.Order(hostID, 5)
	require.NoError(t, err)
	inv := Invocation{Accounts: []solana.PublicKey{orderAddr}}

	_, err = e.rt.Execute(context.Background(), inv, func(x *Context) error {
		return x.CreateOrder(&models.SettlementOrder{OrderID: 5, Address: orderAddr, GrossAmount: 1})
	})
	require.NoError(t, err)

	_, err = e.rt.Execute(context.Background(), inv, func(x *Context) error {
		return x.CreateOrder(&models.SettlementOrder{OrderID: 5, Address: orderAddr, GrossAmount: 2})
	})
	assert.True(t, codes.Is(err, codes.OrderAlreadyExists))

	o, err := e.store.GetOrder(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), o.GrossAmount)

	_, err = e.rt.Execute(context.Background(), Invocation{}, func(x *Context) error {
		return x.CreateOrder(&models.SettlementOrder{OrderID: 6, Address: orderAddr})
	})
	assert.ErrorIs(t, err, ErrAccountNotLocked)
}

func TestInvoke_PrivilegeChecks(t *testing.T) {
	e := newEnv(t)

	_, err := e.rt.Execute(context.Background(), Invocation{
		Accounts: []solana.PublicKey{e.custody, e.sink},
	}, func(x *Context) error {
		// No seeds: the program authority is not a signer of this call.
		return x.Invoke(transferIx(e, 1, false))
	})
	assert.ErrorIs(t, err, ErrMissingSignature)

	_, err = e.rt.Execute(context.Background(), Invocation{
		Accounts: []solana.PublicKey{e.custody},
	}, func(x *Context) error {
		return x.Invoke(transferIx(e, 1, false), address.ConfigSignerSeeds(e.authBump))
	})
	assert.ErrorIs(t, err, ErrAccountNotLocked)

	_, err = e.rt.Execute(context.Background(), Invocation{}, func(x *Context) error {
		return x.Invoke(solana.NewInstruction(solana.NewWallet().PublicKey(), nil, nil))
	})
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestInvoke_CalleeFailureLeavesNoChanges(t *testing.T) {
	e := newEnv(t)

	_, err := e.rt.Execute(context.Background(), Invocation{
		Accounts: []solana.PublicKey{e.custody, e.sink},
	}, func(x *Context) error {
		err := x.Invoke(transferIx(e, 400, true), address.ConfigSignerSeeds(e.authBump))
		require.True(t, codes.Is(err, codes.SlippageExceeded))

		acc, aerr := x.Ledger().Account(e.custody)
		require.NoError(t, aerr)
		assert.Equal(t, uint64(1000), acc.Amount)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), e.amount(t, e.custody))
}

func TestSavepoint_RestoresStagedOrders(t *testing.T) {
	e := newEnv(t)
	orderAddr, _, err := address.Order(hostID, 9)
	require.NoError(t, err)

	_, err = e.rt.Execute(context.Background(), Invocation{
		Accounts: []solana.PublicKey{e.custody, e.sink, orderAddr},
	}, func(x *Context) error {
		require.NoError(t, x.CreateOrder(&models.SettlementOrder{OrderID: 9, Address: orderAddr}))
		sp := x.Savepoint()

		require.NoError(t, x.Invoke(transferIx(e, 250, false), address.ConfigSignerSeeds(e.authBump)))
		o, err := x.Order(9)
		require.NoError(t, err)
		o.Status = models.StatusCompleted
		require.NoError(t, x.PutOrder(o))

		require.NoError(t, x.RollbackTo(sp))
		o, err = x.Order(9)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, o.Status)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), e.amount(t, e.custody))
}

func TestExecute_SerializesSameAccount(t *testing.T) {
	e := newEnv(t)
	inv := Invocation{Accounts: []solana.PublicKey{e.custody, e.sink}}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.rt.Execute(context.Background(), inv, func(x *Context) error {
				return x.Invoke(transferIx(e, 10, false), address.ConfigSignerSeeds(e.authBump))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(900), e.amount(t, e.custody))
	assert.Equal(t, uint64(100), e.amount(t, e.sink))
}

func TestExecute_CancelWhileWaitingForLock(t *testing.T) {
	e := newEnv(t)
	inv := Invocation{Accounts: []solana.PublicKey{e.custody}}

	entered := make(chan struct{})
	unblock := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.rt.Execute(context.Background(), inv, func(x *Context) error {
			close(entered)
			<-unblock
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.rt.Execute(ctx, inv, func(x *Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(unblock)
	<-done
}

func TestInitConfig_OnlyOnce(t *testing.T) {
	e := newEnv(t)
	inv := Invocation{Accounts: []solana.PublicKey{e.authPDA}}

	_, err := e.rt.Execute(context.Background(), inv, func(x *Context) error {
		_, err := x.Config()
		require.True(t, codes.Is(err, codes.NotInitialized))
		return x.InitConfig(&models.GlobalConfig{FeeBps: 30, Bump: e.authBump})
	})
	require.NoError(t, err)

	_, err = e.rt.Execute(context.Background(), inv, func(x *Context) error {
		return x.InitConfig(&models.GlobalConfig{FeeBps: 10})
	})
	assert.True(t, codes.Is(err, codes.AlreadyInitialized))

	cfg, err := e.store.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(30), cfg.FeeBps)
}

// orderProgram marks order le64(data) completed without being handed its
// address.
type orderProgram struct{ id solana.PublicKey }

func (p orderProgram) ID() solana.PublicKey { return p.id }

func (p orderProgram) Process(x *Context, _ []*solana.AccountMeta, data []byte) error {
	o, err := x.Order(binary.LittleEndian.Uint64(data))
	if err != nil {
		return err
	}
	o.Status = models.StatusCompleted
	return x.PutOrder(o)
}

func TestInvoke_CalleeWritesOnlyWritableMetas(t *testing.T) {
	e := newEnv(t)
	seeds := address.ConfigSignerSeeds(e.authBump)

	t.Run("read-only meta", func(t *testing.T) {
		ix := solana.NewInstruction(calleeID, []*solana.AccountMeta{
			{PublicKey: e.authPDA, IsSigner: true},
			{PublicKey: e.custody},
			{PublicKey: e.sink, IsWritable: true},
		}, binary.LittleEndian.AppendUint64(nil, 100))

		_, err := e.rt.Execute(context.Background(), Invocation{
			Accounts: []solana.PublicKey{e.custody, e.sink},
		}, func(x *Context) error {
			return x.Invoke(ix, seeds)
		})
		assert.ErrorIs(t, err, ErrReadOnlyAccount)
		assert.Equal(t, uint64(1000), e.amount(t, e.custody))
		assert.Equal(t, uint64(0), e.amount(t, e.sink))
	})

	t.Run("locked account not passed", func(t *testing.T) {
		recordID := solana.NewWallet().PublicKey()
		require.NoError(t, e.rt.Register(orderProgram{id: recordID}))
		orderAddr, _, err := address.Order(hostID, 11)
		require.NoError(t, err)

		_, err = e.rt.Execute(context.Background(), Invocation{
			Accounts: []solana.PublicKey{orderAddr},
		}, func(x *Context) error {
			require.NoError(t, x.CreateOrder(&models.SettlementOrder{OrderID: 11, Address: orderAddr}))
			return x.Invoke(solana.NewInstruction(recordID, nil, binary.LittleEndian.AppendUint64(nil, 11)))
		})
		assert.ErrorIs(t, err, ErrReadOnlyAccount)
		_, err = e.store.GetOrder(context.Background(), 11)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("caller keeps write access after invoke", func(t *testing.T) {
		_, err := e.rt.Execute(context.Background(), Invocation{
			Accounts: []solana.PublicKey{e.custody, e.sink},
		}, func(x *Context) error {
			if err := x.Invoke(transferIx(e, 10, false), seeds); err != nil {
				return err
			}
			return x.Ledger().Transfer(e.custody, e.sink, 5, e.authPDA)
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(985), e.amount(t, e.custody))
	})
}

func TestExecute_PersistsAccountsForRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.rt.Execute(ctx, Invocation{Accounts: []solana.PublicKey{e.custody, e.sink}}, func(x *Context) error {
		return x.Invoke(transferIx(e, 400, false), address.ConfigSignerSeeds(e.authBump))
	})
	require.NoError(t, err)

	persisted, err := e.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 2)

	// A fresh ledger rebuilt from genesis, then restored from the same store.
	l := ledger.New()
	require.NoError(t, l.Open(ledger.TokenAccount{Address: e.custody, Owner: e.authPDA, Mint: usdc, Amount: 1000}))
	rt, err := New(Config{ProgramID: hostID, Ledger: l, Store: e.store})
	require.NoError(t, err)

	n, err := rt.RestoreLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	custody, err := l.Account(e.custody)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), custody.Amount)
	sink, err := l.Account(e.sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), sink.Amount)
}

func TestExecute_RolledBackCallPersistsNoAccounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.rt.Execute(ctx, Invocation{Accounts: []solana.PublicKey{e.custody, e.sink}}, func(x *Context) error {
		return x.Invoke(transferIx(e, 400, true), address.ConfigSignerSeeds(e.authBump))
	})
	require.Error(t, err)

	persisted, err := e.store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}
