package custody

import (
	"context"
	"testing"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	programID = solana.MustPublicKeyFromBase58("EzUq3vK7g8JvTLQzKvNAzBCjRz6wNJaZMWZPQVRz7nJq")
	usdc      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func setup(t *testing.T) (*runtime.Runtime, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	rt, err := runtime.New(runtime.Config{ProgramID: programID, Ledger: l, Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	return rt, l
}

func TestTransfer_ExternalSignerMustSign(t *testing.T) {
	rt, l := setup(t)
	user := solana.NewWallet().PublicKey()
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()
	require.NoError(t, l.Open(ledger.TokenAccount{Address: src, Owner: user, Mint: usdc, Amount: 50}))
	require.NoError(t, l.Open(ledger.TokenAccount{Address: dst, Owner: programID, Mint: usdc}))

	a := New()
	_, err := rt.Execute(context.Background(), runtime.Invocation{Accounts: []solana.PublicKey{src, dst}}, func(x *runtime.Context) error {
		return a.Transfer(x, src, dst, ExternalSigner(user), 10)
	})
	assert.ErrorIs(t, err, ErrNotSigner)

	_, err = rt.Execute(context.Background(), runtime.Invocation{
		Signers:  []solana.PublicKey{user},
		Accounts: []solana.PublicKey{src, dst},
	}, func(x *runtime.Context) error {
		return a.Transfer(x, src, dst, ExternalSigner(user), 10)
	})
	require.NoError(t, err)

	acc, err := l.Account(dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acc.Amount)
}

func TestTransfer_SystemOwnedProvenBySeeds(t *testing.T) {
	rt, l := setup(t)
	authority, bump, err := address.Config(programID)
	require.NoError(t, err)

	custody := solana.NewWallet().PublicKey()
	out := solana.NewWallet().PublicKey()
	require.NoError(t, l.Open(ledger.TokenAccount{Address: custody, Owner: authority, Mint: usdc, Amount: 100}))
	require.NoError(t, l.Open(ledger.TokenAccount{Address: out, Owner: solana.NewWallet().PublicKey(), Mint: usdc}))

	a := New()
	inv := runtime.Invocation{Accounts: []solana.PublicKey{custody, out}}

	_, err = rt.Execute(context.Background(), inv, func(x *runtime.Context) error {
		return a.Transfer(x, custody, out, SystemOwned(address.ConfigSignerSeeds(bump)...), 60)
	})
	require.NoError(t, err)

	// Seeds of a different address do not own the custody account.
	_, err = rt.Execute(context.Background(), inv, func(x *runtime.Context) error {
		_, orderBump, err := address.Order(programID, 1)
		require.NoError(t, err)
		seeds := append(address.OrderSeeds(1), []byte{orderBump})
		return a.Transfer(x, custody, out, SystemOwned(seeds...), 10)
	})
	assert.ErrorIs(t, err, ledger.ErrOwnerMismatch)

	acc, err := l.Account(custody)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), acc.Amount)
}

func TestEnsureAccount_InitIfNeeded(t *testing.T) {
	rt, l := setup(t)
	owner := solana.NewWallet().PublicKey()
	ata, err := address.AssociatedToken(owner, usdc)
	require.NoError(t, err)

	a := New()
	_, err = rt.Execute(context.Background(), runtime.Invocation{Accounts: []solana.PublicKey{ata}}, func(x *runtime.Context) error {
		got, err := a.EnsureAccount(x, owner, usdc)
		require.NoError(t, err)
		assert.Equal(t, ata, got)

		again, err := a.EnsureAccount(x, owner, usdc)
		require.NoError(t, err)
		assert.Equal(t, ata, again)

		bal, err := a.Balance(x, ata)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	})
	require.NoError(t, err)

	acc, err := l.Account(ata)
	require.NoError(t, err)
	assert.Equal(t, owner, acc.Owner)
}
