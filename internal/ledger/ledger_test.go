package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	l          *Ledger
	alice, bob solana.PublicKey
	aliceUSDC  solana.PublicKey
	bobUSDC    solana.PublicKey
	aliceSOL   solana.PublicKey
	usdc, wsol solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		l:         New(),
		alice:     solana.NewWallet().PublicKey(),
		bob:       solana.NewWallet().PublicKey(),
		aliceUSDC: solana.NewWallet().PublicKey(),
		bobUSDC:   solana.NewWallet().PublicKey(),
		aliceSOL:  solana.NewWallet().PublicKey(),
		usdc:      solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		wsol:      solana.SolMint,
	}
	require.NoError(t, f.l.Open(TokenAccount{Address: f.aliceUSDC, Owner: f.alice, Mint: f.usdc, Amount: 1000}))
	require.NoError(t, f.l.Open(TokenAccount{Address: f.bobUSDC, Owner: f.bob, Mint: f.usdc}))
	require.NoError(t, f.l.Open(TokenAccount{Address: f.aliceSOL, Owner: f.alice, Mint: f.wsol, Amount: 5}))
	return f
}

func balance(t *testing.T, l *Ledger, addr solana.PublicKey) uint64 {
	t.Helper()
	acc, err := l.Account(addr)
	require.NoError(t, err)
	return acc.Amount
}

func TestTx_TransferCommit(t *testing.T) {
	f := newFixture(t)

	tx := f.l.Begin()
	require.NoError(t, tx.Transfer(f.aliceUSDC, f.bobUSDC, 400, f.alice))

	// Not visible before commit.
	assert.Equal(t, uint64(1000), balance(t, f.l, f.aliceUSDC))

	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(600), balance(t, f.l, f.aliceUSDC))
	assert.Equal(t, uint64(400), balance(t, f.l, f.bobUSDC))
	assert.ErrorIs(t, tx.Commit(), ErrTxClosed)
}

func TestTx_TransferChecks(t *testing.T) {
	f := newFixture(t)
	tx := f.l.Begin()
	defer tx.Rollback()

	assert.ErrorIs(t, tx.Transfer(f.aliceUSDC, f.bobUSDC, 1, f.bob), ErrOwnerMismatch)
	assert.ErrorIs(t, tx.Transfer(f.aliceUSDC, f.bobUSDC, 1001, f.alice), ErrInsufficientFunds)
	assert.ErrorIs(t, tx.Transfer(f.aliceSOL, f.bobUSDC, 1, f.alice), ErrMintMismatch)
	assert.ErrorIs(t, tx.Transfer(solana.NewWallet().PublicKey(), f.bobUSDC, 1, f.alice), ErrAccountNotFound)
}

func TestTx_RollbackDiscardsEverything(t *testing.T) {
	f := newFixture(t)

	tx := f.l.Begin()
	require.NoError(t, tx.Transfer(f.aliceUSDC, f.bobUSDC, 400, f.alice))
	newAcc := solana.NewWallet().PublicKey()
	require.NoError(t, tx.Create(TokenAccount{Address: newAcc, Owner: f.bob, Mint: f.wsol}))
	tx.Rollback()

	assert.Equal(t, uint64(1000), balance(t, f.l, f.aliceUSDC))
	_, err := f.l.Account(newAcc)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTx_RollbackToSavepoint(t *testing.T) {
	f := newFixture(t)

	tx := f.l.Begin()
	require.NoError(t, tx.Transfer(f.aliceUSDC, f.bobUSDC, 100, f.alice))
	sp := tx.Savepoint()

	require.NoError(t, tx.Transfer(f.aliceUSDC, f.bobUSDC, 200, f.alice))
	created := solana.NewWallet().PublicKey()
	require.NoError(t, tx.Create(TokenAccount{Address: created, Owner: f.alice, Mint: f.usdc}))

	require.NoError(t, tx.RollbackTo(sp))
	assert.False(t, tx.Exists(created))

	acc, err := tx.Account(f.aliceUSDC)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), acc.Amount)

	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(900), balance(t, f.l, f.aliceUSDC))
	assert.Equal(t, uint64(100), balance(t, f.l, f.bobUSDC))
}

func TestTx_CreateDuplicate(t *testing.T) {
	f := newFixture(t)
	tx := f.l.Begin()
	defer tx.Rollback()

	err := tx.Create(TokenAccount{Address: f.bobUSDC, Owner: f.bob, Mint: f.usdc})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestLoadGenesis_DerivesAssociatedAddress(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	explicit := solana.NewWallet().PublicKey()
	body := `[
		{"owner": "` + owner.String() + `", "mint": "` + solana.SolMint.String() + `", "amount": 77},
		{"address": "` + explicit.String() + `", "owner": "` + owner.String() + `", "mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "amount": 5}
	]`
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	l := New()
	n, err := l.LoadGenesis(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ata, _, err := solana.FindAssociatedTokenAddress(owner, solana.SolMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), balance(t, l, ata))
	assert.Equal(t, uint64(5), balance(t, l, explicit))
}

func TestLedger_RestoreOverwritesAndAdds(t *testing.T) {
	f := newFixture(t)
	carol := TokenAccount{Address: solana.NewWallet().PublicKey(), Owner: solana.NewWallet().PublicKey(), Mint: f.usdc, Amount: 7}

	require.NoError(t, f.l.Restore([]TokenAccount{
		{Address: f.aliceUSDC, Owner: f.alice, Mint: f.usdc, Amount: 250},
		carol,
	}))
	assert.Equal(t, uint64(250), balance(t, f.l, f.aliceUSDC))
	assert.Equal(t, uint64(7), balance(t, f.l, carol.Address))
	assert.Equal(t, uint64(5), balance(t, f.l, f.aliceSOL))

	err := f.l.Restore([]TokenAccount{{Owner: f.alice, Mint: f.usdc, Amount: 1}, {Address: f.bobUSDC, Amount: 99}})
	assert.Error(t, err)
	assert.Equal(t, uint64(0), balance(t, f.l, f.bobUSDC))
}
