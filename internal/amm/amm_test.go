package amm

import (
	"context"
	"testing"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ammID  = solana.MustPublicKeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")
	hostID = solana.MustPublicKeyFromBase58("EzUq3vK7g8JvTLQzKvNAzBCjRz6wNJaZMWZPQVRz7nJq")
	usdc   = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistryFromConfigs(ammID, []PoolConfig{{
		Name:           "USDC-SOL",
		SwapAccount:    solana.NewWallet().PublicKey().String(),
		TokenMintA:     usdc.String(),
		TokenMintB:     solana.SolMint.String(),
		FeeNumerator:   30,
		FeeDenominator: 10_000,
		ReserveA:       1_000_000_000,
		ReserveB:       1_000_000_000,
	}})
	require.NoError(t, err)
	return r
}

func TestCalculateSwapOutput(t *testing.T) {
	out, impact, err := CalculateSwapOutput(1000, 1_000_000, 1_000_000, 30, 10_000)
	require.NoError(t, err)
	// in' = 997, out = 997*1e6 / (1e6+997) = 996
	assert.Equal(t, uint64(996), out)
	assert.Greater(t, impact, 0.0)

	_, _, err = CalculateSwapOutput(0, 1, 1, 0, 1)
	assert.Error(t, err)
	_, _, err = CalculateSwapOutput(1, 1, 1, 2, 1)
	assert.Error(t, err)
}

func TestApplySlippageAndFeeBps(t *testing.T) {
	assert.Equal(t, uint64(990), ApplySlippage(1000, 100))
	assert.Equal(t, uint64(0), ApplySlippage(1000, 10_000))
	assert.Equal(t, uint16(30), CalculateFeeBps(30, 10_000))
	assert.Equal(t, uint16(0), CalculateFeeBps(1, 0))
}

func TestSwapData_Layout(t *testing.T) {
	data := EncodeSwapData(997_000, 500)
	require.Len(t, data, 17)
	assert.Equal(t, SwapInstruction, data[0])

	in, minOut, err := DecodeSwapData(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(997_000), in)
	assert.Equal(t, uint64(500), minOut)

	_, _, err = DecodeSwapData(data[:16])
	assert.Error(t, err)
	data[0] = 9
	_, _, err = DecodeSwapData(data)
	assert.Error(t, err)
}

func TestRegistry_Lookups(t *testing.T) {
	r := testRegistry(t)
	pool, err := r.FindPoolByMints(solana.SolMint, usdc)
	require.NoError(t, err)
	assert.Equal(t, "USDC-SOL", pool.Name)

	proved, err := solana.CreateProgramAddress(pool.AuthoritySeeds(), ammID)
	require.NoError(t, err)
	assert.Equal(t, pool.Authority, proved)

	_, err = r.FindPoolByName("nope")
	assert.ErrorIs(t, err, ErrPoolNotFound)

	aToB, err := DetermineSwapDirection(pool, usdc)
	require.NoError(t, err)
	assert.True(t, aToB)
}

type swapEnv struct {
	rt       *runtime.Runtime
	l        *ledger.Ledger
	pool     *Pool
	user     solana.PublicKey
	userUSDC solana.PublicKey
	userSOL  solana.PublicKey
}

func newSwapEnv(t *testing.T) *swapEnv {
	t.Helper()
	r := testRegistry(t)
	l := ledger.New()
	require.NoError(t, r.OpenVaults(l))

	rt, err := runtime.New(runtime.Config{ProgramID: hostID, Ledger: l, Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	require.NoError(t, rt.Register(NewProgram(r)))

	e := &swapEnv{rt: rt, l: l, pool: &r.Pools()[0], user: solana.NewWallet().PublicKey(),
		userUSDC: solana.NewWallet().PublicKey(), userSOL: solana.NewWallet().PublicKey()}
	require.NoError(t, l.Open(ledger.TokenAccount{Address: e.userUSDC, Owner: e.user, Mint: usdc, Amount: 10_000}))
	require.NoError(t, l.Open(ledger.TokenAccount{Address: e.userSOL, Owner: e.user, Mint: solana.SolMint}))
	return e
}

func (e *swapEnv) run(t *testing.T, amountIn, minOut uint64) error {
	ix, err := BuildSwapInstruction(e.pool, amountIn, minOut, e.user, e.userUSDC, e.userSOL, true)
	require.NoError(t, err)
	_, err = e.rt.Execute(context.Background(), runtime.Invocation{
		Signers:  []solana.PublicKey{e.user},
		Accounts: []solana.PublicKey{e.pool.SwapAccount, e.userUSDC, e.userSOL, e.pool.VaultA, e.pool.VaultB},
	}, func(x *runtime.Context) error {
		return x.Invoke(ix)
	})
	return err
}

func TestProgram_Swap(t *testing.T) {
	e := newSwapEnv(t)
	require.NoError(t, e.run(t, 10_000, 9_000))

	sol, err := e.l.Account(e.userSOL)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_969), sol.Amount)

	vaultA, err := e.l.Account(e.pool.VaultA)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_010_000), vaultA.Amount)
}

func TestProgram_SlippageAborts(t *testing.T) {
	e := newSwapEnv(t)
	err := e.run(t, 10_000, 10_000)
	assert.True(t, codes.Is(err, codes.SlippageExceeded))

	src, err := e.l.Account(e.userUSDC)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), src.Amount)
}

func TestProgram_RejectsForeignVaults(t *testing.T) {
	e := newSwapEnv(t)
	ix, err := BuildSwapInstruction(e.pool, 1_000, 0, e.user, e.userUSDC, e.userSOL, true)
	require.NoError(t, err)
	// both legs pointed at the same vault
	ix.Accounts()[5].PublicKey = e.pool.VaultA

	_, err = e.rt.Execute(context.Background(), runtime.Invocation{
		Signers:  []solana.PublicKey{e.user},
		Accounts: []solana.PublicKey{e.pool.SwapAccount, e.userUSDC, e.userSOL, e.pool.VaultA, e.pool.VaultB},
	}, func(x *runtime.Context) error {
		return x.Invoke(ix)
	})
	assert.True(t, codes.Is(err, codes.InvalidSwapCalldata))

	src, err := e.l.Account(e.userUSDC)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), src.Amount)
}

func TestProgram_SwapsInBothDirections(t *testing.T) {
	e := newSwapEnv(t)
	require.NoError(t, e.run(t, 10_000, 0))

	// SOL back to USDC through the same pool
	ix, err := BuildSwapInstruction(e.pool, 5_000, 1, e.user, e.userSOL, e.userUSDC, false)
	require.NoError(t, err)
	_, err = e.rt.Execute(context.Background(), runtime.Invocation{
		Signers:  []solana.PublicKey{e.user},
		Accounts: []solana.PublicKey{e.pool.SwapAccount, e.userUSDC, e.userSOL, e.pool.VaultA, e.pool.VaultB},
	}, func(x *runtime.Context) error {
		return x.Invoke(ix)
	})
	require.NoError(t, err)

	sol, err := e.l.Account(e.userSOL)
	require.NoError(t, err)
	assert.Equal(t, uint64(4_969), sol.Amount)
	usdcAcc, err := e.l.Account(e.userUSDC)
	require.NoError(t, err)
	assert.Greater(t, usdcAcc.Amount, uint64(4_900))
}
