package amm

import (
	"github.com/gagliardetto/solana-go"
)

// SwapInstruction is the only instruction the pool program understands.
const SwapInstruction byte = 1

// Pool is a parsed, ready-to-use constant-product pool.
type Pool struct {
	Name           string
	ProgramID      solana.PublicKey
	SwapAccount    solana.PublicKey
	Authority      solana.PublicKey
	AuthorityBump  uint8
	TokenMintA     solana.PublicKey
	TokenMintB     solana.PublicKey
	VaultA         solana.PublicKey
	VaultB         solana.PublicKey
	FeeNumerator   uint64
	FeeDenominator uint64

	// Initial reserves opened in the ledger at startup.
	ReserveA uint64
	ReserveB uint64
}

// AuthoritySeeds proves Authority under ProgramID.
func (p *Pool) AuthoritySeeds() [][]byte {
	return append(authorityBaseSeeds(p.SwapAccount), []byte{p.AuthorityBump})
}

// Vaults returns (source, destination) vaults for a direction.
func (p *Pool) Vaults(aToB bool) (solana.PublicKey, solana.PublicKey) {
	if aToB {
		return p.VaultA, p.VaultB
	}
	return p.VaultB, p.VaultA
}

// Mints returns (input, output) mints for a direction.
func (p *Pool) Mints(aToB bool) (solana.PublicKey, solana.PublicKey) {
	if aToB {
		return p.TokenMintA, p.TokenMintB
	}
	return p.TokenMintB, p.TokenMintA
}

// PoolState is a snapshot of vault balances.
type PoolState struct {
	Pool     *Pool
	ReserveA uint64
	ReserveB uint64
}

// GetReserves returns reserves in the correct order for a swap direction
func (ps *PoolState) GetReserves(aToB bool) (reserveIn, reserveOut uint64) {
	if aToB {
		return ps.ReserveA, ps.ReserveB
	}
	return ps.ReserveB, ps.ReserveA
}

// SwapQuote contains quote details for a swap
type SwapQuote struct {
	PoolName     string           `json:"pool"`
	InputMint    solana.PublicKey `json:"input_mint"`
	OutputMint   solana.PublicKey `json:"output_mint"`
	AmountIn     uint64           `json:"amount_in"`
	AmountOut    uint64           `json:"amount_out"`
	MinAmountOut uint64           `json:"min_amount_out"`
	FeeBps       uint16           `json:"fee_bps"`
	PriceImpact  float64          `json:"price_impact"`
	ReserveIn    uint64           `json:"reserve_in"`
	ReserveOut   uint64           `json:"reserve_out"`
}
