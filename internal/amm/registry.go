package amm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/gagliardetto/solana-go"
)

var ErrPoolNotFound = errors.New("pool not found")

// PoolConfig represents a pool entry in the JSON config. Empty vaults
// default to the authority's associated token accounts.
type PoolConfig struct {
	Name           string `json:"name"`
	SwapAccount    string `json:"swap_account"`
	TokenMintA     string `json:"token_mint_a"`
	TokenMintB     string `json:"token_mint_b"`
	VaultA         string `json:"vault_a,omitempty"`
	VaultB         string `json:"vault_b,omitempty"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
	ReserveA       uint64 `json:"reserve_a"`
	ReserveB       uint64 `json:"reserve_b"`
}

// Registry holds all configured pools of one program.
type Registry struct {
	programID solana.PublicKey
	pools     []Pool
}

// NewRegistry loads pools from a JSON file
func NewRegistry(programID solana.PublicKey, configPath string) (*Registry, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool config: %w", err)
	}
	var configs []PoolConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	return NewRegistryFromConfigs(programID, configs)
}

func NewRegistryFromConfigs(programID solana.PublicKey, configs []PoolConfig) (*Registry, error) {
	r := &Registry{programID: programID, pools: make([]Pool, 0, len(configs))}
	for i, cfg := range configs {
		pool, err := parsePoolConfig(programID, cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		if _, err := r.FindBySwapAccount(pool.SwapAccount); err == nil {
			return nil, fmt.Errorf("pool %d (%s): duplicate swap account %s", i, cfg.Name, pool.SwapAccount)
		}
		r.pools = append(r.pools, pool)
	}
	return r, nil
}

func authorityBaseSeeds(swapAccount solana.PublicKey) [][]byte {
	return [][]byte{[]byte(constants.SeedPoolVaults), swapAccount.Bytes()}
}

func parsePoolConfig(programID solana.PublicKey, cfg PoolConfig) (Pool, error) {
	if cfg.FeeDenominator == 0 || cfg.FeeNumerator >= cfg.FeeDenominator {
		return Pool{}, fmt.Errorf("invalid fee %d/%d", cfg.FeeNumerator, cfg.FeeDenominator)
	}
	swap, err := solana.PublicKeyFromBase58(cfg.SwapAccount)
	if err != nil {
		return Pool{}, fmt.Errorf("swap_account: %w", err)
	}
	mintA, err := solana.PublicKeyFromBase58(cfg.TokenMintA)
	if err != nil {
		return Pool{}, fmt.Errorf("token_mint_a: %w", err)
	}
	mintB, err := solana.PublicKeyFromBase58(cfg.TokenMintB)
	if err != nil {
		return Pool{}, fmt.Errorf("token_mint_b: %w", err)
	}
	if mintA.Equals(mintB) {
		return Pool{}, fmt.Errorf("token mints must differ")
	}

	authority, bump, err := solana.FindProgramAddress(authorityBaseSeeds(swap), programID)
	if err != nil {
		return Pool{}, fmt.Errorf("derive pool authority: %w", err)
	}

	vaultA, err := vaultAddress(cfg.VaultA, authority, mintA)
	if err != nil {
		return Pool{}, fmt.Errorf("vault_a: %w", err)
	}
	vaultB, err := vaultAddress(cfg.VaultB, authority, mintB)
	if err != nil {
		return Pool{}, fmt.Errorf("vault_b: %w", err)
	}

	return Pool{
		Name:           cfg.Name,
		ProgramID:      programID,
		SwapAccount:    swap,
		Authority:      authority,
		AuthorityBump:  bump,
		TokenMintA:     mintA,
		TokenMintB:     mintB,
		VaultA:         vaultA,
		VaultB:         vaultB,
		FeeNumerator:   cfg.FeeNumerator,
		FeeDenominator: cfg.FeeDenominator,
		ReserveA:       cfg.ReserveA,
		ReserveB:       cfg.ReserveB,
	}, nil
}

func vaultAddress(v string, authority, mint solana.PublicKey) (solana.PublicKey, error) {
	if v == "" {
		return address.AssociatedToken(authority, mint)
	}
	return solana.PublicKeyFromBase58(v)
}

// ProgramID is the pool program the registry belongs to.
func (r *Registry) ProgramID() solana.PublicKey { return r.programID }

// OpenVaults creates every pool vault in the ledger with its initial reserve.
func (r *Registry) OpenVaults(l *ledger.Ledger) error {
	for i := range r.pools {
		p := &r.pools[i]
		if err := l.Open(ledger.TokenAccount{Address: p.VaultA, Owner: p.Authority, Mint: p.TokenMintA, Amount: p.ReserveA}); err != nil {
			return fmt.Errorf("pool %s vault A: %w", p.Name, err)
		}
		if err := l.Open(ledger.TokenAccount{Address: p.VaultB, Owner: p.Authority, Mint: p.TokenMintB, Amount: p.ReserveB}); err != nil {
			return fmt.Errorf("pool %s vault B: %w", p.Name, err)
		}
	}
	return nil
}

// FindPoolByMints searches for a pool matching the given token pair
func (r *Registry) FindPoolByMints(mintA, mintB solana.PublicKey) (*Pool, error) {
	for i := range r.pools {
		pool := &r.pools[i]
		if (pool.TokenMintA.Equals(mintA) && pool.TokenMintB.Equals(mintB)) ||
			(pool.TokenMintA.Equals(mintB) && pool.TokenMintB.Equals(mintA)) {
			return pool, nil
		}
	}
	return nil, fmt.Errorf("mints %s / %s: %w", mintA, mintB, ErrPoolNotFound)
}

// FindPoolByName searches for a pool by its name
func (r *Registry) FindPoolByName(name string) (*Pool, error) {
	for i := range r.pools {
		if r.pools[i].Name == name {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrPoolNotFound)
}

func (r *Registry) FindBySwapAccount(swap solana.PublicKey) (*Pool, error) {
	for i := range r.pools {
		if r.pools[i].SwapAccount.Equals(swap) {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("swap account %s: %w", swap, ErrPoolNotFound)
}

// Pools returns all registered pools
func (r *Registry) Pools() []Pool {
	return r.pools
}

// State reads the current committed reserves of pool.
func (r *Registry) State(l *ledger.Ledger, pool *Pool) (*PoolState, error) {
	a, err := l.Account(pool.VaultA)
	if err != nil {
		return nil, fmt.Errorf("pool %s vault A: %w", pool.Name, err)
	}
	b, err := l.Account(pool.VaultB)
	if err != nil {
		return nil, fmt.Errorf("pool %s vault B: %w", pool.Name, err)
	}
	return &PoolState{Pool: pool, ReserveA: a.Amount, ReserveB: b.Amount}, nil
}

// Quote prices a swap of amountIn against the committed reserves.
func (r *Registry) Quote(l *ledger.Ledger, inputMint, outputMint solana.PublicKey, amountIn uint64, slippageBps uint16) (*SwapQuote, error) {
	pool, err := r.FindPoolByMints(inputMint, outputMint)
	if err != nil {
		return nil, err
	}
	aToB, err := DetermineSwapDirection(pool, inputMint)
	if err != nil {
		return nil, err
	}
	state, err := r.State(l, pool)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut := state.GetReserves(aToB)
	out, impact, err := CalculateSwapOutput(amountIn, reserveIn, reserveOut, pool.FeeNumerator, pool.FeeDenominator)
	if err != nil {
		return nil, err
	}
	return &SwapQuote{
		PoolName:     pool.Name,
		InputMint:    inputMint,
		OutputMint:   outputMint,
		AmountIn:     amountIn,
		AmountOut:    out,
		MinAmountOut: ApplySlippage(out, slippageBps),
		FeeBps:       CalculateFeeBps(pool.FeeNumerator, pool.FeeDenominator),
		PriceImpact:  impact,
		ReserveIn:    reserveIn,
		ReserveOut:   reserveOut,
	}, nil
}
