package amm

import (
	"fmt"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/custody"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/gagliardetto/solana-go"
)

// Program executes swaps against the registry's pools inside the runtime.
type Program struct {
	registry *Registry
	custody  *custody.Adapter
}

func NewProgram(registry *Registry) *Program {
	return &Program{registry: registry, custody: custody.New()}
}

func (p *Program) ID() solana.PublicKey { return p.registry.programID }

// Process pulls amount_in from the user into the pool and pays the
// constant-product output back. Output below the instruction's minimum
// fails with SlippageExceeded.
func (p *Program) Process(x *runtime.Context, accounts []*solana.AccountMeta, data []byte) error {
	amountIn, minOut, err := DecodeSwapData(data)
	if err != nil {
		return codes.Wrap(codes.InvalidInstructionData, err)
	}
	if len(accounts) < swapAccountsLen {
		return codes.Wrap(codes.InvalidSwapCalldata, fmt.Errorf("need %d accounts, got %d", swapAccountsLen, len(accounts)))
	}

	pool, err := p.registry.FindBySwapAccount(accounts[0].PublicKey)
	if err != nil {
		return codes.Wrap(codes.InvalidSwapCalldata, err)
	}
	if !accounts[1].PublicKey.Equals(pool.Authority) {
		return codes.Wrap(codes.InvalidSwapCalldata, fmt.Errorf("pool authority mismatch"))
	}

	userAuthority := accounts[2].PublicKey
	userSource := accounts[3].PublicKey
	poolSource := accounts[4].PublicKey
	poolDest := accounts[5].PublicKey
	userDest := accounts[6].PublicKey

	switch {
	case poolSource.Equals(pool.VaultA) && poolDest.Equals(pool.VaultB):
	case poolSource.Equals(pool.VaultB) && poolDest.Equals(pool.VaultA):
	default:
		return codes.Wrap(codes.InvalidSwapCalldata, fmt.Errorf("vaults do not belong to pool %s", pool.Name))
	}

	reserveIn, err := p.custody.Balance(x, poolSource)
	if err != nil {
		return err
	}
	reserveOut, err := p.custody.Balance(x, poolDest)
	if err != nil {
		return err
	}
	out, _, err := CalculateSwapOutput(amountIn, reserveIn, reserveOut, pool.FeeNumerator, pool.FeeDenominator)
	if err != nil {
		return codes.Wrap(codes.SwapExecutionFailed, err)
	}
	if out < minOut {
		return codes.Wrap(codes.SlippageExceeded, fmt.Errorf("out %d below minimum %d", out, minOut))
	}

	if err := p.custody.Transfer(x, userSource, poolSource, custody.ExternalSigner(userAuthority), amountIn); err != nil {
		return codes.Wrap(codes.SwapExecutionFailed, err)
	}
	if err := p.custody.Transfer(x, poolDest, userDest, custody.SystemOwned(pool.AuthoritySeeds()...), out); err != nil {
		return codes.Wrap(codes.SwapExecutionFailed, err)
	}
	return nil
}
