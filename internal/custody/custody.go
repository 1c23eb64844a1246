package custody

import (
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnknownAuthority = errors.New("unknown authority kind")
	ErrNotSigner        = errors.New("authority did not sign the call")
	ErrInvalidSeeds     = errors.New("seeds do not prove a program address")
)

// Adapter moves value between ledger accounts on behalf of the executing
// program. It does not retry and does not translate ledger errors.
type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

// Resolve returns the key that the authority stands for in this call.
func (a *Adapter) Resolve(x *runtime.Context, auth Authority) (solana.PublicKey, error) {
	switch auth.Kind {
	case KindExternalSigner:
		if !x.IsSigner(auth.Key) {
			return solana.PublicKey{}, fmt.Errorf("%s: %w", auth.Key, ErrNotSigner)
		}
		return auth.Key, nil
	case KindSystemOwned:
		pda, err := solana.CreateProgramAddress(auth.Seeds, x.ProgramID())
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
		}
		return pda, nil
	default:
		return solana.PublicKey{}, fmt.Errorf("%s: %w", auth.Kind, ErrUnknownAuthority)
	}
}

// Transfer moves amount from one account to another under auth.
func (a *Adapter) Transfer(x *runtime.Context, from, to solana.PublicKey, auth Authority, amount uint64) error {
	key, err := a.Resolve(x, auth)
	if err != nil {
		return err
	}
	if err := x.RequireWritable(from, to); err != nil {
		return err
	}
	return x.Ledger().Transfer(from, to, amount, key)
}

// EnsureAccount returns the associated account of (owner, mint), opening an
// empty one when it does not exist yet.
func (a *Adapter) EnsureAccount(x *runtime.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, err := address.AssociatedToken(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if x.Ledger().Exists(ata) {
		acc, err := x.Ledger().Account(ata)
		if err != nil {
			return solana.PublicKey{}, err
		}
		if !acc.Owner.Equals(owner) || !acc.Mint.Equals(mint) {
			return solana.PublicKey{}, fmt.Errorf("associated account %s has unexpected owner or mint", ata)
		}
		return ata, nil
	}
	if err := x.RequireWritable(ata); err != nil {
		return solana.PublicKey{}, err
	}
	if err := x.Ledger().Create(ledger.TokenAccount{Address: ata, Owner: owner, Mint: mint}); err != nil {
		return solana.PublicKey{}, err
	}
	return ata, nil
}

// Account returns the account as seen by the current call.
func (a *Adapter) Account(x *runtime.Context, addr solana.PublicKey) (ledger.TokenAccount, error) {
	return x.Ledger().Account(addr)
}

// Balance returns the amount held by addr in the current call.
func (a *Adapter) Balance(x *runtime.Context, addr solana.PublicKey) (uint64, error) {
	acc, err := x.Ledger().Account(addr)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}
