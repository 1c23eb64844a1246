package swapengine

import (
	"fmt"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/gagliardetto/solana-go"
)

// Delegate issues calls to the configured swap engine. It never looks
// inside the payload or the account list; only the engine parses them.
type Delegate struct{}

func NewDelegate() *Delegate {
	return &Delegate{}
}

// Invoke forwards payload and accounts to engineID, signing with the
// program address proven by signerSeeds. engineID must be the configured
// swap engine. Any engine failure is returned unchanged and leaves no
// ledger changes behind.
func (d *Delegate) Invoke(
	x *runtime.Context,
	engineID solana.PublicKey,
	payload []byte,
	accounts []*solana.AccountMeta,
	signerSeeds [][]byte,
) error {
	cfg, err := x.Config()
	if err != nil {
		return err
	}
	if engineID.IsZero() || !engineID.Equals(cfg.SwapEngine) {
		return codes.Wrap(codes.InvalidSwapEngine, fmt.Errorf("got %s, configured %s", engineID, cfg.SwapEngine))
	}
	for i, m := range accounts {
		if m == nil {
			return codes.Wrap(codes.InvalidSwapCalldata, fmt.Errorf("account %d is nil", i))
		}
	}

	ix := solana.NewInstruction(engineID, solana.AccountMetaSlice(accounts), payload)
	return x.Invoke(ix, signerSeeds)
}
