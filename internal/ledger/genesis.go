package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
)

// LoadGenesis reads token accounts from a JSON array file and opens them.
// Accounts without an address get the owner's associated token address.
func (l *Ledger) LoadGenesis(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read ledger genesis: %w", err)
	}
	var accounts []TokenAccount
	if err := json.Unmarshal(b, &accounts); err != nil {
		return 0, fmt.Errorf("parse ledger genesis: %w", err)
	}
	for i, acc := range accounts {
		if acc.Owner.IsZero() || acc.Mint.IsZero() {
			return i, fmt.Errorf("genesis account %d: owner and mint are required", i)
		}
		if acc.Address.IsZero() {
			ata, err := address.AssociatedToken(acc.Owner, acc.Mint)
			if err != nil {
				return i, err
			}
			acc.Address = ata
		}
		if err := l.Open(acc); err != nil {
			return i, err
		}
	}
	return len(accounts), nil
}
