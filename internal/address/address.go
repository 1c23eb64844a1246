package address

import (
	"encoding/binary"
	"fmt"

	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/gagliardetto/solana-go"
)

// ConfigSeeds returns the seeds of the configuration singleton without bump.
func ConfigSeeds() [][]byte {
	return [][]byte{[]byte(constants.SeedConfig)}
}

// ConfigSignerSeeds appends the bump so the seeds prove the program-owned
// authority through CreateProgramAddress.
func ConfigSignerSeeds(bump uint8) [][]byte {
	return append(ConfigSeeds(), []byte{bump})
}

// Config derives the configuration address; it doubles as the program's
// own signing authority.
func Config(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(ConfigSeeds(), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive config address: %w", err)
	}
	return addr, bump, nil
}

// OrderSeeds returns ["swap_order", le64(orderID)].
func OrderSeeds(orderID uint64) [][]byte {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, orderID)
	return [][]byte{[]byte(constants.SeedSwapOrder), id}
}

// Order derives the deterministic address of a settlement order.
func Order(programID solana.PublicKey, orderID uint64) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(OrderSeeds(orderID), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive order %d address: %w", orderID, err)
	}
	return addr, bump, nil
}

// AssociatedToken derives the canonical token account for (owner, mint).
func AssociatedToken(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return ata, nil
}
