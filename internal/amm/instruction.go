package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account order of the swap instruction:
//
//	0. swap_account (writable)
//	1. pool_authority (program address owning the vaults)
//	2. user_authority (signer)
//	3. user_source (writable)
//	4. pool_source (writable)
//	5. pool_destination (writable)
//	6. user_destination (writable)
const swapAccountsLen = 7

// BuildSwapInstruction constructs a swap against pool. The returned
// instruction's data is [1][amount_in u64 LE][min_amount_out u64 LE].
func BuildSwapInstruction(
	pool *Pool,
	amountIn uint64,
	minAmountOut uint64,
	userAuthority solana.PublicKey,
	userSource solana.PublicKey,
	userDestination solana.PublicKey,
	aToB bool,
) (solana.Instruction, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	poolSource, poolDest := pool.Vaults(aToB)

	accounts := []*solana.AccountMeta{
		{PublicKey: pool.SwapAccount, IsWritable: true},
		{PublicKey: pool.Authority},
		{PublicKey: userAuthority, IsSigner: true},
		{PublicKey: userSource, IsWritable: true},
		{PublicKey: poolSource, IsWritable: true},
		{PublicKey: poolDest, IsWritable: true},
		{PublicKey: userDestination, IsWritable: true},
	}
	return solana.NewInstruction(pool.ProgramID, accounts, EncodeSwapData(amountIn, minAmountOut)), nil
}

func EncodeSwapData(amountIn, minAmountOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = SwapInstruction
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)
	return data
}

// DecodeSwapData parses instruction data produced by EncodeSwapData.
func DecodeSwapData(data []byte) (amountIn, minAmountOut uint64, err error) {
	if len(data) != 17 {
		return 0, 0, fmt.Errorf("swap data must be 17 bytes, got %d", len(data))
	}
	if data[0] != SwapInstruction {
		return 0, 0, fmt.Errorf("unknown instruction %d", data[0])
	}
	return binary.LittleEndian.Uint64(data[1:9]), binary.LittleEndian.Uint64(data[9:17]), nil
}

// DetermineSwapDirection determines if swap is A->B based on input mint
func DetermineSwapDirection(pool *Pool, inputMint solana.PublicKey) (bool, error) {
	if pool.TokenMintA.Equals(inputMint) {
		return true, nil
	}
	if pool.TokenMintB.Equals(inputMint) {
		return false, nil
	}
	return false, fmt.Errorf("input mint %s does not match pool mints", inputMint)
}
