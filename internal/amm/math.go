package amm

import (
	"fmt"
	"math"
	"math/big"

	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
)

// CalculateSwapOutput computes the constant-product output with the fee
// taken from the input. Returns (amountOut, priceImpact, error).
func CalculateSwapOutput(
	amountIn uint64,
	reserveIn uint64,
	reserveOut uint64,
	feeNumerator uint64,
	feeDenominator uint64,
) (uint64, float64, error) {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return 0, 0, fmt.Errorf("invalid inputs: amounts must be > 0")
	}
	if feeDenominator == 0 || feeNumerator > feeDenominator {
		return 0, 0, fmt.Errorf("invalid fee %d/%d", feeNumerator, feeDenominator)
	}

	amountInAfterFee := new(big.Int).Mul(
		new(big.Int).SetUint64(amountIn),
		new(big.Int).SetUint64(feeDenominator-feeNumerator),
	)
	amountInAfterFee.Div(amountInAfterFee, new(big.Int).SetUint64(feeDenominator))

	// out = (in' * reserveOut) / (reserveIn + in')
	numerator := new(big.Int).Mul(amountInAfterFee, new(big.Int).SetUint64(reserveOut))
	denominator := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), amountInAfterFee)
	amountOutBig := new(big.Int).Div(numerator, denominator)
	if !amountOutBig.IsUint64() {
		return 0, 0, fmt.Errorf("output amount overflow")
	}
	amountOut := amountOutBig.Uint64()

	idealRate := float64(reserveOut) / float64(reserveIn)
	executionRate := float64(amountOut) / float64(amountIn)
	priceImpact := 0.0
	if idealRate > 0 {
		priceImpact = math.Max(0, 1-(executionRate/idealRate))
	}
	return amountOut, priceImpact, nil
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= constants.BpsDenominator {
		return 0
	}
	result := new(big.Int).Mul(
		new(big.Int).SetUint64(amountOut),
		new(big.Int).SetUint64(constants.BpsDenominator-uint64(slippageBps)),
	)
	result.Div(result, big.NewInt(constants.BpsDenominator))
	return result.Uint64()
}

// CalculateFeeBps converts fee numerator/denominator to basis points
func CalculateFeeBps(feeNumerator, feeDenominator uint64) uint16 {
	if feeDenominator == 0 {
		return 0
	}
	return uint16((feeNumerator * constants.BpsDenominator) / feeDenominator)
}
