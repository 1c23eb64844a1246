package fees

import (
	"fmt"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/holiman/uint256"
)

var denominator = uint256.NewInt(constants.BpsDenominator)

// Fee returns floor(amount * bps / 10000). The product is formed in 256-bit
// width so any 64-bit amount is safe; a quotient that does not fit back into
// 64 bits is reported as MathOverflow.
func Fee(amount uint64, bps uint16) (uint64, error) {
	prod := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(bps)))
	q := new(uint256.Int).Div(prod, denominator)
	if !q.IsUint64() {
		return 0, codes.Wrap(codes.MathOverflow, fmt.Errorf("fee of %d at %d bps", amount, bps))
	}
	return q.Uint64(), nil
}

// Net returns amount minus its fee. The subtraction is checked.
func Net(amount uint64, bps uint16) (uint64, error) {
	_, net, err := Split(amount, bps)
	return net, err
}

// Split returns the fee and the net amount for a gross amount.
func Split(amount uint64, bps uint16) (fee, net uint64, err error) {
	fee, err = Fee(amount, bps)
	if err != nil {
		return 0, 0, err
	}
	if fee > amount {
		return 0, 0, codes.Wrap(codes.MathOverflow, fmt.Errorf("fee %d exceeds amount %d", fee, amount))
	}
	return fee, amount - fee, nil
}

// ValidateBps rejects fee rates above the protocol maximum.
func ValidateBps(bps uint16) error {
	if bps > constants.MaxFeeBps {
		return codes.Wrap(codes.InvalidFeeConfiguration, fmt.Errorf("fee bps %d above max %d", bps, constants.MaxFeeBps))
	}
	return nil
}
