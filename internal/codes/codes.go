package codes

import (
	"errors"
	"fmt"
)

// Code is a stable numeric settlement error code. Values start at 6000 and
// keep the order of the deployed program so clients can keep their mapping.
type Code uint32

const (
	ProgramPaused Code = 6000 + iota
	Unauthorized
	InvalidRelayer
	InvalidRecipient
	InvalidSwapCalldata
	SwapExecutionFailed
	InsufficientOutputAmount
	SlippageExceeded
	InvalidTokenMint
	RefundFailed
	InvalidSwapEngine
	MathOverflow
	InvalidBridgeAmount
	DeadlineExceeded
	InvalidInstructionData
	SettlementAccountNotFound
	DestinationAccountNotFound
	InvalidFeeConfiguration
	FeeCalculationFailed
	OrderAlreadyExists
	OrderNotFound
	CustodyTransferFailed
	NotInitialized
	AlreadyInitialized
)

// Category groups codes for callers that only care about the failure class.
type Category string

const (
	CategoryAuthorization Category = "AUTHORIZATION"
	CategoryPrecondition  Category = "PRECONDITION"
	CategoryArithmetic    Category = "ARITHMETIC"
	CategoryCustody       Category = "CUSTODY"
	CategorySwapOutcome   Category = "SWAP_OUTCOME"
	CategoryState         Category = "STATE"
	CategoryInternal      Category = "INTERNAL"
)

var messages = map[Code]string{
	ProgramPaused:              "program is currently paused",
	Unauthorized:               "unauthorized caller",
	InvalidRelayer:             "invalid relayer",
	InvalidRecipient:           "invalid recipient address",
	InvalidSwapCalldata:        "invalid swap calldata",
	SwapExecutionFailed:        "swap execution failed",
	InsufficientOutputAmount:   "insufficient output amount",
	SlippageExceeded:           "slippage tolerance exceeded",
	InvalidTokenMint:           "invalid token mint",
	RefundFailed:               "refund failed",
	InvalidSwapEngine:          "invalid swap engine",
	MathOverflow:               "math overflow",
	InvalidBridgeAmount:        "invalid bridge amount",
	DeadlineExceeded:           "deadline exceeded",
	InvalidInstructionData:     "invalid instruction data",
	SettlementAccountNotFound:  "settlement asset account not found",
	DestinationAccountNotFound: "destination token account not found",
	InvalidFeeConfiguration:    "invalid fee configuration",
	FeeCalculationFailed:       "fee calculation failed",
	OrderAlreadyExists:         "settlement order already exists",
	OrderNotFound:              "settlement order not found",
	CustodyTransferFailed:      "custody transfer failed",
	NotInitialized:             "program configuration not initialized",
	AlreadyInitialized:         "program configuration already initialized",
}

var names = map[Code]string{
	ProgramPaused:              "ProgramPaused",
	Unauthorized:               "Unauthorized",
	InvalidRelayer:             "InvalidRelayer",
	InvalidRecipient:           "InvalidRecipient",
	InvalidSwapCalldata:        "InvalidSwapCalldata",
	SwapExecutionFailed:        "SwapExecutionFailed",
	InsufficientOutputAmount:   "InsufficientOutputAmount",
	SlippageExceeded:           "SlippageExceeded",
	InvalidTokenMint:           "InvalidTokenMint",
	RefundFailed:               "RefundFailed",
	InvalidSwapEngine:          "InvalidSwapEngine",
	MathOverflow:               "MathOverflow",
	InvalidBridgeAmount:        "InvalidBridgeAmount",
	DeadlineExceeded:           "DeadlineExceeded",
	InvalidInstructionData:     "InvalidInstructionData",
	SettlementAccountNotFound:  "SettlementAccountNotFound",
	DestinationAccountNotFound: "DestinationAccountNotFound",
	InvalidFeeConfiguration:    "InvalidFeeConfiguration",
	FeeCalculationFailed:       "FeeCalculationFailed",
	OrderAlreadyExists:         "OrderAlreadyExists",
	OrderNotFound:              "OrderNotFound",
	CustodyTransferFailed:      "CustodyTransferFailed",
	NotInitialized:             "NotInitialized",
	AlreadyInitialized:         "AlreadyInitialized",
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}

// Message returns the human readable description of the code.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "unknown error"
}

// Category classifies the code.
func (c Code) Category() Category {
	switch c {
	case Unauthorized, InvalidRelayer, InvalidSwapEngine:
		return CategoryAuthorization
	case ProgramPaused, InvalidRecipient, InvalidSwapCalldata, InvalidTokenMint,
		InvalidBridgeAmount, DeadlineExceeded, InvalidInstructionData,
		SettlementAccountNotFound, DestinationAccountNotFound, InvalidFeeConfiguration:
		return CategoryPrecondition
	case MathOverflow, FeeCalculationFailed:
		return CategoryArithmetic
	case CustodyTransferFailed:
		return CategoryCustody
	case InsufficientOutputAmount, SlippageExceeded, SwapExecutionFailed:
		return CategorySwapOutcome
	case RefundFailed, OrderAlreadyExists, OrderNotFound, NotInitialized, AlreadyInitialized:
		return CategoryState
	default:
		return CategoryInternal
	}
}

// Error is a coded settlement error with an optional underlying cause.
type Error struct {
	Code  Code
	Cause error
}

// New returns an error carrying only the code.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap attaches a code to a lower-level cause.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, uint32(e.Code), e.Code.Message(), e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, uint32(e.Code), e.Code.Message())
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, codes.New(x))
// works regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Of extracts the code from err. ok is false when err carries no code.
func Of(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	c, ok := Of(err)
	return ok && c == code
}
