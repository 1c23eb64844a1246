package jupiter

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type QuoteRequest struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Amount     uint64

	SlippageBps *uint16
	SwapMode    string // ExactIn | ExactOut

	Dexes            []string
	OnlyDirectRoutes bool
	MaxAccounts      uint64
}

func (r QuoteRequest) Validate() error {
	if r.InputMint.IsZero() {
		return fmt.Errorf("inputMint is required")
	}
	if r.OutputMint.IsZero() {
		return fmt.Errorf("outputMint is required")
	}
	if r.Amount == 0 {
		return fmt.Errorf("amount is required")
	}
	return nil
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

// Plan is what a relayer needs from a quote to fill a settlement request.
type Plan struct {
	InAmount       uint64          `json:"in_amount"`
	OutAmount      uint64          `json:"out_amount"`
	MinOutput      uint64          `json:"min_output"`
	SlippageBps    uint16          `json:"slippage_bps"`
	PriceImpactPct decimal.Decimal `json:"price_impact_pct"`
	Route          []string        `json:"route"`
}

// Plan converts the string amounts of the quote. priceImpactPct is a
// fraction in the API (0.01 = 1%) and is returned as a percentage.
func (q *QuoteResponse) Plan() (*Plan, error) {
	in, err := strconv.ParseUint(q.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("inAmount %q: %w", q.InAmount, err)
	}
	out, err := strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("outAmount %q: %w", q.OutAmount, err)
	}
	minOut := out
	if q.OtherAmountThreshold != "" {
		minOut, err = strconv.ParseUint(q.OtherAmountThreshold, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("otherAmountThreshold %q: %w", q.OtherAmountThreshold, err)
		}
	}
	impact := decimal.Zero
	if q.PriceImpactPct != "" {
		impact, err = decimal.NewFromString(q.PriceImpactPct)
		if err != nil {
			return nil, fmt.Errorf("priceImpactPct %q: %w", q.PriceImpactPct, err)
		}
	}

	route := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		label := step.SwapInfo.Label
		if label == "" {
			label = step.SwapInfo.AmmKey
		}
		route = append(route, label)
	}
	return &Plan{
		InAmount:       in,
		OutAmount:      out,
		MinOutput:      minOut,
		SlippageBps:    q.SlippageBps,
		PriceImpactPct: impact.Mul(decimal.NewFromInt(100)),
		Route:          route,
	}, nil
}
