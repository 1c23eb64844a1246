package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// SettlementOrder tracks one bridged transfer through its lifecycle.
type SettlementOrder struct {
	OrderID         uint64           `json:"order_id"`
	Recipient       solana.PublicKey `json:"recipient"`
	GrossAmount     uint64           `json:"gross_amount"`
	MinOutput       uint64           `json:"min_output"`
	DestinationMint solana.PublicKey `json:"destination_mint"`
	Deadline        int64            `json:"deadline"`
	Status          OrderStatus      `json:"status"`
	Bump            uint8            `json:"bump"`

	// Address is the program address derived from the order id.
	Address      solana.PublicKey `json:"address"`
	FeeAmount    uint64           `json:"fee_amount"`
	OutputAmount uint64           `json:"output_amount"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Clone returns a copy safe to mutate.
func (o *SettlementOrder) Clone() *SettlementOrder {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// ProcessRequest is the relayer's settlement call.
type ProcessRequest struct {
	OrderID         uint64           `json:"order_id"`
	Recipient       solana.PublicKey `json:"recipient"`
	GrossAmount     uint64           `json:"gross_amount"`
	MinOutput       uint64           `json:"min_output"`
	DestinationMint solana.PublicKey `json:"destination_mint"`
	Deadline        int64            `json:"deadline"`

	// Source is the relayer-held settlement asset account.
	Source solana.PublicKey `json:"source"`

	// SwapEngine, SwapPayload and SwapAccounts are forwarded to the swap
	// engine as is.
	SwapEngine   solana.PublicKey      `json:"swap_engine"`
	SwapPayload  []byte                `json:"swap_payload"`
	SwapAccounts []*solana.AccountMeta `json:"swap_accounts"`
}

// RefundRequest returns an order's gross amount to the recipient.
type RefundRequest struct {
	OrderID     uint64           `json:"order_id"`
	Destination solana.PublicKey `json:"destination"`
}
