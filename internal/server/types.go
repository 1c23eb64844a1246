package server

import (
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error       string `json:"error"`                  // Human-readable error message
	Code        int    `json:"code"`                   // HTTP status code
	Kind        string `json:"kind,omitempty"`         // Symbolic settlement error name
	ProgramCode uint32 `json:"program_code,omitempty"` // Numeric settlement error code
	Details     any    `json:"details,omitempty"`      // Additional error details (dev mode only)
	Receipt     any    `json:"receipt,omitempty"`      // Committed outcome of a failed swap
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

// AccountMeta is the JSON form of a forwarded swap account.
type AccountMeta struct {
	Pubkey     solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`
}

// ProcessSettlementRequest is the body of POST /v1/settlements. The swap
// payload is base64 in JSON.
type ProcessSettlementRequest struct {
	OrderID         uint64           `json:"order_id"`
	Recipient       solana.PublicKey `json:"recipient"`
	GrossAmount     uint64           `json:"gross_amount"`
	MinOutput       uint64           `json:"min_output"`
	DestinationMint solana.PublicKey `json:"destination_mint"`
	Deadline        int64            `json:"deadline"`
	Source          solana.PublicKey `json:"source"`
	SwapEngine      solana.PublicKey `json:"swap_engine"`
	SwapPayload     []byte           `json:"swap_payload"`
	SwapAccounts    []AccountMeta    `json:"swap_accounts"`
}

func (r *ProcessSettlementRequest) Model() *models.ProcessRequest {
	metas := make([]*solana.AccountMeta, 0, len(r.SwapAccounts))
	for _, m := range r.SwapAccounts {
		metas = append(metas, &solana.AccountMeta{PublicKey: m.Pubkey, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}
	return &models.ProcessRequest{
		OrderID:         r.OrderID,
		Recipient:       r.Recipient,
		GrossAmount:     r.GrossAmount,
		MinOutput:       r.MinOutput,
		DestinationMint: r.DestinationMint,
		Deadline:        r.Deadline,
		Source:          r.Source,
		SwapEngine:      r.SwapEngine,
		SwapPayload:     r.SwapPayload,
		SwapAccounts:    metas,
	}
}

// NewProcessSettlementRequest converts a model request to its JSON form.
func NewProcessSettlementRequest(req *models.ProcessRequest) *ProcessSettlementRequest {
	metas := make([]AccountMeta, 0, len(req.SwapAccounts))
	for _, m := range req.SwapAccounts {
		metas = append(metas, AccountMeta{Pubkey: m.PublicKey, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}
	return &ProcessSettlementRequest{
		OrderID:         req.OrderID,
		Recipient:       req.Recipient,
		GrossAmount:     req.GrossAmount,
		MinOutput:       req.MinOutput,
		DestinationMint: req.DestinationMint,
		Deadline:        req.Deadline,
		Source:          req.Source,
		SwapEngine:      req.SwapEngine,
		SwapPayload:     req.SwapPayload,
		SwapAccounts:    metas,
	}
}

type RefundSettlementRequest struct {
	Destination solana.PublicKey `json:"destination"`
}

type ListResponse struct {
	Items []*models.SettlementOrder `json:"items"`
}

type AccountResponse struct {
	Address solana.PublicKey `json:"address"`
	Owner   solana.PublicKey `json:"owner"`
	Mint    solana.PublicKey `json:"mint"`
	Symbol  string           `json:"symbol"`
	Amount  uint64           `json:"amount"`
}

type StatusResponse struct {
	OK     bool `json:"ok"`
	Paused bool `json:"paused"`
}
