package models

import "github.com/gagliardetto/solana-go"

// GlobalConfig is the singleton program configuration.
type GlobalConfig struct {
	Admin          solana.PublicKey `json:"admin"`
	Relayer        solana.PublicKey `json:"relayer"`
	SwapEngine     solana.PublicKey `json:"swap_engine"`
	SettlementMint solana.PublicKey `json:"settlement_mint"`
	FeeRecipient   solana.PublicKey `json:"fee_recipient"`
	FeeBps         uint16           `json:"fee_bps"`
	Paused         bool             `json:"paused"`
	Bump           uint8            `json:"bump"`
}

// InitializeParams carries the values for the one-time configuration create.
type InitializeParams struct {
	Relayer        solana.PublicKey `json:"relayer"`
	SwapEngine     solana.PublicKey `json:"swap_engine"`
	SettlementMint solana.PublicKey `json:"settlement_mint"`
	FeeRecipient   solana.PublicKey `json:"fee_recipient"`
	FeeBps         uint16           `json:"fee_bps"`
}

// UpdateConfigParams holds optional replacements; nil fields are left as is.
type UpdateConfigParams struct {
	Admin        *solana.PublicKey `json:"admin,omitempty"`
	Relayer      *solana.PublicKey `json:"relayer,omitempty"`
	SwapEngine   *solana.PublicKey `json:"swap_engine,omitempty"`
	FeeRecipient *solana.PublicKey `json:"fee_recipient,omitempty"`
	FeeBps       *uint16           `json:"fee_bps,omitempty"`
}

// RecoverFundsParams describes an emergency transfer out of custody.
type RecoverFundsParams struct {
	Mint        solana.PublicKey `json:"mint"`
	Source      solana.PublicKey `json:"source"`
	Destination solana.PublicKey `json:"destination"`
	Amount      uint64           `json:"amount"`
}
