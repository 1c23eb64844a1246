package relayer

import (
	"fmt"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/amm"
	"github.com/aman-zulfiqar/superswap-settlement/internal/fees"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
)

// Intent is a bridged transfer the relayer wants settled.
type Intent struct {
	OrderID         uint64
	Recipient       solana.PublicKey
	GrossAmount     uint64
	MinOutput       uint64
	DestinationMint solana.PublicKey
	Deadline        time.Time
	Source          solana.PublicKey
}

// BuildPoolSettlement fills a settlement request that swaps the net amount
// through pool into the recipient's associated account. The pool is told
// to accept any output; min_output is enforced by the coordinator so an
// underdelivering swap ends as a refundable Failed order.
func BuildPoolSettlement(programID solana.PublicKey, cfg *models.GlobalConfig, pool *amm.Pool, in Intent) (*models.ProcessRequest, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	net, err := fees.Net(in.GrossAmount, cfg.FeeBps)
	if err != nil {
		return nil, err
	}
	authority, _, err := address.Config(programID)
	if err != nil {
		return nil, err
	}
	custody, err := address.AssociatedToken(authority, cfg.SettlementMint)
	if err != nil {
		return nil, err
	}
	dest, err := address.AssociatedToken(in.Recipient, in.DestinationMint)
	if err != nil {
		return nil, err
	}
	aToB, err := amm.DetermineSwapDirection(pool, cfg.SettlementMint)
	if err != nil {
		return nil, err
	}
	if _, out := pool.Mints(aToB); !out.Equals(in.DestinationMint) {
		return nil, fmt.Errorf("pool %s does not pay out %s", pool.Name, in.DestinationMint)
	}

	ix, err := amm.BuildSwapInstruction(pool, net, 0, authority, custody, dest, aToB)
	if err != nil {
		return nil, err
	}
	data, err := ix.Data()
	if err != nil {
		return nil, err
	}
	return &models.ProcessRequest{
		OrderID:         in.OrderID,
		Recipient:       in.Recipient,
		GrossAmount:     in.GrossAmount,
		MinOutput:       in.MinOutput,
		DestinationMint: in.DestinationMint,
		Deadline:        in.Deadline.Unix(),
		Source:          in.Source,
		SwapEngine:      pool.ProgramID,
		SwapPayload:     data,
		SwapAccounts:    ix.Accounts(),
	}, nil
}
