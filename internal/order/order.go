package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
)

var ErrIllegalTransition = errors.New("illegal order status transition")

// Event drives an order transition.
type Event uint8

const (
	SwapSettled Event = iota + 1
	SwapFailed
	Refund
)

func (e Event) String() string {
	switch e {
	case SwapSettled:
		return "swap_settled"
	case SwapFailed:
		return "swap_failed"
	case Refund:
		return "refund"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// New builds a Pending order addressed under programID.
func New(programID solana.PublicKey, req *models.ProcessRequest, now time.Time) (*models.SettlementOrder, error) {
	addr, bump, err := address.Order(programID, req.OrderID)
	if err != nil {
		return nil, err
	}
	return &models.SettlementOrder{
		OrderID:         req.OrderID,
		Recipient:       req.Recipient,
		GrossAmount:     req.GrossAmount,
		MinOutput:       req.MinOutput,
		DestinationMint: req.DestinationMint,
		Deadline:        req.Deadline,
		Status:          models.StatusPending,
		Bump:            bump,
		Address:         addr,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, nil
}

// Next returns the status reached from s on e.
//
//	Pending --SwapSettled--> Completed
//	Pending --SwapFailed---> Failed
//	Pending|Failed --Refund--> Refunded
//
// A refund from any other status is RefundFailed; everything else is
// ErrIllegalTransition. Terminal statuses accept no event.
func Next(s models.OrderStatus, e Event) (models.OrderStatus, error) {
	if s.Terminal() {
		if e == Refund {
			return s, codes.Wrap(codes.RefundFailed, fmt.Errorf("order is already %s", s))
		}
		return s, fmt.Errorf("%s on terminal %s: %w", e, s, ErrIllegalTransition)
	}
	switch e {
	case SwapSettled:
		if s == models.StatusPending {
			return models.StatusCompleted, nil
		}
	case SwapFailed:
		if s == models.StatusPending {
			return models.StatusFailed, nil
		}
	case Refund:
		if s.Refundable() {
			return models.StatusRefunded, nil
		}
		return s, codes.Wrap(codes.RefundFailed, fmt.Errorf("order is %s", s))
	}
	return s, fmt.Errorf("%s on %s: %w", e, s, ErrIllegalTransition)
}

// Apply moves o to the next status in place.
func Apply(o *models.SettlementOrder, e Event, now time.Time) error {
	next, err := Next(o.Status, e)
	if err != nil {
		return fmt.Errorf("order %d: %w", o.OrderID, err)
	}
	o.Status = next
	o.UpdatedAt = now.UTC()
	return nil
}
