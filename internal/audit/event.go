package audit

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// EventType names a committed state change.
type EventType string

const (
	EventSettlementCompleted EventType = "settlement.completed"
	EventSettlementFailed    EventType = "settlement.failed"
	EventSettlementRefunded  EventType = "settlement.refunded"
	EventConfigInitialized   EventType = "config.initialized"
	EventConfigUpdated       EventType = "config.updated"
	EventProgramPaused       EventType = "program.paused"
	EventProgramUnpaused     EventType = "program.unpaused"
	EventFundsRecovered      EventType = "funds.recovered"
)

// Event is published after a call commits.
type Event struct {
	ID              string            `json:"id"`
	Type            EventType         `json:"type"`
	Timestamp       time.Time         `json:"timestamp"`
	Actor           string            `json:"actor"`
	OrderID         uint64            `json:"order_id,omitempty"`
	Status          string            `json:"status,omitempty"`
	Recipient       string            `json:"recipient,omitempty"`
	DestinationMint string            `json:"destination_mint,omitempty"`
	GrossAmount     uint64            `json:"gross_amount,omitempty"`
	FeeAmount       uint64            `json:"fee_amount,omitempty"`
	OutputAmount    uint64            `json:"output_amount,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// Emitter receives committed events.
type Emitter interface {
	Emit(ctx context.Context, ev *Event) error
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, *Event) error { return nil }

func newEvent(typ EventType, actor solana.PublicKey, now time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: now.UTC(),
		Actor:     actor.String(),
	}
}

// NewOrderEvent describes an order transition.
func NewOrderEvent(typ EventType, actor solana.PublicKey, o *models.SettlementOrder, reason string, now time.Time) *Event {
	ev := newEvent(typ, actor, now)
	ev.OrderID = o.OrderID
	ev.Status = o.Status.String()
	ev.Recipient = o.Recipient.String()
	ev.DestinationMint = o.DestinationMint.String()
	ev.GrossAmount = o.GrossAmount
	ev.FeeAmount = o.FeeAmount
	ev.OutputAmount = o.OutputAmount
	ev.Reason = reason
	return ev
}

// NewAdminEvent describes a configuration or recovery action.
func NewAdminEvent(typ EventType, actor solana.PublicKey, attrs map[string]string, now time.Time) *Event {
	ev := newEvent(typ, actor, now)
	ev.Attributes = attrs
	return ev
}
