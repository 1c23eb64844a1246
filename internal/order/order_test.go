package order

import (
	"testing"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_Table(t *testing.T) {
	tests := []struct {
		from    models.OrderStatus
		event   Event
		want    models.OrderStatus
		wantErr bool
		refund  bool
	}{
		{models.StatusPending, SwapSettled, models.StatusCompleted, false, false},
		{models.StatusPending, SwapFailed, models.StatusFailed, false, false},
		{models.StatusPending, Refund, models.StatusRefunded, false, false},
		{models.StatusFailed, Refund, models.StatusRefunded, false, false},
		{models.StatusCompleted, Refund, models.StatusCompleted, true, true},
		{models.StatusRefunded, Refund, models.StatusRefunded, true, true},
		{models.StatusFailed, SwapSettled, models.StatusFailed, true, false},
		{models.StatusCompleted, SwapFailed, models.StatusCompleted, true, false},
		{models.StatusRefunded, SwapSettled, models.StatusRefunded, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			assert.Equal(t, tt.want, got)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.refund {
				assert.True(t, codes.Is(err, codes.RefundFailed))
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			}
		})
	}
}

func TestNext_TerminalStatusesAcceptNothing(t *testing.T) {
	for _, s := range []models.OrderStatus{models.StatusPending, models.StatusCompleted, models.StatusRefunded, models.StatusFailed} {
		for _, e := range []Event{SwapSettled, SwapFailed, Refund} {
			next, err := Next(s, e)
			if s.Terminal() {
				assert.Error(t, err, "%s on %s", e, s)
				assert.Equal(t, s, next)
			}
		}
	}

	o := &models.SettlementOrder{OrderID: 3, Status: models.StatusCompleted}
	err := Apply(o, SwapFailed, time.Now())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, models.StatusCompleted, o.Status)
	assert.True(t, o.UpdatedAt.IsZero())
}

func TestNew_DerivesAddress(t *testing.T) {
	programID := solana.MustPublicKeyFromBase58("EzUq3vK7g8JvTLQzKvNAzBCjRz6wNJaZMWZPQVRz7nJq")
	now := time.Unix(1_700_000_000, 0)
	o, err := New(programID, &models.ProcessRequest{OrderID: 11, GrossAmount: 5, Deadline: now.Unix() + 10}, now)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, o.Status)
	assert.False(t, o.Address.IsZero())
	assert.Equal(t, now.UTC(), o.CreatedAt)

	require.NoError(t, Apply(o, SwapFailed, now.Add(time.Second)))
	assert.Equal(t, models.StatusFailed, o.Status)
	assert.True(t, o.UpdatedAt.After(o.CreatedAt))
}
