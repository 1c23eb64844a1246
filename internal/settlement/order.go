package settlement

import (
	"github.com/aman-zulfiqar/superswap-settlement/internal/fees"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/order"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
)

const (
	swapSettled = order.SwapSettled
	swapFailed  = order.SwapFailed
	refund      = order.Refund
)

func newOrder(x *runtime.Context, req *models.ProcessRequest) (*models.SettlementOrder, error) {
	return order.New(x.ProgramID(), req, x.Now())
}

// transition applies e to o and stages the result.
func transition(x *runtime.Context, o *models.SettlementOrder, e order.Event) error {
	if err := order.Apply(o, e, x.Now()); err != nil {
		return err
	}
	return x.PutOrder(o)
}

func splitFee(gross uint64, bps uint16) (fee, net uint64, err error) {
	return fees.Split(gross, bps)
}
