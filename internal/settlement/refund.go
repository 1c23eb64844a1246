package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/audit"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/custody"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Refund returns the gross amount of a Pending or Failed order from custody
// to destination, which must be the recipient's settlement-asset account.
// Refunds are accepted while the program is paused.
func (c *Coordinator) Refund(ctx context.Context, caller solana.PublicKey, req *models.RefundRequest) (*models.SettlementOrder, error) {
	if req == nil {
		return nil, codes.Wrap(codes.InvalidInstructionData, fmt.Errorf("request is nil"))
	}
	_, acc, err := c.resolve(ctx)
	if err != nil {
		c.metrics.ObserveReject(err)
		return nil, err
	}
	orderAddr, _, err := address.Order(c.rt.ProgramID(), req.OrderID)
	if err != nil {
		return nil, err
	}

	var refunded *models.SettlementOrder
	_, err = c.rt.Execute(ctx, runtime.Invocation{
		Signers:  []solana.PublicKey{caller},
		Accounts: []solana.PublicKey{acc.authority, orderAddr, acc.custody, req.Destination},
	}, func(x *runtime.Context) error {
		o, err := c.refund(x, caller, req)
		refunded = o
		return err
	})
	if err != nil {
		c.metrics.ObserveReject(err)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": req.OrderID,
			"caller":   caller.String(),
		}).Warn("refund rejected")
		return nil, err
	}

	c.metrics.ObserveRefund()
	c.emit(ctx, audit.NewOrderEvent(audit.EventSettlementRefunded, caller, refunded, "", refunded.UpdatedAt))
	c.logger.WithFields(logrus.Fields{
		"order_id":    refunded.OrderID,
		"amount":      refunded.GrossAmount,
		"destination": req.Destination.String(),
	}).Info("settlement refunded")
	return refunded, nil
}

func (c *Coordinator) refund(x *runtime.Context, caller solana.PublicKey, req *models.RefundRequest) (*models.SettlementOrder, error) {
	cfg, err := x.Config()
	if err != nil {
		return nil, err
	}
	if !x.IsSigner(caller) || !(caller.Equals(cfg.Admin) || caller.Equals(cfg.Relayer)) {
		return nil, codes.Wrap(codes.Unauthorized, fmt.Errorf("caller %s may not refund", caller))
	}

	o, err := x.Order(req.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Refundable() {
		return nil, codes.Wrap(codes.RefundFailed, fmt.Errorf("order %d is %s", o.OrderID, o.Status))
	}

	dest, err := c.custody.Account(x, req.Destination)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, codes.Wrap(codes.DestinationAccountNotFound, err)
		}
		return nil, err
	}
	if !dest.Owner.Equals(o.Recipient) {
		return nil, codes.Wrap(codes.InvalidRecipient, fmt.Errorf("destination owner %s, recipient %s", dest.Owner, o.Recipient))
	}
	if !dest.Mint.Equals(cfg.SettlementMint) {
		return nil, codes.Wrap(codes.InvalidTokenMint, fmt.Errorf("destination mint %s", dest.Mint))
	}

	authority, _, err := address.Config(x.ProgramID())
	if err != nil {
		return nil, err
	}
	custodyAcc, err := address.AssociatedToken(authority, cfg.SettlementMint)
	if err != nil {
		return nil, err
	}
	held, err := c.custody.Balance(x, custodyAcc)
	if err != nil {
		return nil, codes.Wrap(codes.RefundFailed, err)
	}
	if held < o.GrossAmount {
		return nil, codes.Wrap(codes.RefundFailed, fmt.Errorf("custody holds %d, order needs %d", held, o.GrossAmount))
	}

	seeds := address.ConfigSignerSeeds(cfg.Bump)
	if err := c.custody.Transfer(x, custodyAcc, req.Destination, custody.SystemOwned(seeds...), o.GrossAmount); err != nil {
		return nil, codes.Wrap(codes.RefundFailed, err)
	}
	if err := transition(x, o, refund); err != nil {
		return nil, err
	}
	return o, nil
}
