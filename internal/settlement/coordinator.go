package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/audit"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/custody"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/metrics"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/aman-zulfiqar/superswap-settlement/internal/swapengine"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Config holds the collaborators of a Coordinator.
type Config struct {
	Runtime *runtime.Runtime
	Emitter audit.Emitter
	Metrics *metrics.Recorder
	Logger  *logrus.Logger
}

// Coordinator settles bridged transfers: custody, fee, delegated swap,
// output check, and the refund path.
type Coordinator struct {
	rt       *runtime.Runtime
	custody  *custody.Adapter
	delegate *swapengine.Delegate
	emitter  audit.Emitter
	metrics  *metrics.Recorder
	logger   *logrus.Logger
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("runtime is nil")
	}
	if cfg.Emitter == nil {
		cfg.Emitter = audit.NopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Coordinator{
		rt:       cfg.Runtime,
		custody:  custody.New(),
		delegate: swapengine.NewDelegate(),
		emitter:  cfg.Emitter,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}, nil
}

// Receipt reports what a settlement call did. It is returned alongside
// InsufficientOutputAmount and DeadlineExceeded when the order was
// committed as Failed.
type Receipt struct {
	Order          *models.SettlementOrder `json:"order"`
	FeeAmount      uint64                  `json:"fee_amount"`
	SwapAmount     uint64                  `json:"swap_amount"`
	ObservedOutput uint64                  `json:"observed_output"`
	Custody        solana.PublicKey        `json:"custody"`
	Destination    solana.PublicKey        `json:"destination"`
}

// accounts is the set of addresses one call touches, computed before
// locking from the stored configuration.
type accounts struct {
	authority      solana.PublicKey
	custody        solana.PublicKey
	feeAccount     solana.PublicKey
	order          solana.PublicKey
	destination    solana.PublicKey
	settlementMint solana.PublicKey
}

func (c *Coordinator) resolve(ctx context.Context) (*models.GlobalConfig, *accounts, error) {
	cfg, err := c.rt.Store().GetConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, codes.New(codes.NotInitialized)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	authority, _, err := address.Config(c.rt.ProgramID())
	if err != nil {
		return nil, nil, err
	}
	custodyAcc, err := address.AssociatedToken(authority, cfg.SettlementMint)
	if err != nil {
		return nil, nil, err
	}
	feeAcc, err := address.AssociatedToken(cfg.FeeRecipient, cfg.SettlementMint)
	if err != nil {
		return nil, nil, err
	}
	return cfg, &accounts{
		authority:      authority,
		custody:        custodyAcc,
		feeAccount:     feeAcc,
		settlementMint: cfg.SettlementMint,
	}, nil
}

// Process settles one bridged transfer. caller must be the configured
// relayer and must have signed the request.
//
// When the swap completes below MinOutput, or the deadline passes while it
// runs, the fee and swap legs are reverted, the order is committed as
// Failed with the gross amount still in custody, and the receipt is
// returned together with InsufficientOutputAmount or DeadlineExceeded.
// Every other error leaves no trace.
func (c *Coordinator) Process(ctx context.Context, caller solana.PublicKey, req *models.ProcessRequest) (*Receipt, error) {
	start := time.Now()
	receipt, err := c.process(ctx, caller, req)
	outcome := "rejected"
	switch {
	case err == nil:
		outcome = models.StatusCompleted.String()
	case receipt != nil:
		outcome = models.StatusFailed.String()
	default:
		c.metrics.ObserveReject(err)
	}
	c.metrics.ObserveProcessDuration(outcome, time.Since(start))
	return receipt, err
}

func (c *Coordinator) process(ctx context.Context, caller solana.PublicKey, req *models.ProcessRequest) (*Receipt, error) {
	if req == nil {
		return nil, codes.Wrap(codes.InvalidInstructionData, fmt.Errorf("request is nil"))
	}
	_, acc, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	orderAddr, _, err := address.Order(c.rt.ProgramID(), req.OrderID)
	if err != nil {
		return nil, err
	}
	acc.order = orderAddr
	if !req.Recipient.IsZero() && !req.DestinationMint.IsZero() {
		dest, err := address.AssociatedToken(req.Recipient, req.DestinationMint)
		if err != nil {
			return nil, err
		}
		acc.destination = dest
	}

	locked := []solana.PublicKey{acc.authority, acc.order, acc.custody, acc.feeAccount, req.Source}
	if !acc.destination.IsZero() {
		locked = append(locked, acc.destination)
	}
	for _, m := range req.SwapAccounts {
		if m != nil {
			locked = append(locked, m.PublicKey)
		}
	}

	var (
		receipt *Receipt
		outcome error
	)
	committed, err := c.rt.Execute(ctx, runtime.Invocation{
		Signers:  []solana.PublicKey{caller},
		Accounts: locked,
	}, func(x *runtime.Context) error {
		r, o, err := c.settle(x, caller, req, acc)
		receipt, outcome = r, o
		return err
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": req.OrderID,
			"caller":   caller.String(),
		}).Warn("settlement rejected")
		return nil, err
	}

	o := receipt.Order
	reason := ""
	typ := audit.EventSettlementCompleted
	c.metrics.ObserveSettlement(o.Status.String())
	if outcome != nil {
		typ = audit.EventSettlementFailed
		reason = outcome.Error()
	} else {
		c.metrics.AddFees(receipt.FeeAmount)
	}
	c.emit(ctx, audit.NewOrderEvent(typ, caller, o, reason, o.UpdatedAt))

	c.logger.WithFields(logrus.Fields{
		"order_id":         o.OrderID,
		"status":           o.Status.String(),
		"gross":            o.GrossAmount,
		"fee":              receipt.FeeAmount,
		"output":           receipt.ObservedOutput,
		"min_output":       o.MinOutput,
		"accounts_changed": len(committed.Accounts),
	}).Info("settlement committed")

	return receipt, outcome
}

// settle runs inside the runtime. The second return value is the
// committed-failure outcome; the third aborts the call.
func (c *Coordinator) settle(x *runtime.Context, caller solana.PublicKey, req *models.ProcessRequest, acc *accounts) (*Receipt, error, error) {
	cfg, err := x.Config()
	if err != nil {
		return nil, nil, err
	}
	if !caller.Equals(cfg.Relayer) || !x.IsSigner(caller) {
		return nil, nil, codes.Wrap(codes.InvalidRelayer, fmt.Errorf("caller %s", caller))
	}
	if cfg.Paused {
		return nil, nil, codes.New(codes.ProgramPaused)
	}
	if req.Recipient.IsZero() {
		return nil, nil, codes.New(codes.InvalidRecipient)
	}
	if x.Now().Unix() > req.Deadline {
		return nil, nil, codes.Wrap(codes.DeadlineExceeded, fmt.Errorf("deadline %d", req.Deadline))
	}
	if req.GrossAmount == 0 {
		return nil, nil, codes.New(codes.InvalidBridgeAmount)
	}
	if req.DestinationMint.IsZero() {
		return nil, nil, codes.Wrap(codes.InvalidTokenMint, fmt.Errorf("destination mint is zero"))
	}
	if !cfg.SettlementMint.Equals(acc.settlementMint) {
		return nil, nil, fmt.Errorf("settlement mint changed while locking")
	}

	src, err := x.Ledger().Account(req.Source)
	if err != nil {
		return nil, nil, codes.Wrap(codes.SettlementAccountNotFound, err)
	}
	if !src.Mint.Equals(cfg.SettlementMint) {
		return nil, nil, codes.Wrap(codes.InvalidTokenMint, fmt.Errorf("source mint %s", src.Mint))
	}

	o, err := newOrder(x, req)
	if err != nil {
		return nil, nil, err
	}
	if err := x.CreateOrder(o); err != nil {
		return nil, nil, err
	}

	custodyAcc, err := c.custody.EnsureAccount(x, acc.authority, cfg.SettlementMint)
	if err != nil {
		return nil, nil, codes.Wrap(codes.SettlementAccountNotFound, err)
	}
	if err := c.custody.Transfer(x, req.Source, custodyAcc, custody.ExternalSigner(caller), req.GrossAmount); err != nil {
		return nil, nil, custodyError(err)
	}

	fee, net, err := splitFee(req.GrossAmount, cfg.FeeBps)
	if err != nil {
		return nil, nil, err
	}

	dest, err := c.custody.EnsureAccount(x, req.Recipient, req.DestinationMint)
	if err != nil {
		return nil, nil, codes.Wrap(codes.DestinationAccountNotFound, err)
	}

	// Everything after this point is undone if the swap underdelivers.
	sp := x.Savepoint()
	authority := custody.SystemOwned(address.ConfigSignerSeeds(cfg.Bump)...)

	if fee > 0 {
		feeAcc, err := c.custody.EnsureAccount(x, cfg.FeeRecipient, cfg.SettlementMint)
		if err != nil {
			return nil, nil, custodyError(err)
		}
		if err := c.custody.Transfer(x, custodyAcc, feeAcc, authority, fee); err != nil {
			return nil, nil, custodyError(err)
		}
	}

	custodyBefore, err := c.custody.Balance(x, custodyAcc)
	if err != nil {
		return nil, nil, err
	}
	destBefore, err := c.custody.Balance(x, dest)
	if err != nil {
		return nil, nil, err
	}

	if err := c.delegate.Invoke(x, req.SwapEngine, req.SwapPayload, req.SwapAccounts, address.ConfigSignerSeeds(cfg.Bump)); err != nil {
		return nil, nil, err
	}

	custodyAfter, err := c.custody.Balance(x, custodyAcc)
	if err != nil {
		return nil, nil, err
	}
	destAfter, err := c.custody.Balance(x, dest)
	if err != nil {
		return nil, nil, err
	}
	if custodyAfter < custodyBefore && custodyBefore-custodyAfter > net {
		return nil, nil, codes.Wrap(codes.SwapExecutionFailed, fmt.Errorf("engine spent %d of %d", custodyBefore-custodyAfter, net))
	}
	if destAfter < destBefore {
		return nil, nil, codes.Wrap(codes.SwapExecutionFailed, fmt.Errorf("destination balance decreased"))
	}
	output := destAfter - destBefore

	receipt := &Receipt{
		FeeAmount:      fee,
		SwapAmount:     net,
		ObservedOutput: output,
		Custody:        custodyAcc,
		Destination:    dest,
	}

	var outcome error
	switch {
	case output < req.MinOutput:
		outcome = codes.Wrap(codes.InsufficientOutputAmount, fmt.Errorf("output %d below minimum %d", output, req.MinOutput))
	case x.Now().Unix() > req.Deadline:
		outcome = codes.Wrap(codes.DeadlineExceeded, fmt.Errorf("deadline %d passed during swap", req.Deadline))
	}

	if outcome != nil {
		if err := x.RollbackTo(sp); err != nil {
			return nil, nil, err
		}
		receipt.FeeAmount = 0
		if err := transition(x, o, swapFailed); err != nil {
			return nil, nil, err
		}
	} else {
		o.FeeAmount = fee
		o.OutputAmount = output
		if err := transition(x, o, swapSettled); err != nil {
			return nil, nil, err
		}
	}
	receipt.Order = o
	return receipt, outcome, nil
}

// custodyError maps ledger failures to the custody code unless they
// already carry one.
func custodyError(err error) error {
	if _, ok := codes.Of(err); ok {
		return err
	}
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return codes.Wrap(codes.SettlementAccountNotFound, err)
	}
	return codes.Wrap(codes.CustodyTransferFailed, err)
}

func (c *Coordinator) emit(ctx context.Context, ev *audit.Event) {
	if err := c.emitter.Emit(context.WithoutCancel(ctx), ev); err != nil {
		c.logger.WithError(err).WithField("event_type", ev.Type).Warn("failed to emit event")
	}
}
