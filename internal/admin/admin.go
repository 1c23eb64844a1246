package admin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/audit"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/custody"
	"github.com/aman-zulfiqar/superswap-settlement/internal/fees"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Runtime *runtime.Runtime
	Emitter audit.Emitter
	Logger  *logrus.Logger
}

// Service owns the configuration record: creation, updates, the pause
// switch and recovery of stray custody balances.
type Service struct {
	rt      *runtime.Runtime
	custody *custody.Adapter
	emitter audit.Emitter
	logger  *logrus.Logger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("runtime is nil")
	}
	if cfg.Emitter == nil {
		cfg.Emitter = audit.NopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Service{rt: cfg.Runtime, custody: custody.New(), emitter: cfg.Emitter, logger: cfg.Logger}, nil
}

func (s *Service) configAddress() (solana.PublicKey, uint8, error) {
	return address.Config(s.rt.ProgramID())
}

// Initialize creates the configuration with caller as admin. It can run
// once; later calls fail with AlreadyInitialized.
func (s *Service) Initialize(ctx context.Context, caller solana.PublicKey, p models.InitializeParams) (*models.GlobalConfig, error) {
	if err := fees.ValidateBps(p.FeeBps); err != nil {
		return nil, err
	}
	if p.SettlementMint.IsZero() {
		return nil, codes.Wrap(codes.InvalidTokenMint, fmt.Errorf("settlement mint is zero"))
	}
	addr, bump, err := s.configAddress()
	if err != nil {
		return nil, err
	}

	cfg := &models.GlobalConfig{
		Admin:          caller,
		Relayer:        p.Relayer,
		SwapEngine:     p.SwapEngine,
		SettlementMint: p.SettlementMint,
		FeeRecipient:   p.FeeRecipient,
		FeeBps:         p.FeeBps,
		Bump:           bump,
	}
	_, err = s.rt.Execute(ctx, runtime.Invocation{
		Signers:  []solana.PublicKey{caller},
		Accounts: []solana.PublicKey{addr},
	}, func(x *runtime.Context) error {
		if err := x.RequireSigner(caller); err != nil {
			return codes.Wrap(codes.Unauthorized, err)
		}
		return x.InitConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin":       cfg.Admin.String(),
		"relayer":     cfg.Relayer.String(),
		"swap_engine": cfg.SwapEngine.String(),
		"fee_bps":     cfg.FeeBps,
	}).Info("settlement program initialized")
	s.emit(ctx, audit.EventConfigInitialized, caller, configAttrs(cfg))
	return cfg, nil
}

// UpdateConfig applies the non-nil fields of p. Every field is validated
// before anything is written.
func (s *Service) UpdateConfig(ctx context.Context, caller solana.PublicKey, p models.UpdateConfigParams) (*models.GlobalConfig, error) {
	if p.FeeBps != nil {
		if err := fees.ValidateBps(*p.FeeBps); err != nil {
			return nil, err
		}
	}
	cfg, err := s.mutate(ctx, caller, func(c *models.GlobalConfig) {
		if p.Admin != nil {
			c.Admin = *p.Admin
		}
		if p.Relayer != nil {
			c.Relayer = *p.Relayer
		}
		if p.SwapEngine != nil {
			c.SwapEngine = *p.SwapEngine
		}
		if p.FeeRecipient != nil {
			c.FeeRecipient = *p.FeeRecipient
		}
		if p.FeeBps != nil {
			c.FeeBps = *p.FeeBps
		}
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"admin":   cfg.Admin.String(),
		"fee_bps": cfg.FeeBps,
	}).Info("settlement config updated")
	s.emit(ctx, audit.EventConfigUpdated, caller, configAttrs(cfg))
	return cfg, nil
}

func (s *Service) Pause(ctx context.Context, caller solana.PublicKey) error {
	if _, err := s.mutate(ctx, caller, func(c *models.GlobalConfig) { c.Paused = true }); err != nil {
		return err
	}
	s.logger.Warn("settlement program paused")
	s.emit(ctx, audit.EventProgramPaused, caller, nil)
	return nil
}

func (s *Service) Unpause(ctx context.Context, caller solana.PublicKey) error {
	if _, err := s.mutate(ctx, caller, func(c *models.GlobalConfig) { c.Paused = false }); err != nil {
		return err
	}
	s.logger.Info("settlement program unpaused")
	s.emit(ctx, audit.EventProgramUnpaused, caller, nil)
	return nil
}

// RecoverFunds moves amount out of an account owned by the program
// authority. Both accounts must hold p.Mint.
func (s *Service) RecoverFunds(ctx context.Context, caller solana.PublicKey, p models.RecoverFundsParams) error {
	addr, _, err := s.configAddress()
	if err != nil {
		return err
	}
	_, err = s.rt.Execute(ctx, runtime.Invocation{
		Signers:  []solana.PublicKey{caller},
		Accounts: []solana.PublicKey{addr, p.Source, p.Destination},
	}, func(x *runtime.Context) error {
		cfg, err := authorize(x, caller)
		if err != nil {
			return err
		}
		src, err := s.custody.Account(x, p.Source)
		if err != nil {
			return codes.Wrap(codes.SettlementAccountNotFound, err)
		}
		dst, err := s.custody.Account(x, p.Destination)
		if err != nil {
			return codes.Wrap(codes.DestinationAccountNotFound, err)
		}
		if !src.Mint.Equals(p.Mint) {
			return codes.Wrap(codes.InvalidTokenMint, fmt.Errorf("source mint %s", src.Mint))
		}
		if !dst.Mint.Equals(p.Mint) {
			return codes.Wrap(codes.InvalidTokenMint, fmt.Errorf("destination mint %s", dst.Mint))
		}
		seeds := address.ConfigSignerSeeds(cfg.Bump)
		if err := s.custody.Transfer(x, p.Source, p.Destination, custody.SystemOwned(seeds...), p.Amount); err != nil {
			return codes.Wrap(codes.CustodyTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"mint":        p.Mint.String(),
		"source":      p.Source.String(),
		"destination": p.Destination.String(),
		"amount":      p.Amount,
	}).Warn("funds recovered")
	s.emit(ctx, audit.EventFundsRecovered, caller, map[string]string{
		"mint":        p.Mint.String(),
		"source":      p.Source.String(),
		"destination": p.Destination.String(),
		"amount":      strconv.FormatUint(p.Amount, 10),
	})
	return nil
}

// mutate runs fn on the current configuration under the config lock and
// stores the result. Only the admin may call it.
func (s *Service) mutate(ctx context.Context, caller solana.PublicKey, fn func(c *models.GlobalConfig)) (*models.GlobalConfig, error) {
	addr, _, err := s.configAddress()
	if err != nil {
		return nil, err
	}
	var out *models.GlobalConfig
	_, err = s.rt.Execute(ctx, runtime.Invocation{
		Signers:  []solana.PublicKey{caller},
		Accounts: []solana.PublicKey{addr},
	}, func(x *runtime.Context) error {
		cfg, err := authorize(x, caller)
		if err != nil {
			return err
		}
		fn(cfg)
		out = cfg
		return x.PutConfig(cfg)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func authorize(x *runtime.Context, caller solana.PublicKey) (*models.GlobalConfig, error) {
	cfg, err := x.Config()
	if err != nil {
		return nil, err
	}
	if !caller.Equals(cfg.Admin) || !x.IsSigner(caller) {
		return nil, codes.Wrap(codes.Unauthorized, fmt.Errorf("caller %s is not the admin", caller))
	}
	return cfg, nil
}

func (s *Service) emit(ctx context.Context, typ audit.EventType, actor solana.PublicKey, attrs map[string]string) {
	ev := audit.NewAdminEvent(typ, actor, attrs, s.rt.Now())
	if err := s.emitter.Emit(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.WithError(err).WithField("event_type", typ).Warn("failed to emit event")
	}
}

func configAttrs(c *models.GlobalConfig) map[string]string {
	return map[string]string{
		"admin":           c.Admin.String(),
		"relayer":         c.Relayer.String(),
		"swap_engine":     c.SwapEngine.String(),
		"settlement_mint": c.SettlementMint.String(),
		"fee_recipient":   c.FeeRecipient.String(),
		"fee_bps":         strconv.Itoa(int(c.FeeBps)),
		"paused":          strconv.FormatBool(c.Paused),
	}
}
