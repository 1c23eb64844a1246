package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)

// Batch is the set of record writes produced by one committed call.
// Accounts holds the final state of every token account the call changed.
type Batch struct {
	Config   *models.GlobalConfig
	Created  []*models.SettlementOrder
	Updated  []*models.SettlementOrder
	Accounts []ledger.TokenAccount
}

// Empty reports whether the batch carries no writes.
func (b Batch) Empty() bool {
	return b.Config == nil && len(b.Created) == 0 && len(b.Updated) == 0 && len(b.Accounts) == 0
}

// ConfigReader reads the configuration singleton.
type ConfigReader interface {
	// GetConfig returns ErrNotFound before initialization
	GetConfig(ctx context.Context) (*models.GlobalConfig, error)
}

// OrderReader reads settlement orders.
type OrderReader interface {
	// GetOrder returns ErrNotFound for unknown ids
	GetOrder(ctx context.Context, orderID uint64) (*models.SettlementOrder, error)

	// ListOrders returns up to limit orders, newest first
	ListOrders(ctx context.Context, limit int) ([]*models.SettlementOrder, error)
}

// AccountReader reads persisted token account balances.
type AccountReader interface {
	// ListAccounts returns every account written by a committed call
	ListAccounts(ctx context.Context) ([]ledger.TokenAccount, error)
}

// Store persists configuration, orders and the token accounts they move.
type Store interface {
	ConfigReader
	OrderReader
	AccountReader

	// Apply writes the batch atomically, account balances included. A
	// created order whose id is already taken fails with ErrExists; an
	// updated order that does not exist fails with ErrNotFound. Nothing is
	// written on failure.
	Apply(ctx context.Context, b Batch) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}
