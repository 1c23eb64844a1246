package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
)

// MemoryStore keeps records in process. Used for single-node runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	config   *models.GlobalConfig
	orders   map[uint64]*models.SettlementOrder
	accounts map[solana.PublicKey]ledger.TokenAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[uint64]*models.SettlementOrder),
		accounts: make(map[solana.PublicKey]ledger.TokenAccount),
	}
}

func (s *MemoryStore) GetConfig(_ context.Context) (*models.GlobalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, ErrNotFound
	}
	c := *s.config
	return &c, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID uint64) (*models.SettlementOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (s *MemoryStore) ListOrders(_ context.Context, limit int) ([]*models.SettlementOrder, error) {
	s.mu.RLock()
	out := make([]*models.SettlementOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Apply(_ context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range b.Created {
		if _, ok := s.orders[o.OrderID]; ok {
			return fmt.Errorf("create order %d: %w", o.OrderID, ErrExists)
		}
	}
	for _, o := range b.Updated {
		if _, ok := s.orders[o.OrderID]; !ok {
			return fmt.Errorf("update order %d: %w", o.OrderID, ErrNotFound)
		}
	}

	if b.Config != nil {
		c := *b.Config
		s.config = &c
	}
	for _, o := range b.Created {
		s.orders[o.OrderID] = o.Clone()
	}
	for _, o := range b.Updated {
		s.orders[o.OrderID] = o.Clone()
	}
	for _, acc := range b.Accounts {
		s.accounts[acc.Address] = acc
	}
	return nil
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]ledger.TokenAccount, error) {
	s.mu.RLock()
	out := make([]ledger.TokenAccount, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
