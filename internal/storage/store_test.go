package storage

import (
	"context"
	"testing"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectTestRedis returns nil when no local Redis is reachable.
func connectTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func setupTestRedis(t *testing.T) *redis.Client {
	client := connectTestRedis(t)
	if client == nil {
		t.Skip("Redis not available")
	}
	return client
}

func testOrder(id uint64, created time.Time) *models.SettlementOrder {
	return &models.SettlementOrder{
		OrderID:         id,
		Recipient:       solana.NewWallet().PublicKey(),
		GrossAmount:     1_000_000,
		MinOutput:       1000,
		DestinationMint: solana.SolMint,
		Deadline:        created.Unix() + 300,
		Status:          models.StatusPending,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func stores(t *testing.T) map[string]Store {
	out := map[string]Store{"memory": NewMemoryStore()}
	if client := connectTestRedis(t); client != nil {
		rs, err := NewRedisStore(client)
		require.NoError(t, err)
		out["redis"] = rs
	}
	return out
}

func TestStore_CreateIsInsertIfAbsent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			first := testOrder(1, now)
			require.NoError(t, s.Apply(ctx, Batch{Created: []*models.SettlementOrder{first}}))

			dup := testOrder(1, now.Add(time.Second))
			dup.GrossAmount = 5
			err := s.Apply(ctx, Batch{Created: []*models.SettlementOrder{dup}})
			assert.ErrorIs(t, err, ErrExists)

			got, err := s.GetOrder(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, uint64(1_000_000), got.GrossAmount)
			assert.Equal(t, first.Recipient, got.Recipient)
		})
	}
}

func TestStore_ApplyIsAllOrNothing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			cfg := &models.GlobalConfig{FeeBps: 30}
			err := s.Apply(ctx, Batch{
				Config:  cfg,
				Created: []*models.SettlementOrder{testOrder(2, now)},
				Updated: []*models.SettlementOrder{testOrder(99, now)},
			})
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.GetConfig(ctx)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetOrder(ctx, 2)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_UpdateAndList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Millisecond)

			for i := uint64(1); i <= 3; i++ {
				require.NoError(t, s.Apply(ctx, Batch{Created: []*models.SettlementOrder{testOrder(i, base.Add(time.Duration(i)*time.Second))}}))
			}

			o, err := s.GetOrder(ctx, 2)
			require.NoError(t, err)
			o.Status = models.StatusFailed
			require.NoError(t, s.Apply(ctx, Batch{Updated: []*models.SettlementOrder{o}}))

			got, err := s.GetOrder(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, models.StatusFailed, got.Status)

			list, err := s.ListOrders(ctx, 2)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, uint64(3), list[0].OrderID)
			assert.Equal(t, uint64(2), list[1].OrderID)
		})
	}
}

func TestRedisStore_KeepsBorshRecords(t *testing.T) {
	client := setupTestRedis(t)
	s, err := NewRedisStore(client)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, Batch{Created: []*models.SettlementOrder{testOrder(7, time.Now().UTC())}}))

	raw, err := client.Get(ctx, orderKey(7)).Bytes()
	require.NoError(t, err)
	assert.Equal(t, models.OrderDiscriminator[:], raw[:8])

	n, err := client.ZCard(ctx, "settlement:orders").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_AccountsFollowBatches(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			owner := solana.NewWallet().PublicKey()
			custody := ledger.TokenAccount{Address: solana.NewWallet().PublicKey(), Owner: owner, Mint: solana.SolMint, Amount: 1_000_000}
			fee := ledger.TokenAccount{Address: solana.NewWallet().PublicKey(), Owner: owner, Mint: solana.SolMint}

			require.NoError(t, s.Apply(ctx, Batch{
				Created:  []*models.SettlementOrder{testOrder(4, time.Now().UTC())},
				Accounts: []ledger.TokenAccount{custody, fee},
			}))

			custody.Amount = 997_000
			fee.Amount = 3_000
			require.NoError(t, s.Apply(ctx, Batch{Accounts: []ledger.TokenAccount{custody, fee}}))

			got, err := s.ListAccounts(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []ledger.TokenAccount{custody, fee}, got)
		})
	}
}

func TestStore_FailedApplyKeepsAccounts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := ledger.TokenAccount{Address: solana.NewWallet().PublicKey(), Owner: solana.NewWallet().PublicKey(), Mint: solana.SolMint, Amount: 10}

			err := s.Apply(ctx, Batch{
				Updated:  []*models.SettlementOrder{testOrder(42, time.Now().UTC())},
				Accounts: []ledger.TokenAccount{acc},
			})
			assert.ErrorIs(t, err, ErrNotFound)

			got, err := s.ListAccounts(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}
