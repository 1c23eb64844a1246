package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps borsh-encoded records in Redis. Orders are indexed in a
// sorted set scored by creation time; token accounts live in one hash
// keyed by address.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) GetConfig(ctx context.Context) (*models.GlobalConfig, error) {
	b, err := s.client.Get(ctx, constants.RedisKeyConfig).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return models.DecodeConfig(b)
}

func (s *RedisStore) GetOrder(ctx context.Context, orderID uint64) (*models.SettlementOrder, error) {
	b, err := s.client.Get(ctx, orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return models.DecodeOrder(b)
}

func (s *RedisStore) ListOrders(ctx context.Context, limit int) ([]*models.SettlementOrder, error) {
	if limit <= 0 {
		limit = constants.MaxListOrders
	}
	ids, err := s.client.ZRevRange(ctx, constants.RedisKeyOrderIndex, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list orders index: %w", err)
	}
	if len(ids) == 0 {
		return []*models.SettlementOrder{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, constants.RedisKeyOrderPrefix+id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget orders: %w", err)
	}

	out := make([]*models.SettlementOrder, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		o, err := models.DecodeOrder([]byte(str))
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Apply checks existence under WATCH and writes everything in one MULTI.
func (s *RedisStore) Apply(ctx context.Context, b Batch) error {
	if b.Empty() {
		return nil
	}

	type encoded struct {
		key   string
		value []byte
		order *models.SettlementOrder
	}
	var created, updated []encoded
	var watch []string
	for _, o := range b.Created {
		v, err := models.EncodeOrder(o)
		if err != nil {
			return err
		}
		created = append(created, encoded{key: orderKey(o.OrderID), value: v, order: o})
		watch = append(watch, orderKey(o.OrderID))
	}
	for _, o := range b.Updated {
		v, err := models.EncodeOrder(o)
		if err != nil {
			return err
		}
		updated = append(updated, encoded{key: orderKey(o.OrderID), value: v, order: o})
		watch = append(watch, orderKey(o.OrderID))
	}
	accounts := make([]any, 0, 2*len(b.Accounts))
	for _, acc := range b.Accounts {
		v, err := json.Marshal(acc)
		if err != nil {
			return fmt.Errorf("marshal account %s: %w", acc.Address, err)
		}
		accounts = append(accounts, acc.Address.String(), v)
	}
	var config []byte
	if b.Config != nil {
		v, err := models.EncodeConfig(b.Config)
		if err != nil {
			return err
		}
		config = v
		watch = append(watch, constants.RedisKeyConfig)
	}

	txf := func(tx *redis.Tx) error {
		for _, e := range created {
			n, err := tx.Exists(ctx, e.key).Result()
			if err != nil {
				return fmt.Errorf("check order %d: %w", e.order.OrderID, err)
			}
			if n > 0 {
				return fmt.Errorf("create order %d: %w", e.order.OrderID, ErrExists)
			}
		}
		for _, e := range updated {
			n, err := tx.Exists(ctx, e.key).Result()
			if err != nil {
				return fmt.Errorf("check order %d: %w", e.order.OrderID, err)
			}
			if n == 0 {
				return fmt.Errorf("update order %d: %w", e.order.OrderID, ErrNotFound)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if config != nil {
				pipe.Set(ctx, constants.RedisKeyConfig, config, 0)
			}
			for _, e := range created {
				pipe.Set(ctx, e.key, e.value, 0)
				pipe.ZAddNX(ctx, constants.RedisKeyOrderIndex, redis.Z{
					Score:  float64(e.order.CreatedAt.UnixMilli()),
					Member: strconv.FormatUint(e.order.OrderID, 10),
				})
			}
			for _, e := range updated {
				pipe.Set(ctx, e.key, e.value, 0)
			}
			if len(accounts) > 0 {
				pipe.HSet(ctx, constants.RedisKeyAccounts, accounts...)
			}
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, watch...); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("apply batch: concurrent modification: %w", err)
		}
		if errors.Is(err, ErrExists) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

func (s *RedisStore) ListAccounts(ctx context.Context) ([]ledger.TokenAccount, error) {
	vals, err := s.client.HGetAll(ctx, constants.RedisKeyAccounts).Result()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	out := make([]ledger.TokenAccount, 0, len(vals))
	for addr, v := range vals {
		var acc ledger.TokenAccount
		if err := json.Unmarshal([]byte(v), &acc); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", addr, err)
		}
		out = append(out, acc)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func orderKey(orderID uint64) string {
	return constants.RedisKeyOrderPrefix + strconv.FormatUint(orderID, 10)
}
