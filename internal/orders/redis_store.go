package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout for tracked orders.
const (
	orderKeyPrefix = "smc:pending_order"
	orderSetKey    = "smc:pending_orders:tickets"
)

// RedisStore mirrors the tracker's ticket map into Redis so resting orders
// survive a process restart. Entries expire on their own shortly after the
// order would have, as a backstop against leaked keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func orderKey(ticket int64) string {
	return fmt.Sprintf("%s:%d", orderKeyPrefix, ticket)
}

// Save writes one order and registers its ticket in the index set.
func (s *RedisStore) Save(ctx context.Context, order PendingOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %d: %w", order.Ticket, err)
	}

	ttl := time.Until(order.ExpiresAt) + time.Hour
	if ttl < time.Minute {
		ttl = time.Minute
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, orderKey(order.Ticket), data, ttl)
	pipe.SAdd(ctx, orderSetKey, order.Ticket)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist order %d: %w", order.Ticket, err)
	}
	return nil
}

// Remove deletes one order and its index entry.
func (s *RedisStore) Remove(ctx context.Context, ticket int64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, orderKey(ticket))
	pipe.SRem(ctx, orderSetKey, ticket)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove order %d: %w", ticket, err)
	}
	return nil
}

// LoadAll reads every persisted order. Index entries whose value key has
// already expired are cleaned up as they are encountered.
func (s *RedisStore) LoadAll(ctx context.Context) ([]PendingOrder, error) {
	tickets, err := s.client.SMembers(ctx, orderSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list tracked tickets: %w", err)
	}

	var orders []PendingOrder
	for _, ticket := range tickets {
		data, err := s.client.Get(ctx, orderKeyPrefix+":"+ticket).Bytes()
		if err == redis.Nil {
			s.client.SRem(ctx, orderSetKey, ticket)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load order %s: %w", ticket, err)
		}

		var order PendingOrder
		if err := json.Unmarshal(data, &order); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", ticket, err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}
