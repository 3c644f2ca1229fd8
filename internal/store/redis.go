package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/redis/go-redis/v9"
)

const ordersKey = "floor:orders"

// Redis keeps every order as one field of a hash, CBOR-encoded.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, key: ordersKey}
}

func (r *Redis) LoadOrders(ctx context.Context) ([]ledger.Order, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", r.key, err)
	}

	orders := make([]ledger.Order, 0, len(fields))
	for field, raw := range fields {
		o, err := decodeOrder([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode order %s: %w", field, err)
		}
		orders = append(orders, o)
	}
	slices.SortFunc(orders, func(a, b ledger.Order) int { return cmp.Compare(a.ID, b.ID) })
	return orders, nil
}

func (r *Redis) SaveOrder(ctx context.Context, o ledger.Order) error {
	raw, err := encodeOrder(o)
	if err != nil {
		return fmt.Errorf("encode order %d: %w", o.ID, err)
	}
	if err := r.client.HSet(ctx, r.key, strconv.FormatInt(o.ID, 10), raw).Err(); err != nil {
		return fmt.Errorf("hset order %d: %w", o.ID, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
