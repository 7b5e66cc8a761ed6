package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionIndex remembers which checkout session belongs to an order code.
type SessionIndex interface {
	Save(ctx context.Context, orderCode int64, sessionID string, ttl time.Duration) error
	Lookup(ctx context.Context, orderCode int64) (string, error)
}

type RedisSessionIndex struct {
	Client *redis.Client
}

func NewRedisSessionIndex(client *redis.Client) *RedisSessionIndex {
	return &RedisSessionIndex{Client: client}
}

func sessionKey(orderCode int64) string {
	return fmt.Sprintf("payment_session:%d", orderCode)
}

func (r *RedisSessionIndex) Save(ctx context.Context, orderCode int64, sessionID string, ttl time.Duration) error {
	return r.Client.Set(ctx, sessionKey(orderCode), sessionID, ttl).Err()
}

// Lookup returns ErrSessionNotFound when no session was recorded or it has expired.
func (r *RedisSessionIndex) Lookup(ctx context.Context, orderCode int64) (string, error) {
	id, err := r.Client.Get(ctx, sessionKey(orderCode)).Result()
	if err == redis.Nil {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
