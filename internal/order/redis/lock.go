package redis

import (
	"context"
	"fmt"
	"time"

	"ms-restaurant/internal/logger"

	"github.com/go-redis/redis/v8"
)

const defaultLockTTL = 30 * time.Second

// unlockScript deletes the key only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TableLock serialises table assignment across service instances.
type TableLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewTableLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *TableLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &TableLock{
		Client: client,
		TTL:    ttl,
		Logger: log,
	}
}

func lockKey(tableID string) string {
	return "table_lock:" + tableID
}

// IsTableLocked reports whether an assignment for the table is in flight.
func (l *TableLock) IsTableLocked(ctx context.Context, tableID string) (bool, error) {
	n, err := l.Client.Exists(ctx, lockKey(tableID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockTable takes the table for orderID. It returns false if someone else holds it.
func (l *TableLock) LockTable(ctx context.Context, tableID, orderID string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, lockKey(tableID), orderID, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock table %s: %w", tableID, err)
	}
	if ok {
		l.Logger.Debug("REDIS", fmt.Sprintf("Table %s locked for order %s (ttl %s)", tableID, orderID, l.TTL))
	}
	return ok, nil
}

// UnlockTable releases the lock if orderID still owns it.
func (l *TableLock) UnlockTable(ctx context.Context, tableID, orderID string) error {
	res, err := unlockScript.Run(ctx, l.Client, []string{lockKey(tableID)}, orderID).Int()
	if err != nil {
		return fmt.Errorf("unlock table %s: %w", tableID, err)
	}
	if res == 0 {
		l.Logger.Debug("REDIS", fmt.Sprintf("Table %s lock not held by order %s", tableID, orderID))
	}
	return nil
}
