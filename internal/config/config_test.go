package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(1000), cfg.Loyalty.PointsUnit)
	assert.Equal(t, 30*time.Second, cfg.Table.LockTTL)
	assert.False(t, cfg.Gateway.Enabled())
	assert.Len(t, cfg.Kafka.Topics.All(), 4)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("PAYMENT_SESSION_TTL", "2h")
	t.Setenv("TABLE_LOCK_TTL_SECONDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.True(t, cfg.Gateway.Enabled())
	assert.Equal(t, 2*time.Hour, cfg.Gateway.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Table.LockTTL)
}
