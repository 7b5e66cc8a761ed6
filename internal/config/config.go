package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Loyalty  LoyaltyConfig
	Table    TableConfig
	Auth     AuthConfig
	LogLevel string

	// SeedDemoData inserts a demo menu and tables on startup.
	SeedDemoData bool
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderCreated       string
	OrderStatusChanged string
	OrderPaid          string
	PaymentCreated     string
}

// All returns every topic the service produces to.
func (t TopicConfig) All() []string {
	return []string{t.OrderCreated, t.OrderStatusChanged, t.OrderPaid, t.PaymentCreated}
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	ConnRetries  int
}

type GatewayConfig struct {
	StripeSecretKey string
	Currency        string
	ReturnURL       string
	CancelURL       string
	SessionTTL      time.Duration
}

// Enabled reports whether a payment gateway can be built.
func (g GatewayConfig) Enabled() bool {
	return g.StripeSecretKey != ""
}

type LoyaltyConfig struct {
	PointsUnit int64
}

type TableConfig struct {
	LockTTL time.Duration
}

type AuthConfig struct {
	OIDCIssuer   string
	OIDCClientID string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "restaurant"),
			Password:     getEnv("DB_PASSWORD", "restaurant"),
			Database:     getEnv("DB_NAME", "restaurant"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnRetries:  getEnvInt("DB_CONN_RETRIES", 5),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderCreated:       getEnv("KAFKA_TOPIC_ORDER_CREATED", "restaurant.order.created"),
				OrderStatusChanged: getEnv("KAFKA_TOPIC_ORDER_STATUS", "restaurant.order.status_changed"),
				OrderPaid:          getEnv("KAFKA_TOPIC_ORDER_PAID", "restaurant.order.paid"),
				PaymentCreated:     getEnv("KAFKA_TOPIC_PAYMENT_CREATED", "restaurant.payment.created"),
			},
		},
		Gateway: GatewayConfig{
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:        getEnv("PAYMENT_CURRENCY", "vnd"),
			ReturnURL:       getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/payment/success"),
			CancelURL:       getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
			SessionTTL:      getEnvDuration("PAYMENT_SESSION_TTL", 48*time.Hour),
		},
		Loyalty: LoyaltyConfig{
			PointsUnit: int64(getEnvInt("LOYALTY_POINTS_UNIT", 1000)),
		},
		Table: TableConfig{
			LockTTL: time.Duration(getEnvInt("TABLE_LOCK_TTL_SECONDS", 30)) * time.Second,
		},
		Auth: AuthConfig{
			OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
			OIDCClientID: getEnv("OIDC_CLIENT_ID", "restaurant-api"),
		},
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		SeedDemoData: getEnvBool("SEED_DEMO_DATA", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
