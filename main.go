package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-restaurant/internal/auth"
	"ms-restaurant/internal/config"
	"ms-restaurant/internal/database"
	"ms-restaurant/internal/database/migrations"
	"ms-restaurant/internal/kafka"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/loyalty"
	"ms-restaurant/internal/loyalty/loyalty_api"
	"ms-restaurant/internal/metrics"
	"ms-restaurant/internal/order"
	"ms-restaurant/internal/order/db"
	"ms-restaurant/internal/order/order_api"
	rediswrap "ms-restaurant/internal/order/redis"
	"ms-restaurant/internal/payment"
	"ms-restaurant/internal/payment/gateway"
	"ms-restaurant/internal/payment/handler"
	"ms-restaurant/internal/payment/storage"
	"ms-restaurant/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/uptrace/bun"
)

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client, nil
}

func newProducer(ctx context.Context, cfg config.KafkaConfig, log *logger.Logger) *kafka.Producer {
	if !cfg.Enabled {
		log.Warn("KAFKA", "Kafka disabled, events will only be logged")
		return kafka.NewDisabledProducer(cfg.Topics, log)
	}

	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := kafka.EnsureTopicsExist(topicCtx, cfg.Brokers, cfg.Topics.All(), log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Brokers))
	return kafka.NewProducer(cfg.Brokers, cfg.Topics, log)
}

// newGateway returns nil when no provider is configured so the payment
// service can refuse link requests instead of calling a half-built client.
func newGateway(cfg config.GatewayConfig, rdb *redis.Client, log *logger.Logger) gateway.Gateway {
	if !cfg.Enabled() {
		log.Warn("PAYMENT", "STRIPE_SECRET_KEY not set, payment links are disabled")
		return nil
	}
	gw, err := gateway.NewStripeGateway(cfg, gateway.NewRedisSessionIndex(rdb), log)
	if err != nil {
		log.Error("PAYMENT", fmt.Sprintf("Failed to build payment gateway: %v", err))
		return nil
	}
	log.Info("PAYMENT", "Stripe checkout gateway ready")
	return gw
}

func healthHandler(bunDB *bun.DB, rdb *redis.Client, payments storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok", "payments": "ok"}
		healthy := true
		if err := bunDB.PingContext(ctx); err != nil {
			checks["database"], healthy = err.Error(), false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"], healthy = err.Error(), false
		}
		if err := payments.HealthCheck(ctx); err != nil {
			checks["payments"], healthy = err.Error(), false
		}

		if !healthy {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{
				Success:   false,
				Message:   "Service unhealthy",
				Data:      checks,
				Timestamp: time.Now(),
			})
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "Service healthy", checks)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Close()
	log.Info("APP", "Starting restaurant service initialization")

	ctx := context.Background()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	if cfg.SeedDemoData {
		if err := database.SeedDemoData(ctx, bunDB, log); err != nil {
			log.Error("SEED", fmt.Sprintf("Failed to seed demo data: %v", err))
		}
	}

	redisClient, err := connectRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	producer := newProducer(ctx, cfg.Kafka, log)
	defer producer.Close()

	metrics.Register()

	orderStore := db.New(bunDB)
	loyaltyService := loyalty.NewService(loyalty.NewBunStore(bunDB), orderStore, cfg.Loyalty.PointsUnit, log)
	orderService := order.NewOrderService(
		orderStore,
		order.NewTransactor(orderStore),
		rediswrap.NewTableLock(redisClient, cfg.Table.LockTTL, log),
		producer,
		loyaltyService,
		log,
	)

	paymentStore := storage.NewPostgreSQLStore(bunDB, log)
	paymentService := payment.NewPaymentService(
		paymentStore,
		orderStore,
		payment.NewTransactor(bunDB, log),
		newGateway(cfg.Gateway, redisClient, log),
		producer,
		cfg.Gateway,
		log,
	)

	orderHandler := order_api.NewHandler(orderService, log)
	paymentHandler := handler.NewPaymentHandler(paymentService, log)
	loyaltyHandler := loyalty_api.NewHandler(loyaltyService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(log))

	r.Get("/health", healthHandler(bunDB, redisClient, paymentStore))
	r.Handle("/metrics", promhttp.Handler())

	var verifier auth.Verifier
	if cfg.Auth.OIDCIssuer != "" {
		verifier, err = auth.NewOIDCVerifier(ctx, cfg.Auth)
		if err != nil {
			log.Fatal("AUTH", err.Error())
		}
	} else {
		log.Warn("AUTH", "OIDC_ISSUER not set, API routes are unauthenticated")
	}

	r.Route("/api", func(r chi.Router) {
		if verifier != nil {
			r.Use(auth.Middleware(verifier, log))
			log.Info("AUTH", "Bearer token verification applied to /api routes")
		}
		orderHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)
		loyaltyHandler.RegisterRoutes(r)
	})
	log.Info("ROUTER", "Order, payment and loyalty routes registered under /api")

	server := &http.Server{
		Addr: cfg.Server.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Restaurant service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	}
	orderService.Wait()
	if err := runner.Close(); err != nil {
		log.Warn("MIGRATE", err.Error())
	}
	log.Info("HTTP", "Restaurant service shutdown complete")
}
