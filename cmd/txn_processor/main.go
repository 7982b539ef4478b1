package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/txn_processor/internal/adapters/brasilapi"
	"github.com/SscSPs/txn_processor/internal/adapters/breaker"
	"github.com/SscSPs/txn_processor/internal/adapters/broker"
	"github.com/SscSPs/txn_processor/internal/adapters/cache"
	"github.com/SscSPs/txn_processor/internal/adapters/ledger"
	"github.com/SscSPs/txn_processor/internal/adapters/lock"
	"github.com/SscSPs/txn_processor/internal/consumer"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/SscSPs/txn_processor/internal/core/services"
	"github.com/SscSPs/txn_processor/internal/handlers"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/SscSPs/txn_processor/internal/platform/config"
	"github.com/SscSPs/txn_processor/internal/repositories/database/pgsql"
	"github.com/SscSPs/txn_processor/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const shutdownTimeout = 10 * time.Second

// @title Transaction Processor Ops API
// @version 1.0
// @description Operator endpoints for the transaction processor.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Transaction processor stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transaction processor stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return fmt.Errorf("failed to initialize database pool: %w", err)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		return err
	}

	// --- Redis (optional): shared rate cache and per-transaction lock ---
	var rateCache gateways.RateCache = cache.NewMemoryRateCache(cfg.RateCacheTTL)
	var locker gateways.Locker = lock.NoopLocker{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("Error closing Redis client", slog.String("error", cerr.Error()))
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping Redis: %w", err)
		}
		rateCache = cache.NewRedisRateCache(redisClient, cfg.RateCacheTTL)
		locker = lock.NewRedisLocker(redisClient, lock.WithExpiry(cfg.TxnLockExpiry))
		logger.Info("Redis connected; using shared rate cache and transaction lock.")
	}

	// --- Kafka producers ---
	dlqWriter := broker.NewWriter(cfg.KafkaBrokers, cfg.KafkaDLQTopic)
	defer closeQuietly(logger, "dead-letter writer", dlqWriter.Close)
	deadLetters := broker.NewDeadLetterPublisher(dlqWriter, cfg.KafkaRequestedTopic)

	var outcomes gateways.OutcomePublisher = broker.NoopOutcomePublisher{}
	if cfg.KafkaProcessedTopic != "" {
		outcomeWriter := broker.NewWriter(cfg.KafkaBrokers, cfg.KafkaProcessedTopic)
		defer closeQuietly(logger, "outcome writer", outcomeWriter.Close)
		outcomes = broker.NewOutcomePublisher(outcomeWriter)
	}

	// --- Outbound HTTP adapters ---
	ledgerClient := ledger.NewClient(cfg.LedgerBaseURL, cfg.LedgerResource, cfg.LedgerTimeout,
		ledger.WithBreaker(breaker.New("account-ledger", breaker.DefaultConfig(), logger)))
	quoteClient := brasilapi.NewClient(cfg.CurrencyAPIBaseURL, cfg.CurrencyAPITimeout,
		brasilapi.WithBreaker(breaker.New("brasilapi", breaker.DefaultConfig(), logger)))

	repos := pgsql.NewRepositoryProvider(dbPool)
	container, err := services.NewServiceContainer(cfg, repos, services.GatewayProvider{
		Ledger:      ledgerClient,
		Quotes:      quoteClient,
		RateCache:   rateCache,
		DeadLetters: deadLetters,
	})
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	// --- Consumer ---
	readers := make([]consumer.MessageReader, 0, cfg.ConsumerWorkers)
	for range cfg.ConsumerWorkers {
		readers = append(readers, broker.NewReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaRequestedTopic))
	}
	txnConsumer := consumer.New(container.Dispatcher, deadLetters, logger,
		consumer.WithLocker(locker),
		consumer.WithOutcomePublisher(outcomes),
		consumer.WithRetryPolicy(cfg.FatalRetryLimit, cfg.FatalRetryBackoff),
	)

	// --- Ops HTTP server ---
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware (logging, recovery, cors)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), middleware.CORS(cfg.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	if err := handlers.RegisterRoutes(r, cfg, container, repos.Health); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consumer starting",
			slog.Int("workers", cfg.ConsumerWorkers),
			slog.String("topic", cfg.KafkaRequestedTopic),
			slog.String("group_id", cfg.KafkaGroupID))
		return txnConsumer.Run(gctx, readers...)
	})
	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to run: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runMigrations applies all pending "up" migrations from cfg.MigrationsPath.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	// Open a temporary standard sql.DB connection for migrations
	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	// Closing the source and database driver also closes migrationDB
	if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
		return fmt.Errorf("migration close failed: source=%v database=%v", sourceErr, dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

func closeQuietly(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("Error closing "+name, slog.String("error", err.Error()))
	}
}
