package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/inventory-ledger/internal/adapter/handler"
	"github.com/rl1809/inventory-ledger/internal/adapter/handler/pb"
	"github.com/rl1809/inventory-ledger/internal/adapter/storage"
	"github.com/rl1809/inventory-ledger/internal/config"
	"github.com/rl1809/inventory-ledger/internal/core/service"
	"github.com/rl1809/inventory-ledger/internal/logging"
	"github.com/rl1809/inventory-ledger/internal/port"
	"github.com/rl1809/inventory-ledger/internal/worker"
)

const sweepInterval = time.Minute

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := service.NewLedger(service.WithDefaultMaxLevel(cfg.DefaultMaxLevel))

	// Initialize idempotency store
	var idempotency port.IdempotencyStore
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		redisAdapter := storage.NewRedisAdapter(rdb, cfg.IdempotencyTTL)
		if err := redisAdapter.Ping(ctx); err != nil {
			logger.Fatal("failed to connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		idempotency = redisAdapter
	} else {
		memory := storage.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
		go sweep(ctx, memory, logger)
		idempotency = memory
	}

	// Initialize outbox
	outbox, closeOutbox, err := openOutbox(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open outbox", zap.String("driver", cfg.OutboxDriver), zap.Error(err))
	}

	orderService := service.NewOrderService(ledger, idempotency, cfg.QueueSize, logger)

	// Start worker pool
	dispatcher := worker.NewDispatcher(outbox, ledger, logger)
	wg := dispatcher.Start(cfg.WorkerCount, orderService.GetFulfillmentQueue())
	logger.Info("started workers", zap.Int("count", cfg.WorkerCount))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	pb.RegisterInventoryServiceServer(grpcServer, handler.NewGRPCHandler(ledger, orderService, logger))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(pb.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.NewHTTPHandler(ledger, orderService, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close fulfillment queue and wait for workers
	orderService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	cancel()
	if rdb != nil {
		rdb.Close()
	}
	closeOutbox()
	logger.Info("connections closed")
}

// openOutbox connects the fulfillment outbox selected by cfg. With no driver
// configured it returns a nil repository and the dispatcher only logs.
func openOutbox(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.FulfillmentRepository, func(), error) {
	var (
		repo    port.FulfillmentRepository
		closeFn func()
	)

	switch cfg.OutboxDriver {
	case config.OutboxMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		repo = storage.NewMySQLAdapter(db)
		closeFn = func() { db.Close() }
	case config.OutboxPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo = storage.NewPostgresAdapter(pool)
		closeFn = pool.Close
	default:
		logger.Info("no outbox configured, fulfillments are logged only")
		return nil, func() {}, nil
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Info("connected to outbox", zap.String("driver", cfg.OutboxDriver))
	return repo, closeFn, nil
}

func sweep(ctx context.Context, store *storage.MemoryIdempotencyStore, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("swept idempotency keys", zap.Int("count", n))
			}
		}
	}
}
