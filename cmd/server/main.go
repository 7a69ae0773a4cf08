package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/rl1809/tenant-catalog/internal/adapter/handler"
	"github.com/rl1809/tenant-catalog/internal/adapter/notifier"
	"github.com/rl1809/tenant-catalog/internal/adapter/storage"
	"github.com/rl1809/tenant-catalog/internal/core/cache"
	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/inventory"
	"github.com/rl1809/tenant-catalog/internal/core/pricing"
	"github.com/rl1809/tenant-catalog/internal/core/service"
	"github.com/rl1809/tenant-catalog/internal/core/tenant"
	"github.com/rl1809/tenant-catalog/internal/port"
	"github.com/rl1809/tenant-catalog/pkg/config"
	"github.com/rl1809/tenant-catalog/pkg/logger"
)

const (
	serviceName    = "tenant-catalog"
	serviceVersion = "0.1.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("failed to load config")
	}

	lg := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	log := lg.Component("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		log.Info().Msg("connections closed")
	}()

	var rdb *redis.Client
	redisClient := func() *redis.Client {
		if rdb != nil {
			return rdb
		}
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Storage.RedisAddr).Msg("failed to connect redis")
		}
		closers = append(closers, func() { rdb.Close() })
		log.Info().Str("addr", cfg.Storage.RedisAddr).Msg("connected to redis")
		return rdb
	}

	// Snapshot storage
	var snapshots port.SnapshotRepository
	bootstrap := slices.Clone(cfg.Tenants.Bootstrap)
	switch cfg.Storage.Driver {
	case "redis":
		redisAdapter := storage.NewRedisAdapter(redisClient())
		if len(bootstrap) == 0 {
			known, err := redisAdapter.Tenants(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to list persisted tenants")
			}
			for _, id := range known {
				bootstrap = append(bootstrap, string(id))
			}
		}
		snapshots = redisAdapter
	case "mysql":
		db, err := sql.Open("mysql", cfg.Storage.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open mysql")
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping mysql")
		}
		closers = append(closers, func() { db.Close() })
		log.Info().Msg("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare schema")
		}
		snapshots = mysqlAdapter
	default:
		snapshots = storage.NewMemoryAdapter()
	}

	// Alert sink
	var sink port.AlertNotifier
	switch cfg.Alerts.Sink {
	case "redis":
		sink = notifier.NewRedisPublisher(redisClient(), cfg.Alerts.Channel)
	case "kafka":
		kafkaPublisher := notifier.NewKafkaPublisher(cfg.Alerts.KafkaBrokers, cfg.Alerts.KafkaTopic)
		closers = append(closers, func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka writer")
			}
		})
		sink = kafkaPublisher
	default:
		sink = notifier.NewLogNotifier(lg.Zerolog())
	}
	dispatcher := notifier.NewDispatcher(sink, cfg.Workers.Count, cfg.Workers.QueueSize, lg.Zerolog())
	log.Info().Str("storage", cfg.Storage.Driver).Str("alerts", cfg.Alerts.Sink).Msg("adapters ready")

	// Core
	store := tenant.NewStore(tenant.Options{Strict: cfg.Tenants.Strict})
	catalogCache, err := cache.New(store, pricing.NewEngine(), cache.Config{
		TenantQuota: cfg.Cache.TenantQuota,
		MaxTenants:  cfg.Cache.MaxTenants,
	}, lg.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build catalog cache")
	}
	tracker := inventory.NewTracker(store, dispatcher, lg.Zerolog())
	catalog := service.NewCatalogService(store, tracker, catalogCache, snapshots, lg.Zerolog(), cfg.Workers.QueueSize)

	if cfg.Tenants.SeedDemo && !slices.Contains(bootstrap, demoTenant) {
		bootstrap = append(bootstrap, demoTenant)
	}
	if err := catalog.Bootstrap(ctx, bootstrap); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap tenants")
	}
	log.Info().Strs("tenants", bootstrap).Msg("tenants bootstrapped")

	if cfg.Tenants.SeedDemo {
		seeded, err := seedDemo(ctx, catalog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo tenant")
		}
		log.Info().Bool("seeded", seeded).Str("tenant_id", demoTenant).Msg("demo tenant ready")
	}

	// Write-behind worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers.Count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, catalog.DirtyTenants(), catalog, cfg.Storage.FlushTimeout, lg.Zerolog())
		}(i)
	}
	log.Info().Int("workers", cfg.Workers.Count).Msg("started snapshot workers")

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterCatalogServer(grpcServer, handler.NewGRPCHandler(catalog))

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPC.Addr()).Msg("failed to listen")
	}
	go func() {
		log.Info().Str("addr", cfg.GRPC.Addr()).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(catalog, serviceName, serviceVersion)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	log.Info().Msg("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")

	// Drain the dirty queue, then save whatever a full queue dropped.
	catalog.Close()
	wg.Wait()
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Storage.FlushTimeout)
	defer flushCancel()
	if err := catalog.FlushAll(flushCtx); err != nil {
		log.Error().Err(err).Msg("final flush incomplete")
	}
	log.Info().Interface("cache", catalog.CacheStats()).Msg("workers stopped")

	dispatcher.Close()
}

func workerLoop(id int, queue <-chan domain.TenantID, catalog *service.CatalogService, timeout time.Duration, base zerolog.Logger) {
	log := base.With().Str("component", "snapshot_worker").Int("worker", id).Logger()
	for tenantID := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)

		if err := catalog.Flush(ctx, tenantID); err != nil {
			log.Error().Err(err).Str("tenant_id", string(tenantID)).Msg("failed to persist snapshot")
		} else {
			log.Debug().Str("tenant_id", string(tenantID)).Msg("persisted snapshot")
		}

		cancel()
	}
}
