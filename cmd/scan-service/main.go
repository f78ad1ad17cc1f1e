package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/analytics"
	"github.com/Wuchinator/scan-analytics/internal/config"
	"github.com/Wuchinator/scan-analytics/internal/dashboard"
	"github.com/Wuchinator/scan-analytics/internal/scan"
	"github.com/Wuchinator/scan-analytics/internal/server"
	"github.com/Wuchinator/scan-analytics/pkg/kafka"
	"github.com/Wuchinator/scan-analytics/pkg/logger"
	"github.com/Wuchinator/scan-analytics/pkg/postgres"
	"github.com/Wuchinator/scan-analytics/pkg/redis"
)

const serviceName = "scan-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Error initializing logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, serviceName)
	log.Info("Starting Scan Service",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
	)

	db, err := postgres.New(context.Background(), postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Error initializing postgres client", zap.Error(err))
	}
	defer db.Close()

	store, err := scan.NewPostgresStore(db.DB, cfg.Postgres.ScanTable, log)
	if err != nil {
		log.Fatal("Error initializing scan store", zap.Error(err))
	}
	if cfg.Postgres.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := store.InitSchema(ctx)
		cancel()
		if err != nil {
			log.Fatal("Error initializing scan schema", zap.Error(err))
		}
	}

	checks := map[string]server.HealthCheck{
		"postgres": db.HealthCheck,
	}

	var publisher scan.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			Topic:            cfg.Kafka.Topic,
			Retries:          cfg.Kafka.ProducerRetries,
			Timeout:          cfg.Kafka.ProducerTimeout,
			RequiredAcks:     cfg.Kafka.RequiredAcks,
			Compression:      cfg.Kafka.CompressionType,
			IdempotentWrites: cfg.Kafka.IdempotentWrites,
			MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
		}, log)
		if err != nil {
			log.Fatal("Error initializing kafka", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
	}

	var cache dashboard.Cache = dashboard.NoopCache{}
	if cfg.Redis.Enabled {
		rdb, err := redis.New(redis.Config{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, log)
		if err != nil {
			log.Fatal("Error initializing redis", zap.Error(err))
		}
		defer rdb.Close()
		cache = dashboard.NewRedisCache(rdb.Client, "dashboard")
		checks["redis"] = rdb.HealthCheck
	}

	scanService := scan.NewService(store, publisher, log)
	scanHandler := scan.NewHandler(scanService, log)

	engine := analytics.NewEngine(store, analytics.Config{
		SummarySampleLimit:    cfg.Analytics.SummarySampleLimit,
		CategorySampleLimit:   cfg.Analytics.CategorySampleLimit,
		TimeSeriesSampleLimit: cfg.Analytics.TimeSeriesSampleLimit,
		MaxWindowDays:         cfg.Analytics.MaxWindowDays,
	}, log)

	dashboardService := dashboard.NewService(engine, scanService, cache, cfg.Analytics.CacheTTL, log)
	dashboardHandler := dashboard.NewHandler(dashboardService, dashboard.HandlerConfig{
		DefaultWindowDays:  cfg.Analytics.DefaultWindowDays,
		MaxWindowDays:      cfg.Analytics.MaxWindowDays,
		RecentDefaultLimit: cfg.Analytics.RecentDefaultLimit,
		RecentMaxLimit:     cfg.Analytics.RecentMaxLimit,
	}, log)

	router := server.NewRouter(scanHandler, dashboardHandler, server.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Checks:         checks,
	}, log)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC carries only the health protocol for orchestrators.
	grpcServer, healthServer := server.NewGRPCHealthServer(serviceName, log)
	listener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("Error initializing gRPC listener", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.WatchHealth(ctx, healthServer, serviceName, cfg.HTTP.HealthInterval, checks, log)
	go db.ReportPool(ctx, cfg.HTTP.HealthInterval)

	go func() {
		log.Info("Starting gRPC health server", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(listener); err != nil {
			log.Error("gRPC server stopped with error", zap.Error(err))
		}
	}()

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Error running HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Scan Service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown timed out", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("gRPC server stopped")
	case <-shutdownCtx.Done():
		log.Warn("gRPC shutdown timed out")
		grpcServer.Stop()
	}

	log.Info("Scan Service stopped")
}
