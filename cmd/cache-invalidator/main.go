package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/config"
	"github.com/Wuchinator/scan-analytics/internal/dashboard"
	"github.com/Wuchinator/scan-analytics/pkg/kafka"
	"github.com/Wuchinator/scan-analytics/pkg/logger"
	"github.com/Wuchinator/scan-analytics/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "cache-invalidator")
	log.Info("Starting Cache Invalidator",
		zap.String("environment", cfg.Environment),
		zap.String("consumer_group", cfg.Kafka.ConsumerGroup),
	)

	rdb, err := redis.New(redis.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	cache := dashboard.NewRedisCache(rdb.Client, "dashboard")

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:           cfg.Kafka.Brokers,
		Topics:            []string{cfg.Kafka.Topic},
		GroupID:           cfg.Kafka.ConsumerGroup,
		AutoCommit:        true,
		CommitInterval:    1 * time.Second,
		SessionTimeout:    10 * time.Second,
		RebalanceStrategy: "sticky",
	}, dashboard.InvalidationHandler(cache, log), log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	go func() {
		select {
		case <-consumer.WaitReady():
			log.Info("Kafka consumer is ready and consuming messages")
		case <-ctx.Done():
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")
	cancel()

	select {
	case <-done:
	case <-time.After(cfg.HTTP.ShutdownTimeout):
		log.Warn("Consumer did not stop in time")
	}

	log.Info("Cache Invalidator stopped")
}
