package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	*goredis.Client
	logger *zap.Logger
}

type Config struct {
	URL      string
	Password string
	// DB overrides the database from URL when positive.
	DB       int
	PoolSize int
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	if opts.Password == "" && cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not ping redis: %w", err)
	}

	logger.Info("Redis connected",
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize),
	)

	return &Client{
		Client: client,
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	if err := c.Client.Close(); err != nil {
		c.logger.Error("could not close redis", zap.Error(err))
		return fmt.Errorf("could not close redis connection: %w", err)
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
