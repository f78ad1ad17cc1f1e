package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type DB struct {
	*sqlx.DB
	logger *zap.Logger
}

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// New opens the pool and waits until the server answers, bounded by
// ConnectTimeout (5s when unset).
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*DB, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("PostgreSQL connected",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return Wrap(conn, logger), nil
}

// Wrap adopts an already open pool, e.g. one backed by sqlmock.
func Wrap(conn *sqlx.DB, logger *zap.Logger) *DB {
	return &DB{DB: conn, logger: logger}
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		db.logger.Error("could not close database", zap.Error(err))
		return fmt.Errorf("could not close postgres connection: %w", err)
	}
	db.logger.Info("postgres connection closed")
	return nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

type PoolStats struct {
	Open         int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}

func (db *DB) PoolStats() PoolStats {
	s := db.Stats()
	return PoolStats{
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}

// ReportPool logs pool counters every interval until ctx is done. Growth in
// WaitCount means dashboard reads are queueing for connections.
func (db *DB) ReportPool(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastWaits int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := db.PoolStats()
			fields := []zap.Field{
				zap.Int("open", s.Open),
				zap.Int("in_use", s.InUse),
				zap.Int("idle", s.Idle),
				zap.Int64("wait_count", s.WaitCount),
				zap.Duration("wait_duration", s.WaitDuration),
			}
			if s.WaitCount > lastWaits {
				db.logger.Warn("Postgres pool saturated", fields...)
			} else {
				db.logger.Debug("Postgres pool", fields...)
			}
			lastWaits = s.WaitCount
		}
	}
}
