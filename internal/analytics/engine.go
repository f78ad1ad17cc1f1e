package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

// Reader is the read half of scan.Store.
type Reader interface {
	Count(ctx context.Context, filter scan.Filter) (int64, error)
	Query(ctx context.Context, filter scan.Filter, order scan.Order, limit int) ([]*scan.Event, error)
}

// Config caps every read the engine issues.
type Config struct {
	SummarySampleLimit    int
	CategorySampleLimit   int
	TimeSeriesSampleLimit int
	MaxWindowDays         int
}

func DefaultConfig() Config {
	return Config{
		SummarySampleLimit:    1000,
		CategorySampleLimit:   5000,
		TimeSeriesSampleLimit: 10000,
		MaxWindowDays:         365,
	}
}

// Engine computes the dashboard views. Every call reads its own bounded
// sample and folds it in memory, so calls are safe to run concurrently.
type Engine struct {
	store  Reader
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(store Reader, cfg Config, logger *zap.Logger) *Engine {
	def := DefaultConfig()
	if cfg.SummarySampleLimit <= 0 {
		cfg.SummarySampleLimit = def.SummarySampleLimit
	}
	if cfg.CategorySampleLimit <= 0 {
		cfg.CategorySampleLimit = def.CategorySampleLimit
	}
	if cfg.TimeSeriesSampleLimit <= 0 {
		cfg.TimeSeriesSampleLimit = def.TimeSeriesSampleLimit
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = def.MaxWindowDays
	}

	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}
