package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Wuchinator/scan-analytics/internal/analytics"
	"github.com/Wuchinator/scan-analytics/internal/scan"
)

// Views is implemented by analytics.Engine.
type Views interface {
	GetSummary(ctx context.Context, userID string) (*analytics.Summary, error)
	GetCategoryBreakdownBy(ctx context.Context, userID string, dim analytics.Dimension) (map[string]analytics.CategoryBucket, error)
	GetTimeSeries(ctx context.Context, userID string, windowDays int) ([]analytics.DayBucket, error)
}

// RecentLister is implemented by scan.Service.
type RecentLister interface {
	Recent(ctx context.Context, userID string, limit int) ([]*scan.Event, error)
}

// Overview is every dashboard view in one payload.
type Overview struct {
	Summary    *analytics.Summary                  `json:"summary"`
	Categories map[string]analytics.CategoryBucket `json:"byType"`
	Points     []analytics.DayBucket               `json:"points"`
	Days       int                                 `json:"days"`
}

type Service struct {
	views  Views
	recent RecentLister
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewService wires the dashboard reads. A nil cache or non-positive ttl
// disables caching.
func NewService(views Views, recent RecentLister, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if cache == nil || ttl <= 0 {
		cache = NoopCache{}
	}
	return &Service{
		views:  views,
		recent: recent,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *Service) Summary(ctx context.Context, userID string) (*analytics.Summary, error) {
	if userID == "" {
		return nil, scan.ErrNotAuthenticated
	}

	var cached analytics.Summary
	if s.cacheGet(ctx, userID, "summary", &cached) {
		return &cached, nil
	}

	summary, err := s.views.GetSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, userID, "summary", summary)
	return summary, nil
}

func (s *Service) Categories(ctx context.Context, userID string, dim analytics.Dimension) (map[string]analytics.CategoryBucket, error) {
	return s.views.GetCategoryBreakdownBy(ctx, userID, dim)
}

func (s *Service) TimeSeries(ctx context.Context, userID string, days int) ([]analytics.DayBucket, error) {
	return s.views.GetTimeSeries(ctx, userID, days)
}

func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]*scan.Event, error) {
	return s.recent.Recent(ctx, userID, limit)
}

// Overview computes the summary, the scan-type breakdown and the time
// series concurrently. The first failure cancels the others.
func (s *Service) Overview(ctx context.Context, userID string, days int) (*Overview, error) {
	if userID == "" {
		return nil, scan.ErrNotAuthenticated
	}

	view := fmt.Sprintf("overview:%d", days)

	var cached Overview
	if s.cacheGet(ctx, userID, view, &cached) {
		return &cached, nil
	}

	out := &Overview{Days: days}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.views.GetSummary(gctx, userID)
		if err != nil {
			return err
		}
		out.Summary = summary
		return nil
	})

	g.Go(func() error {
		categories, err := s.views.GetCategoryBreakdownBy(gctx, userID, analytics.DimensionScanType)
		if err != nil {
			return err
		}
		out.Categories = categories
		return nil
	})

	g.Go(func() error {
		points, err := s.views.GetTimeSeries(gctx, userID, days)
		if err != nil {
			return err
		}
		out.Points = points
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build dashboard overview",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, err
	}

	s.cacheSet(ctx, userID, view, out)
	return out, nil
}

func (s *Service) cacheGet(ctx context.Context, userID, view string, dst any) bool {
	hit, err := s.cache.Get(ctx, userID, view, dst)
	if err != nil {
		s.logger.Warn("Dashboard cache read failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("view", view),
		)
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, userID, view string, value any) {
	if err := s.cache.Set(ctx, userID, view, value, s.ttl); err != nil {
		s.logger.Warn("Dashboard cache write failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("view", view),
		)
	}
}
