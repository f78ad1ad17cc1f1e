package analytics

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

const dayLayout = "2006-01-02"

// ClampWindow bounds a requested window to [1, maxDays].
func ClampWindow(days, maxDays int) int {
	if days < 1 {
		return 1
	}
	if maxDays > 0 && days > maxDays {
		return maxDays
	}
	return days
}

// GetTimeSeries returns one bucket per UTC day for the trailing windowDays
// days, today included, oldest first. Days without scans are zero buckets.
// Scans dated past today (clock skew) get a bucket of their own rather than
// being dropped.
func (e *Engine) GetTimeSeries(ctx context.Context, userID string, windowDays int) ([]DayBucket, error) {
	if userID == "" {
		return nil, scan.ErrNotAuthenticated
	}

	days := ClampWindow(windowDays, e.cfg.MaxWindowDays)
	today := startOfDay(e.now())
	from := today.AddDate(0, 0, -(days - 1))

	buckets := make(groups, days)
	for i := 0; i < days; i++ {
		buckets.get(today.AddDate(0, 0, -i).Format(dayLayout))
	}

	rows, err := e.store.Query(ctx,
		scan.Filter{UserID: userID, ScanDateFrom: from},
		scan.Order{Field: scan.SortByScanDate},
		e.cfg.TimeSeriesSampleLimit,
	)
	if err != nil {
		e.logger.Error("Failed to read time series sample",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("days", days),
		)
		return nil, scan.Unavailable("time series sample", err)
	}

	for _, row := range rows {
		key := row.ScanDate.UTC().Format(dayLayout)
		buckets.get(key).add(DecodeConfidence(row.Confidence), DecodeRiskLevel(row.RiskLevel))
	}

	series := finalizeDays(buckets)

	if len(series) != days {
		e.logger.Debug("Time series extended past window",
			zap.String("user_id", userID),
			zap.Int("days", days),
			zap.Int("buckets", len(series)),
		)
	}

	return series, nil
}

func finalizeDays(buckets groups) []DayBucket {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	// Fixed-width keys sort chronologically.
	sort.Strings(keys)

	series := make([]DayBucket, 0, len(keys))
	for _, key := range keys {
		series = append(series, buckets[key].day(key))
	}
	return series
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
