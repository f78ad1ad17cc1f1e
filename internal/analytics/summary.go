package analytics

import (
	"context"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

// GetSummary counts all of the user's scans exactly, then derives the
// confidence average, risk split and threat-type breakdown from the most
// recent SummarySampleLimit scans only. Users with more scans than the cap
// get sampled statistics; that trade-off bounds the read.
func (e *Engine) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	if userID == "" {
		return nil, scan.ErrNotAuthenticated
	}

	filter := scan.Filter{UserID: userID}

	total, err := e.store.Count(ctx, filter)
	if err != nil {
		e.logger.Error("Failed to count scans", zap.Error(err), zap.String("user_id", userID))
		return nil, scan.Unavailable("summary count", err)
	}

	rows, err := e.store.Query(ctx, filter, scan.Order{Field: scan.SortByScanDate, Descending: true}, e.cfg.SummarySampleLimit)
	if err != nil {
		e.logger.Error("Failed to read summary sample", zap.Error(err), zap.String("user_id", userID))
		return nil, scan.Unavailable("summary sample", err)
	}

	summary := foldSummary(total, rows)

	e.logger.Debug("Summary computed",
		zap.String("user_id", userID),
		zap.Int64("total", summary.TotalCount),
		zap.Int("sample", summary.SampleSize),
	)

	return summary, nil
}

func foldSummary(total int64, rows []*scan.Event) *Summary {
	var all accumulator
	byThreat := make(groups)

	for _, row := range rows {
		confidence := DecodeConfidence(row.Confidence)
		risk := DecodeRiskLevel(row.RiskLevel)

		all.add(confidence, risk)
		byThreat.get(categoryLabel(row.ThreatType)).add(confidence, risk)
	}

	// A scan logged between the count and the sample read can make the
	// sample larger than the count.
	if sampled := int64(len(rows)); sampled > total {
		total = sampled
	}

	return &Summary{
		TotalCount:        total,
		SampleSize:        len(rows),
		AverageConfidence: all.average(),
		HighRiskCount:     all.high,
		SuspiciousCount:   all.suspicious,
		SafeCount:         all.safe,
		ByCategory:        byThreat.categories(),
	}
}
