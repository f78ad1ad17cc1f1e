package analytics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

// GetCategoryBreakdown groups the user's scans by threat type.
func (e *Engine) GetCategoryBreakdown(ctx context.Context, userID string) (map[string]CategoryBucket, error) {
	return e.GetCategoryBreakdownBy(ctx, userID, DimensionThreatType)
}

// GetCategoryBreakdownBy groups a sample of at most CategorySampleLimit
// scans by dim. Only categories seen in the sample appear; a missing label
// is reported as "unknown".
func (e *Engine) GetCategoryBreakdownBy(ctx context.Context, userID string, dim Dimension) (map[string]CategoryBucket, error) {
	if userID == "" {
		return nil, scan.ErrNotAuthenticated
	}

	var sortField scan.SortField
	switch dim {
	case DimensionThreatType:
		sortField = scan.SortByThreatType
	case DimensionScanType:
		sortField = scan.SortByScanType
	default:
		return nil, fmt.Errorf("unknown category dimension %q", dim)
	}

	rows, err := e.store.Query(ctx, scan.Filter{UserID: userID}, scan.Order{Field: sortField}, e.cfg.CategorySampleLimit)
	if err != nil {
		e.logger.Error("Failed to read category sample",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("dimension", string(dim)),
		)
		return nil, scan.Unavailable("category sample", err)
	}

	return foldCategories(rows, dim), nil
}

func foldCategories(rows []*scan.Event, dim Dimension) map[string]CategoryBucket {
	byLabel := make(groups)

	for _, row := range rows {
		label := row.ThreatType
		if dim == DimensionScanType {
			label = row.ScanType
		}
		byLabel.get(categoryLabel(label)).add(DecodeConfidence(row.Confidence), DecodeRiskLevel(row.RiskLevel))
	}

	return byLabel.categories()
}
