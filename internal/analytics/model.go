package analytics

// Summary is computed per request and never stored. TotalCount is exact;
// every other field covers only the most recent SampleSize events.
type Summary struct {
	TotalCount        int64                     `json:"totalScans"`
	SampleSize        int                       `json:"sampleSize"`
	AverageConfidence float64                   `json:"avgConfidence"`
	HighRiskCount     int64                     `json:"highRisk"`
	SuspiciousCount   int64                     `json:"suspicious"`
	SafeCount         int64                     `json:"safe"`
	ByCategory        map[string]CategoryBucket `json:"byType"`
}

type CategoryBucket struct {
	Label             string  `json:"label"`
	Count             int64   `json:"count"`
	AverageConfidence float64 `json:"avgConfidence"`
}

// DayBucket aggregates one UTC calendar day. Date is "YYYY-MM-DD".
type DayBucket struct {
	Date              string  `json:"date"`
	Count             int64   `json:"count"`
	AverageConfidence float64 `json:"avgConfidence"`
	HighRiskCount     int64   `json:"highRisk"`
	SuspiciousCount   int64   `json:"suspicious"`
	SafeCount         int64   `json:"safe"`
}

// Dimension selects the column a category breakdown groups by.
type Dimension string

const (
	DimensionThreatType Dimension = "threat_type"
	DimensionScanType   Dimension = "scan_type"
)

func ParseDimension(s string) (Dimension, bool) {
	switch Dimension(s) {
	case DimensionThreatType:
		return DimensionThreatType, true
	case DimensionScanType:
		return DimensionScanType, true
	default:
		return "", false
	}
}
