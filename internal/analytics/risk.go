package analytics

import (
	"database/sql"
	"math"
)

type RiskLevel int

const (
	RiskSafe       RiskLevel = 1
	RiskSuspicious RiskLevel = 2
	RiskHigh       RiskLevel = 3
)

func (r RiskLevel) String() string {
	switch r {
	case RiskHigh:
		return "high"
	case RiskSuspicious:
		return "suspicious"
	default:
		return "safe"
	}
}

// DecodeRiskLevel maps a stored risk level onto the three classes. NULL,
// fractional and out-of-range values decode to RiskSafe; bad rows are
// counted, never rejected.
func DecodeRiskLevel(raw sql.NullFloat64) RiskLevel {
	if !raw.Valid {
		return RiskSafe
	}
	switch raw.Float64 {
	case 3:
		return RiskHigh
	case 2:
		return RiskSuspicious
	default:
		return RiskSafe
	}
}

// DecodeConfidence reads NULL and non-finite confidence as 0.
func DecodeConfidence(raw sql.NullFloat64) float64 {
	if !raw.Valid || math.IsNaN(raw.Float64) || math.IsInf(raw.Float64, 0) {
		return 0
	}
	return raw.Float64
}

const UnknownCategory = "unknown"

func categoryLabel(raw sql.NullString) string {
	if !raw.Valid || raw.String == "" {
		return UnknownCategory
	}
	return raw.String
}
