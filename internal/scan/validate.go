package scan

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Validate checks the required fields of r and returns the numeric risk
// level. Confidence is not validated; see ConfidenceValue.
func (r IngestRequest) Validate() (float64, error) {
	if r.ScanType == "" {
		return 0, &ValidationError{Field: "scan_type", Reason: "is required"}
	}

	risk, ok := jsonNumber(r.RiskLevel)
	if !ok {
		return 0, &ValidationError{Field: "risk_level", Reason: "must be a number"}
	}

	if r.ThreatType == "" {
		return 0, &ValidationError{Field: "threat_type", Reason: "is required"}
	}

	return risk, nil
}

// ConfidenceValue coerces the raw confidence to a number. Numbers and
// numeric strings are kept; anything else is stored as NULL and read back
// as 0.
func (r IngestRequest) ConfidenceValue() sql.NullFloat64 {
	raw := bytes.TrimSpace(r.Confidence)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return sql.NullFloat64{}
	}

	if v, ok := jsonNumber(raw); ok {
		return sql.NullFloat64{Float64: v, Valid: true}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// jsonNumber reports whether raw is a JSON number literal.
func jsonNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}
