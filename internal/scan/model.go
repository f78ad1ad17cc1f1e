package scan

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one stored scan outcome. Nullable columns stay nullable here so
// rows written by older clients can still be aggregated.
type Event struct {
	ID         uuid.UUID       `db:"id"`
	UserID     string          `db:"user_id"`
	PhishingID sql.NullString  `db:"phishing_id"`
	ScanType   sql.NullString  `db:"scan_type"`
	RiskLevel  sql.NullFloat64 `db:"risk_level"`
	Confidence sql.NullFloat64 `db:"confidence"`
	ThreatType sql.NullString  `db:"threat_type"`
	ScanDate   time.Time       `db:"scan_date"`
	CreatedAt  time.Time       `db:"created_at"`
}

// EventView is the JSON shape of an Event returned to the dashboard.
type EventView struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PhishingID *string   `json:"phishing_id"`
	ScanType   *string   `json:"scan_type"`
	RiskLevel  *float64  `json:"risk_level"`
	Confidence *float64  `json:"confidence"`
	ThreatType *string   `json:"threat_type"`
	ScanDate   time.Time `json:"scan_date"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e *Event) View() EventView {
	return EventView{
		ID:         e.ID.String(),
		UserID:     e.UserID,
		PhishingID: nullString(e.PhishingID),
		ScanType:   nullString(e.ScanType),
		RiskLevel:  nullFloat(e.RiskLevel),
		Confidence: nullFloat(e.Confidence),
		ThreatType: nullString(e.ThreatType),
		ScanDate:   e.ScanDate,
		CreatedAt:  e.CreatedAt,
	}
}

// IngestRequest is the payload of a scan log call. RiskLevel and Confidence
// stay raw so that type conformance is checked by Validate, not by the JSON
// decoder.
type IngestRequest struct {
	PhishingID *string         `json:"phishing_id,omitempty"`
	ScanType   string          `json:"scan_type"`
	RiskLevel  json.RawMessage `json:"risk_level"`
	Confidence json.RawMessage `json:"confidence"`
	ThreatType string          `json:"threat_type"`
}

func NewIngestRequest(scanType string, riskLevel, confidence float64, threatType string) IngestRequest {
	risk, _ := json.Marshal(riskLevel)
	conf, _ := json.Marshal(confidence)
	return IngestRequest{
		ScanType:   scanType,
		RiskLevel:  risk,
		Confidence: conf,
		ThreatType: threatType,
	}
}

// LoggedMessage is published after a scan has been stored.
type LoggedMessage struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	ScanType   string    `json:"scan_type"`
	RiskLevel  float64   `json:"risk_level"`
	ThreatType string    `json:"threat_type"`
	ScanDate   time.Time `json:"scan_date"`
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
