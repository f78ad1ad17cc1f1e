package scan

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher announces stored scans. The Kafka producer implements it.
type Publisher interface {
	SendMessage(ctx context.Context, key string, value any) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires ingestion. publisher may be nil when notifications are
// disabled.
func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// IngestEvent validates req and appends it for userID. scan_date and
// created_at are both set to the server clock.
func (s *Service) IngestEvent(ctx context.Context, userID string, req IngestRequest) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, ErrNotAuthenticated
	}

	risk, err := req.Validate()
	if err != nil {
		s.logger.Warn("Rejected scan event",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return uuid.Nil, err
	}

	now := s.now().UTC()
	event := &Event{
		UserID:     userID,
		ScanType:   sql.NullString{String: req.ScanType, Valid: true},
		RiskLevel:  sql.NullFloat64{Float64: risk, Valid: true},
		Confidence: req.ConfidenceValue(),
		ThreatType: sql.NullString{String: req.ThreatType, Valid: true},
		ScanDate:   now,
		CreatedAt:  now,
	}
	if req.PhishingID != nil && *req.PhishingID != "" {
		event.PhishingID = sql.NullString{String: *req.PhishingID, Valid: true}
	}

	id, err := s.store.Insert(ctx, event)
	if err != nil {
		s.logger.Error("Failed to store scan event",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		if errors.Is(err, ErrNotAuthenticated) {
			return uuid.Nil, err
		}
		return uuid.Nil, Unavailable("ingest scan", err)
	}

	s.publish(ctx, id, event)

	s.logger.Info("Scan logged",
		zap.String("event_id", id.String()),
		zap.String("user_id", userID),
		zap.String("scan_type", req.ScanType),
		zap.Float64("risk_level", risk),
	)

	return id, nil
}

// publish is best effort: the scan is already stored.
func (s *Service) publish(ctx context.Context, id uuid.UUID, event *Event) {
	if s.publisher == nil {
		return
	}

	msg := LoggedMessage{
		EventID:    id.String(),
		UserID:     event.UserID,
		ScanType:   event.ScanType.String,
		RiskLevel:  event.RiskLevel.Float64,
		ThreatType: event.ThreatType.String,
		ScanDate:   event.ScanDate,
	}

	// Same user, same partition.
	if err := s.publisher.SendMessage(ctx, event.UserID, msg); err != nil {
		s.logger.Error("Failed to publish scan notification",
			zap.String("event_id", id.String()),
			zap.Error(err),
		)
	}
}

// Recent returns the user's newest scans, newest first.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]*Event, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	events, err := s.store.Query(ctx, Filter{UserID: userID}, Order{Field: SortByScanDate, Descending: true}, limit)
	if err != nil {
		s.logger.Error("Failed to get recent scans", zap.Error(err), zap.String("user_id", userID))
		return nil, Unavailable("recent scans", err)
	}

	return events, nil
}
