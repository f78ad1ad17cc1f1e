package scan

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const eventColumns = `id, user_id, phishing_id, scan_type, risk_level, confidence, threat_type, scan_date, created_at`

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore keeps scan events in a single append-only table.
type PostgresStore struct {
	db     *sqlx.DB
	table  string
	name   string
	logger *zap.Logger
}

func NewPostgresStore(db *sqlx.DB, table string, logger *zap.Logger) (*PostgresStore, error) {
	if !identifierRe.MatchString(table) {
		return nil, fmt.Errorf("invalid scan table name %q", table)
	}
	return &PostgresStore{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		name:   table,
		logger: logger,
	}, nil
}

// InitSchema creates the scan table and its per-user indexes if missing.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id          UUID PRIMARY KEY,
			user_id     TEXT NOT NULL,
			phishing_id TEXT NULL,
			scan_type   TEXT NULL,
			risk_level  DOUBLE PRECISION NULL,
			confidence  DOUBLE PRECISION NULL,
			threat_type TEXT NULL,
			scan_date   TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (user_id, scan_date DESC);
		CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s (user_id, scan_type);
		CREATE INDEX IF NOT EXISTS %[4]s ON %[1]s (user_id, threat_type);
	`,
		s.table,
		pq.QuoteIdentifier(s.name+"_user_scan_date_idx"),
		pq.QuoteIdentifier(s.name+"_user_scan_type_idx"),
		pq.QuoteIdentifier(s.name+"_user_threat_type_idx"),
	)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return Unavailable("init schema", err)
	}

	s.logger.Info("Scan schema ready", zap.String("table", s.name))
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.table, where)

	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		s.logStoreError("Failed to count scans", err, filter)
		return 0, Unavailable("count scans", err)
	}

	return count, nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter, order Order, limit int) ([]*Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("query scans: limit must be positive, got %d", limit)
	}

	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}

	orderBy, err := orderClause(order)
	if err != nil {
		return nil, err
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY %s
		LIMIT $%d
	`, eventColumns, s.table, where, orderBy, len(args))

	events := make([]*Event, 0)
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		s.logStoreError("Failed to query scans", err, filter)
		return nil, Unavailable("query scans", err)
	}

	return events, nil
}

// Insert assigns the event id and appends the row.
func (s *PostgresStore) Insert(ctx context.Context, event *Event) (uuid.UUID, error) {
	if event.UserID == "" {
		return uuid.Nil, ErrNotAuthenticated
	}

	id := uuid.New()
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.table, eventColumns)

	_, err := s.db.ExecContext(
		ctx,
		query,
		id,
		event.UserID,
		event.PhishingID,
		event.ScanType,
		event.RiskLevel,
		event.Confidence,
		event.ThreatType,
		event.ScanDate,
		event.CreatedAt,
	)
	if err != nil {
		s.logStoreError("Failed to insert scan", err, Filter{UserID: event.UserID})
		return uuid.Nil, Unavailable("insert scan", err)
	}

	event.ID = id

	s.logger.Debug("Scan inserted",
		zap.String("event_id", id.String()),
		zap.String("user_id", event.UserID),
	)

	return id, nil
}

func (s *PostgresStore) logStoreError(msg string, err error, filter Filter) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("user_id", filter.UserID),
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		fields = append(fields,
			zap.String("pq_code", string(pqErr.Code)),
			zap.String("pq_class", pqErr.Code.Class().Name()),
		)
	}

	s.logger.Error(msg, fields...)
}

func whereClause(filter Filter) (string, []any, error) {
	if filter.UserID == "" {
		return "", nil, ErrNotAuthenticated
	}

	conds := []string{"user_id = $1"}
	args := []any{filter.UserID}

	if !filter.ScanDateFrom.IsZero() {
		args = append(args, filter.ScanDateFrom.UTC())
		conds = append(conds, fmt.Sprintf("scan_date >= $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args, nil
}

// orderClause whitelists sort columns. id breaks ties so repeated reads
// return the same sample.
func orderClause(order Order) (string, error) {
	switch order.Field {
	case SortByScanDate, SortByScanType, SortByThreatType:
	default:
		return "", fmt.Errorf("unsupported sort field %q", order.Field)
	}

	dir := "ASC"
	if order.Descending {
		dir = "DESC"
	}

	if order.Field == SortByScanDate {
		return fmt.Sprintf("scan_date %s, id %s", dir, dir), nil
	}
	return fmt.Sprintf("%s %s NULLS FIRST, scan_date DESC, id DESC", order.Field, dir), nil
}
