package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable scan table. Reads are always scoped to one user and
// always bounded by a limit.
type Store interface {
	Count(ctx context.Context, filter Filter) (int64, error)
	Query(ctx context.Context, filter Filter, order Order, limit int) ([]*Event, error)
	Insert(ctx context.Context, event *Event) (uuid.UUID, error)
}

type Filter struct {
	UserID string
	// ScanDateFrom, when set, keeps events with scan_date >= ScanDateFrom.
	ScanDateFrom time.Time
}

type SortField string

const (
	SortByScanDate   SortField = "scan_date"
	SortByScanType   SortField = "scan_type"
	SortByThreatType SortField = "threat_type"
)

type Order struct {
	Field      SortField
	Descending bool
}
