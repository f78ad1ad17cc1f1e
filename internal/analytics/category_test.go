package analytics

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

func TestEngine_GetCategoryBreakdown_Example(t *testing.T) {
	reader := new(MockReader)
	reader.On("Query", mock.Anything,
		scan.Filter{UserID: testUser},
		scan.Order{Field: scan.SortByThreatType},
		5000,
	).Return(exampleEvents(), nil)

	got, err := newTestEngine(reader).GetCategoryBreakdown(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, map[string]CategoryBucket{
		"phishing": {Label: "phishing", Count: 2, AverageConfidence: 48.5},
		"malware":  {Label: "malware", Count: 1, AverageConfidence: 55},
	}, got)
	reader.AssertExpectations(t)
}

func TestEngine_GetCategoryBreakdownBy_ScanType(t *testing.T) {
	rows := exampleEvents()
	rows[1].ScanType = sql.NullString{String: "link", Valid: true}
	rows[2].ScanType = sql.NullString{}

	reader := new(MockReader)
	reader.On("Query", mock.Anything, mock.Anything, scan.Order{Field: scan.SortByScanType}, 5000).Return(rows, nil)

	got, err := newTestEngine(reader).GetCategoryBreakdownBy(context.Background(), testUser, DimensionScanType)

	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(1), got["email"].Count)
	assert.Equal(t, 87.0, got["email"].AverageConfidence)
	assert.Equal(t, int64(1), got["link"].Count)
	assert.Equal(t, int64(1), got[UnknownCategory].Count)
	assert.Equal(t, 55.0, got[UnknownCategory].AverageConfidence)
}

func TestEngine_GetCategoryBreakdown_EmptySample(t *testing.T) {
	reader := new(MockReader)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*scan.Event{}, nil)

	got, err := newTestEngine(reader).GetCategoryBreakdown(context.Background(), testUser)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_GetCategoryBreakdown_AveragesAfterFold(t *testing.T) {
	// Incremental averaging of 0.1 ten times drifts; a single division does not.
	rows := make([]*scan.Event, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, scanEvent(1, 0.1, "spam", testNow))
	}
	reader := new(MockReader)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	got, err := newTestEngine(reader).GetCategoryBreakdown(context.Background(), testUser)

	require.NoError(t, err)
	assert.InDelta(t, 0.1, got["spam"].AverageConfidence, 1e-12)
	assert.Equal(t, int64(10), got["spam"].Count)
}

func TestEngine_GetCategoryBreakdownBy_UnknownDimension(t *testing.T) {
	reader := new(MockReader)

	_, err := newTestEngine(reader).GetCategoryBreakdownBy(context.Background(), testUser, Dimension("channel"))

	assert.Error(t, err)
	reader.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_GetCategoryBreakdown_StoreError(t *testing.T) {
	reader := new(MockReader)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	got, err := newTestEngine(reader).GetCategoryBreakdown(context.Background(), testUser)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, scan.ErrStoreUnavailable)
}

func TestParseDimension(t *testing.T) {
	dim, ok := ParseDimension("scan_type")
	assert.True(t, ok)
	assert.Equal(t, DimensionScanType, dim)

	dim, ok = ParseDimension("threat_type")
	assert.True(t, ok)
	assert.Equal(t, DimensionThreatType, dim)

	_, ok = ParseDimension("THREAT_TYPE")
	assert.False(t, ok)
}
