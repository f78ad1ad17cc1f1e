package analytics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

const testUser = "user-123"

var testNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

// MockReader is a mock implementation of Reader
type MockReader struct {
	mock.Mock
}

func (m *MockReader) Count(ctx context.Context, filter scan.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReader) Query(ctx context.Context, filter scan.Filter, order scan.Order, limit int) ([]*scan.Event, error) {
	args := m.Called(ctx, filter, order, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*scan.Event), args.Error(1)
}

func newTestEngine(reader Reader) *Engine {
	engine := NewEngine(reader, DefaultConfig(), zap.NewNop())
	engine.now = func() time.Time { return testNow }
	return engine
}

func scanEvent(risk float64, confidence float64, threat string, at time.Time) *scan.Event {
	return &scan.Event{
		UserID:     testUser,
		ScanType:   sql.NullString{String: "email", Valid: true},
		RiskLevel:  sql.NullFloat64{Float64: risk, Valid: true},
		Confidence: sql.NullFloat64{Float64: confidence, Valid: true},
		ThreatType: sql.NullString{String: threat, Valid: threat != ""},
		ScanDate:   at,
		CreatedAt:  at,
	}
}

var recentFirst = scan.Order{Field: scan.SortByScanDate, Descending: true}

func exampleEvents() []*scan.Event {
	return []*scan.Event{
		scanEvent(3, 87, "phishing", testNow),
		scanEvent(1, 10, "phishing", testNow.Add(-time.Hour)),
		scanEvent(2, 55, "malware", testNow.Add(-2*time.Hour)),
	}
}

func TestEngine_GetSummary_Example(t *testing.T) {
	reader := new(MockReader)
	filter := scan.Filter{UserID: testUser}
	reader.On("Count", mock.Anything, filter).Return(int64(3), nil)
	reader.On("Query", mock.Anything, filter, recentFirst, 1000).Return(exampleEvents(), nil)

	summary, err := newTestEngine(reader).GetSummary(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalCount)
	assert.Equal(t, 3, summary.SampleSize)
	assert.Equal(t, int64(1), summary.HighRiskCount)
	assert.Equal(t, int64(1), summary.SuspiciousCount)
	assert.Equal(t, int64(1), summary.SafeCount)
	assert.InDelta(t, 50.6667, summary.AverageConfidence, 0.001)

	require.Len(t, summary.ByCategory, 2)
	assert.Equal(t, CategoryBucket{Label: "phishing", Count: 2, AverageConfidence: 48.5}, summary.ByCategory["phishing"])
	assert.Equal(t, CategoryBucket{Label: "malware", Count: 1, AverageConfidence: 55}, summary.ByCategory["malware"])
	reader.AssertExpectations(t)
}

func TestEngine_GetSummary_ZeroState(t *testing.T) {
	reader := new(MockReader)
	reader.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*scan.Event{}, nil)

	summary, err := newTestEngine(reader).GetSummary(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalCount)
	assert.Equal(t, 0.0, summary.AverageConfidence)
	assert.Empty(t, summary.ByCategory)
	assert.NotNil(t, summary.ByCategory)
}

func TestEngine_GetSummary_TotalIsExactStatsAreSampled(t *testing.T) {
	reader := new(MockReader)
	cfg := DefaultConfig()
	cfg.SummarySampleLimit = 2
	engine := NewEngine(reader, cfg, zap.NewNop())

	sample := []*scan.Event{
		scanEvent(3, 90, "phishing", testNow),
		scanEvent(3, 70, "phishing", testNow.Add(-time.Minute)),
	}
	reader.On("Count", mock.Anything, mock.Anything).Return(int64(5000), nil)
	reader.On("Query", mock.Anything, mock.Anything, recentFirst, 2).Return(sample, nil)

	summary, err := engine.GetSummary(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.TotalCount)
	assert.Equal(t, 2, summary.SampleSize)
	assert.Equal(t, int64(2), summary.HighRiskCount+summary.SuspiciousCount+summary.SafeCount)
	assert.Equal(t, 80.0, summary.AverageConfidence)
}

func TestEngine_GetSummary_MalformedRowsAreDefaulted(t *testing.T) {
	reader := new(MockReader)
	rows := []*scan.Event{
		scanEvent(99, 40, "phishing", testNow),
		{UserID: testUser, ScanDate: testNow},
		scanEvent(2.5, 20, "", testNow),
	}
	reader.On("Count", mock.Anything, mock.Anything).Return(int64(3), nil)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	summary, err := newTestEngine(reader).GetSummary(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalCount)
	assert.Equal(t, int64(3), summary.SafeCount)
	assert.Equal(t, int64(0), summary.HighRiskCount)
	assert.Equal(t, 20.0, summary.AverageConfidence)
	assert.Equal(t, int64(2), summary.ByCategory[UnknownCategory].Count)
	assert.Equal(t, 10.0, summary.ByCategory[UnknownCategory].AverageConfidence)
}

func TestEngine_GetSummary_Idempotent(t *testing.T) {
	reader := new(MockReader)
	reader.On("Count", mock.Anything, mock.Anything).Return(int64(3), nil)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(exampleEvents(), nil)
	engine := newTestEngine(reader)

	first, err := engine.GetSummary(context.Background(), testUser)
	require.NoError(t, err)
	second, err := engine.GetSummary(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_GetSummary_SampleLargerThanCount(t *testing.T) {
	reader := new(MockReader)
	reader.On("Count", mock.Anything, mock.Anything).Return(int64(2), nil)
	reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(exampleEvents(), nil)

	summary, err := newTestEngine(reader).GetSummary(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalCount)
}

func TestEngine_GetSummary_StoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")

	t.Run("count", func(t *testing.T) {
		reader := new(MockReader)
		reader.On("Count", mock.Anything, mock.Anything).Return(int64(0), storeErr)

		summary, err := newTestEngine(reader).GetSummary(context.Background(), testUser)

		assert.Nil(t, summary)
		assert.ErrorIs(t, err, scan.ErrStoreUnavailable)
		assert.ErrorIs(t, err, storeErr)
		reader.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sample", func(t *testing.T) {
		reader := new(MockReader)
		reader.On("Count", mock.Anything, mock.Anything).Return(int64(4), nil)
		reader.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, storeErr)

		summary, err := newTestEngine(reader).GetSummary(context.Background(), testUser)

		assert.Nil(t, summary)
		assert.ErrorIs(t, err, scan.ErrStoreUnavailable)
	})
}

func TestEngine_RejectsMissingUserBeforeStoreAccess(t *testing.T) {
	reader := new(MockReader)
	engine := newTestEngine(reader)
	ctx := context.Background()

	_, err := engine.GetSummary(ctx, "")
	assert.ErrorIs(t, err, scan.ErrNotAuthenticated)

	_, err = engine.GetCategoryBreakdown(ctx, "")
	assert.ErrorIs(t, err, scan.ErrNotAuthenticated)

	_, err = engine.GetTimeSeries(ctx, "", 7)
	assert.ErrorIs(t, err, scan.ErrNotAuthenticated)

	reader.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
	reader.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewEngine_FillsDefaults(t *testing.T) {
	engine := NewEngine(new(MockReader), Config{}, zap.NewNop())

	assert.Equal(t, DefaultConfig(), engine.cfg)
}
