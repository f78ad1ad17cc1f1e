package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

func TestInvalidationHandler(t *testing.T) {
	cache := new(MockCache)
	cache.On("InvalidateUser", mock.Anything, "user-1").Return(nil)

	value, err := json.Marshal(scan.LoggedMessage{
		EventID:    "evt-1",
		UserID:     "user-1",
		ScanType:   "email",
		RiskLevel:  3,
		ThreatType: "phishing",
		ScanDate:   time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	err = InvalidationHandler(cache, zap.NewNop())(context.Background(), []byte("user-1"), value)

	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestInvalidationHandler_FallsBackToKey(t *testing.T) {
	cache := new(MockCache)
	cache.On("InvalidateUser", mock.Anything, "user-9").Return(nil)

	err := InvalidationHandler(cache, zap.NewNop())(context.Background(), []byte("user-9"), []byte(`{"event_id":"evt-2"}`))

	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestInvalidationHandler_NoUserIsSkipped(t *testing.T) {
	cache := new(MockCache)

	err := InvalidationHandler(cache, zap.NewNop())(context.Background(), nil, []byte(`{}`))

	require.NoError(t, err)
	cache.AssertNotCalled(t, "InvalidateUser", mock.Anything, mock.Anything)
}

func TestInvalidationHandler_Errors(t *testing.T) {
	cache := new(MockCache)
	handler := InvalidationHandler(cache, zap.NewNop())

	err := handler(context.Background(), []byte("user-1"), []byte(`not json`))
	assert.Error(t, err)

	cache.On("InvalidateUser", mock.Anything, "user-1").Return(errors.New("redis down"))
	err = handler(context.Background(), []byte("user-1"), []byte(`{"user_id":"user-1"}`))
	assert.Error(t, err)
}
