package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

// InvalidationHandler returns a Kafka message handler that drops the cached
// views of the user named in each scan.LoggedMessage.
func InvalidationHandler(cache Cache, logger *zap.Logger) func(ctx context.Context, key, value []byte) error {
	return func(ctx context.Context, key, value []byte) error {
		var msg scan.LoggedMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			logger.Error("Failed to unmarshal scan notification",
				zap.Error(err),
				zap.String("value", string(value)),
			)
			return fmt.Errorf("decode scan notification: %w", err)
		}

		userID := msg.UserID
		if userID == "" {
			userID = string(key)
		}
		if userID == "" {
			logger.Warn("Scan notification without user", zap.String("event_id", msg.EventID))
			return nil
		}

		if err := cache.InvalidateUser(ctx, userID); err != nil {
			return fmt.Errorf("invalidate dashboard cache: %w", err)
		}

		logger.Debug("Dashboard cache invalidated",
			zap.String("user_id", userID),
			zap.String("event_id", msg.EventID),
		)
		return nil
	}
}
