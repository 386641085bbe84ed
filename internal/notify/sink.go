package notify

import (
	"context"

	"drivebook/internal/models"

	"github.com/rs/zerolog"
)

// NotificationStore is the slice of the store the sink needs.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// StoreSink materializes notifications as store rows, the way the user
// surface consumes them. It is the terminal end of the fire-and-forget
// pipeline: the outbox worker retries delivery, the sink just writes.
type StoreSink struct {
	store  NotificationStore
	logger *zerolog.Logger
}

func NewStoreSink(store NotificationStore, logger *zerolog.Logger) *StoreSink {
	return &StoreSink{store: store, logger: logger}
}

// Emit writes one notification row. userID 0 marks a guest reservation;
// the row is still kept so admins see the full feed.
func (s *StoreSink) Emit(ctx context.Context, userID int64, eventType, message string) error {
	n := &models.Notification{
		UserID:  userID,
		Type:    eventType,
		Message: message,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	s.logger.Debug().Int64("user_id", userID).Str("type", eventType).Msg("notification emitted")
	return nil
}
