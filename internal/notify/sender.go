package notify

import (
	"context"

	"builders-core/internal/models"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// Sender delivers a notification to the user. Email/push delivery is a
// black-box collaborator; this interface is its seam.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// LogSender is the in-process Sender used when no delivery backend is
// configured. It records the notification and succeeds.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{logger: util.GetLogger()}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("Notification",
		zap.Int64("user_id", n.UserID),
		zap.String("kind", n.Kind),
		zap.String("subject", n.Subject))
	return nil
}
