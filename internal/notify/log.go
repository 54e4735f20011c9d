package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogChannel writes notifications to the application log. It doubles as the
// console fallback when no system notifier or audio command is configured.
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel constructs the log channel.
func NewLogChannel(logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger}
}

// Name identifies the channel.
func (c *LogChannel) Name() string { return "log" }

// Notify logs the reminder.
func (c *LogChannel) Notify(ctx context.Context, n Notification) error {
	c.logger.Info("reminder",
		zap.String("phase", string(n.Phase)),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
	return nil
}
