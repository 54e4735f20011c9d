package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arvetta/crm-api/internal/models"
	"github.com/arvetta/crm-api/internal/notify"
)

const dispatchTimeout = 5 * time.Second

// NotificationDispatcher renders a fired (appointment, phase) pair into a
// human message and pushes it through every configured channel. Channels are
// independent and best-effort: a failure is logged, never retried, and never
// blocks the remaining channels.
type NotificationDispatcher struct {
	channels []notify.Channel
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationDispatcher constructs the dispatcher. Nil channels are
// skipped so disabled channels can be passed straight through.
func NewNotificationDispatcher(channels []notify.Channel, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]notify.Channel, 0, len(channels))
	for _, channel := range channels {
		if channel != nil {
			active = append(active, channel)
		}
	}
	return &NotificationDispatcher{channels: active, metrics: metrics, logger: logger}
}

// Dispatch fans the reminder out to all channels.
func (d *NotificationDispatcher) Dispatch(appointment models.Appointment, phase models.ReminderPhase) {
	notification := buildNotification(appointment, phase)
	for _, channel := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		if err := channel.Notify(ctx, notification); err != nil {
			d.metrics.RecordChannelFailure(channel.Name())
			d.logger.Sugar().Warnw("notification channel failed",
				"channel", channel.Name(),
				"appointment_id", appointment.ID,
				"phase", string(phase),
				"error", err)
		}
		cancel()
	}
	d.metrics.RecordReminderFired(string(phase))
}

func buildNotification(appointment models.Appointment, phase models.ReminderPhase) notify.Notification {
	startAt := appointment.StartDate.Format("15:04")
	var body string
	switch phase {
	case models.ReminderPhaseStart:
		if appointment.CustomerName != nil && *appointment.CustomerName != "" {
			body = fmt.Sprintf("%s with %s is in progress", appointment.Title, *appointment.CustomerName)
		} else {
			body = fmt.Sprintf("%s is in progress", appointment.Title)
		}
	default:
		if appointment.CustomerName != nil && *appointment.CustomerName != "" {
			body = fmt.Sprintf("Upcoming: %s with %s at %s", appointment.Title, *appointment.CustomerName, startAt)
		} else {
			body = fmt.Sprintf("Upcoming: %s at %s", appointment.Title, startAt)
		}
	}
	return notify.Notification{
		Phase: phase,
		Title: appointment.Title,
		Body:  body,
	}
}
