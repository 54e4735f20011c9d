package notify

import (
	"context"

	"github.com/arvetta/crm-api/internal/models"
)

// Notification is the rendered payload handed to every dispatch channel.
type Notification struct {
	Phase models.ReminderPhase
	Title string
	Body  string
}

// Channel delivers a notification through one best-effort mechanism.
// Implementations must not block on failure of another channel; errors are
// reported to the caller for logging and otherwise dropped.
type Channel interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}
