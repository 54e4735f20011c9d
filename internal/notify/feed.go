package notify

import (
	"context"
	"time"

	"github.com/arvetta/crm-api/internal/models"
)

type feedPusher interface {
	Push(ctx context.Context, entry models.FeedEntry) error
}

// FeedChannel writes reminder notifications into the in-app feed.
type FeedChannel struct {
	feed feedPusher
}

// NewFeedChannel constructs the feed channel.
func NewFeedChannel(feed feedPusher) *FeedChannel {
	return &FeedChannel{feed: feed}
}

// Name identifies the channel.
func (c *FeedChannel) Name() string { return "feed" }

// Notify pushes a structured entry into the feed.
func (c *FeedChannel) Notify(ctx context.Context, n Notification) error {
	return c.feed.Push(ctx, models.FeedEntry{
		Type:      "reminder",
		Title:     n.Title,
		Message:   n.Body,
		CreatedAt: time.Now().UTC(),
	})
}
