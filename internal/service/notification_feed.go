package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arvetta/crm-api/internal/models"
)

type feedClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// NotificationFeed is the in-app notification feed, a capped Redis list of
// JSON entries, newest first. The feed is best-effort like every other
// dispatch channel: with no Redis client it degrades to a logged no-op.
type NotificationFeed struct {
	client     feedClient
	key        string
	maxEntries int
	logger     *zap.Logger
}

// NewNotificationFeed constructs the feed. client may be nil.
func NewNotificationFeed(client feedClient, key string, maxEntries int, logger *zap.Logger) *NotificationFeed {
	if key == "" {
		key = "crm:notifications"
	}
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationFeed{client: client, key: key, maxEntries: maxEntries, logger: logger}
}

// Push prepends an entry and trims the feed to its cap.
func (f *NotificationFeed) Push(ctx context.Context, entry models.FeedEntry) error {
	if f.client == nil {
		f.logger.Sugar().Warnw("notification feed unavailable, dropping entry", "title", entry.Title)
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode feed entry: %w", err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("push feed entry: %w", err)
	}
	if err := f.client.LTrim(ctx, f.key, 0, int64(f.maxEntries)-1).Err(); err != nil {
		return fmt.Errorf("trim feed: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (f *NotificationFeed) List(ctx context.Context, limit int) ([]models.FeedEntry, error) {
	if f.client == nil {
		return []models.FeedEntry{}, nil
	}
	if limit <= 0 || limit > f.maxEntries {
		limit = f.maxEntries
	}
	raw, err := f.client.LRange(ctx, f.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	entries := make([]models.FeedEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.FeedEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			f.logger.Sugar().Warnw("skipping malformed feed entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
