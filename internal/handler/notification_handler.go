package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arvetta/crm-api/internal/models"
	"github.com/arvetta/crm-api/pkg/response"
)

type notificationFeed interface {
	List(ctx context.Context, limit int) ([]models.FeedEntry, error)
}

// NotificationHandler exposes the in-app notification feed.
type NotificationHandler struct {
	feed notificationFeed
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(feed notificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List returns feed entries, newest first. ?limit= caps the page size.
func (h *NotificationHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	entries, err := h.feed.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
