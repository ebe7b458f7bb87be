package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/utils"
)

// Inbox is the notification store as seen by the HTTP layer.
type Inbox interface {
	List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error)
}

// NotificationHandler serves the caller's own notifications.
type NotificationHandler struct {
	Inbox Inbox
	Log   zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(inbox Inbox, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{Inbox: inbox, Log: logger}
}

// GetNotifications lists the caller's notifications, newest first.
// ?unread=true restricts the list to unread entries.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	page := utils.PaginationFromQuery(c)

	items, total, err := h.Inbox.List(c.Request.Context(), who.Ref, c.Query("unread") == "true", page.Limit, page.Offset())
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	utils.Success(c, "Notifications fetched successfully", utils.NewPaginated(items, total, page))
}

// MarkNotificationAsRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	n, err := h.Inbox.MarkRead(c.Request.Context(), who.Ref, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Notification marked as read", n)
}
