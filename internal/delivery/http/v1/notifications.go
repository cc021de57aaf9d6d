package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type notificationResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *handlerImpl) HandleGetNotifications(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifications.List(c, userID, unreadOnly)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch notifications")
		abortServiceError(c, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Payload:   json.RawMessage(n.Payload),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"notifications": resp})
}

func (h *handlerImpl) HandleMarkNotificationRead(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.notifications.MarkRead(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to mark notification read")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleMarkAllNotificationsRead(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.notifications.MarkAllRead(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to mark all notifications read")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleDeleteNotification(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.notifications.Delete(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to delete notification")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
