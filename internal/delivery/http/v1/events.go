package v1

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// HandleEvents streams change events to the authenticated user over
// server-sent events. Clients treat every event as an invalidation hint
// and refetch the affected resource; heartbeats keep idle connections
// from being reaped by proxies.
func (h *handlerImpl) HandleEvents(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	sub := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(sub)

	h.logger.Debug().
		Str("user_id", userID).
		Msg("event stream opened")

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-sub.Events():
			if !open {
				return false
			}
			c.SSEvent("change", event)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	h.logger.Debug().
		Str("user_id", userID).
		Msg("event stream closed")
}
