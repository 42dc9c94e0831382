package frontdeskHandler

import (
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/middleware"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/log"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
	"time"
)

// handleHelpRequestEvents relays help request lifecycle events to a supervisor
// until either side goes away.
func (h *FrontdeskHandler) handleHelpRequestEvents(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), requestID))
	defer cancel()
	logger := log.WithContext(ctx)

	if h.redis == nil {
		_ = c.WriteJSON(streamFrame{Error: "event feed unavailable", Code: "EVENT_FEED_UNAVAILABLE"})
		return
	}

	messages, unsubscribe, err := h.redis.Subscribe(ctx, frontdesk.HelpRequestEventsChannel)
	if err != nil {
		logger.Errorf("Failed to subscribe to help request events: %v", err)
		_ = c.WriteJSON(streamFrame{Error: "event feed unavailable", Code: "EVENT_FEED_UNAVAILABLE"})
		return
	}
	defer func() {
		if err := unsubscribe(); err != nil {
			logger.Warnf("Failed to close subscription: %v", err)
		}
	}()

	logger.Info("Supervisor event feed connected")
	defer logger.Info("Supervisor event feed disconnected")

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := c.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				logger.Warnf("Error writing event: %v", err)
				return
			}
		}
	}
}
