package frontdeskHandler

import (
	"errors"
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/middleware"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/log"
	"frontdesk/pkg/response"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
	"strings"
	"time"
)

const (
	streamIdleTimeout  = 5 * time.Minute
	streamWriteTimeout = 10 * time.Second
)

type streamFrame struct {
	Reply         string `json:"reply,omitempty"`
	Escalated     bool   `json:"escalated"`
	HelpRequestID string `json:"help_request_id,omitempty"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"`
}

func errorFrame(err error) streamFrame {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return streamFrame{Error: respErr.Error(), Code: respErr.Slug()}
	}
	return streamFrame{Error: "An unexpected error occurred", Code: "INTERNAL_SERVER_ERROR"}
}

// handleCallStream treats every text frame as one utterance of the session and
// answers with one JSON frame. Closing the socket leaves the session open.
func (h *FrontdeskHandler) handleCallStream(c *websocket.Conn) {
	sessionKey := c.Params("session_key")
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx := contextPkg.WithSessionKey(contextPkg.WithRequestID(context.Background(), requestID), sessionKey)
	logger := log.WithContext(ctx)

	logger.Info("Call stream connected")
	defer logger.Info("Call stream disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamIdleTimeout)); err != nil {
			logger.Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("Call stream error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			logger.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		text := strings.TrimSpace(string(message))
		if text == "" {
			continue
		}

		uttCtx, cancel := context.WithTimeout(ctx, utteranceTimeout)
		result, uttErr := h.callService.HandleUtterance(uttCtx, sessionKey, text)
		cancel()

		frame := streamFrame{
			Reply:         result.Reply,
			Escalated:     result.Escalated,
			HelpRequestID: result.HelpRequestID,
		}
		if uttErr != nil {
			errFrame := errorFrame(uttErr)
			frame.Error, frame.Code = errFrame.Error, errFrame.Code
		}

		if err := c.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			logger.Errorf("Error setting write deadline: %v", err)
			return
		}
		if err := c.WriteJSON(frame); err != nil {
			logger.Errorf("Error writing JSON response: %v", err)
			return
		}

		if errors.Is(uttErr, frontdesk.ErrSessionNotFound) {
			return
		}
	}
}
