package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

const (
	subscriberBuffer = 256
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is what the event stream sends. The first message is a
// snapshot of the running session, if any; the rest are events.
type StreamMessage struct {
	Type     string               `json:"type"` // snapshot or event
	Snapshot *app.SessionSnapshot `json:"snapshot,omitempty"`
	Event    *domain.Event        `json:"event,omitempty"`
}

// EventWebSocketHandler streams download events over WebSocket
type EventWebSocketHandler struct {
	bus         *app.EventBus
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewEventWebSocketHandler creates a new WebSocket handler
func NewEventWebSocketHandler(bus *app.EventBus, downloadMgr *app.DownloadManager, log *zap.Logger) *EventWebSocketHandler {
	return &EventWebSocketHandler{
		bus:         bus,
		downloadMgr: downloadMgr,
		logger:      log,
	}
}

// HandleWebSocket handles GET /api/v1/events
func (h *EventWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.bus.Subscribe(subscriberBuffer)
	defer unsubscribe()

	h.logger.Info("Event stream client connected", zap.String("remote_addr", c.Request.RemoteAddr))
	defer h.logger.Info("Event stream client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))

	if sess := h.downloadMgr.Current(); sess != nil {
		snap := sess.Snapshot()
		if err := h.write(conn, StreamMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
			return
		}
	}

	// Read messages from client so close frames and pongs are handled
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, StreamMessage{Type: "event", Event: &e}); err != nil {
				h.logger.Debug("Failed to send event", zap.Error(err))
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func (h *EventWebSocketHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
