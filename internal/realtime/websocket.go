package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Handler streams broker events over WebSocket connections
type Handler struct {
	broker   *Broker
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler for broker
func NewHandler(broker *Broker, logger *zap.Logger) *Handler {
	return &Handler{
		broker: broker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve handles GET /ws. The optional topics query parameter is a comma
// separated list restricting which collections are streamed.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	topics := parseTopics(c.Query("topics"))
	events, cancel := h.broker.Subscribe()
	done := make(chan struct{})

	go h.readPump(conn, done)
	h.writePump(conn, events, topics, done)
	cancel()
}

// readPump discards client messages and closes done when the peer goes away.
func (h *Handler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, events <-chan Event, topics map[string]bool, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if len(topics) > 0 && !topics[event.Topic] {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func parseTopics(raw string) map[string]bool {
	topics := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if topic := strings.TrimSpace(part); topic != "" {
			topics[topic] = true
		}
	}
	return topics
}
