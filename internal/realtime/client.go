package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS for the HTTP API is enforced separately
	},
}

// ServeWs upgrades the connection and streams change events for one event.
// Participants and displays are anonymous, so no token is required. The
// optional kinds query parameter narrows interest, e.g.
// /ws?event_id=...&kinds=questions,polls.
func ServeWs(hub *Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Query("event_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id required"})
			return
		}
		kinds, ok := parseKinds(c.Query("kinds"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kinds"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		sub := hub.Subscribe(eventID, kinds...)
		client := &wsClient{sub: sub, conn: conn, logger: logger}
		go client.writePump()
		client.readPump()
	}
}

func parseKinds(raw string) ([]EntityKind, bool) {
	if raw == "" {
		return nil, true
	}
	var kinds []EntityKind
	for _, k := range strings.Split(raw, ",") {
		switch strings.TrimSpace(k) {
		case "questions", "question":
			kinds = append(kinds, KindQuestion)
		case "polls", "poll":
			kinds = append(kinds, KindPoll)
		case "votes", "vote":
			kinds = append(kinds, KindVote)
		case "":
		default:
			return nil, false
		}
	}
	return kinds, true
}

// wsClient forwards a hub subscription over one WebSocket connection.
type wsClient struct {
	sub    *Subscription
	conn   *websocket.Conn
	logger *zap.Logger
}

// readPump consumes (and discards) inbound frames to detect disconnects and
// service pong deadlines. Clients send nothing of meaning; writes go through
// the HTTP API.
func (c *wsClient) readPump() {
	defer func() {
		c.sub.Cancel()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
