package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/dispatch"
)

// outboundFrame is the wire shape of every server-to-client event.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsConn adapts one WebSocket to the hub.Conn contract. Reads happen
// only on the handler goroutine; writes come from broadcasts on
// arbitrary goroutines, so Send serializes them with a mutex.
type wsConn struct {
	id   string
	mu   sync.Mutex
	sock *websocket.Conn
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(outboundFrame{Event: event, Data: payload})
}

func (c *wsConn) Close() error {
	return c.sock.Close()
}

// newUpgrader builds the WebSocket upgrader. An allowed-origins list of
// "*" (or an absent Origin header, as sent by non-browser clients)
// accepts everything; otherwise the Origin must match exactly.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleWS GET /ws
//
// Upgrades the connection and runs its read loop. Frames from one
// connection are dispatched strictly in arrival order; a malformed
// frame is logged and skipped, only transport errors end the loop.
func HandleWS(d *dispatch.Dispatcher, allowedOrigins []string, logger *slog.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logger.Warn("websocket upgrade failed", "error", err, "remote", c.ClientIP())
			return
		}

		conn := &wsConn{id: uuid.NewString(), sock: sock}
		logger.Info("websocket connected", "conn_id", conn.id, "remote", c.ClientIP())

		defer func() {
			d.HandleDisconnect(conn)
			conn.Close()
			logger.Info("websocket disconnected", "conn_id", conn.id)
		}()

		for {
			_, data, err := sock.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket read failed", "conn_id", conn.id, "error", err)
				}
				return
			}
			if err := d.Dispatch(conn, data); err != nil {
				logger.Warn("frame rejected", "conn_id", conn.id, "error", err)
			}
		}
	}
}
