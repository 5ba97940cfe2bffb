package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/devext/internal/api/middleware"
	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devext/internal/types"
)

// Message types pushed to subscribers
const (
	TypeSystem           = "system"
	TypePong             = "pong"
	TypeError            = "error"
	TypeSessionLaunched  = "session_launched"
	TypeSessionCompleted = "session_completed"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxInbound = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.IsLoopbackOrigin(origin)
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans session lifecycle events out to WebSocket subscribers. It
// implements session.Observer.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *monitoring.Metrics, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		metrics: metrics,
		logger:  logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and streams events until the peer
// goes away.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(cl) {
		conn.Close()
		return
	}

	go h.writePump(cl)
	h.deliver(cl, types.WSMessage{Type: TypeSystem, Data: "connected"})
	h.readPump(cl)
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SessionLaunched broadcasts a launch event.
func (h *Hub) SessionLaunched(info session.SessionInfo) {
	h.Broadcast(types.WSMessage{
		Type:      TypeSessionLaunched,
		SessionID: info.ID,
		Data:      info,
	})
}

// SessionCompleted broadcasts a completion event.
func (h *Hub) SessionCompleted(result session.CompletionResult) {
	h.Broadcast(types.WSMessage{
		Type:      TypeSessionCompleted,
		SessionID: result.SessionID,
		Data: map[string]interface{}{
			"cause":            result.Cause,
			"exit_code":        result.ExitCode,
			"duration_seconds": result.Duration.Seconds(),
			"text":             result.String(),
		},
	})
}

// Broadcast sends msg to every subscriber. Subscribers whose buffer is full
// are disconnected.
func (h *Hub) Broadcast(msg types.WSMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.logger.Warn("dropping slow websocket subscriber")
			h.removeLocked(cl)
		}
	}
	if h.metrics != nil && len(h.clients) > 0 {
		h.metrics.RecordWSMessage(msg.Type)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		h.removeLocked(cl)
	}
}

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	return true
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

func (h *Hub) removeLocked(cl *client) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	cl.close()
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

func (h *Hub) deliver(cl *client, msg types.WSMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.clients[cl]; !live {
		return
	}
	select {
	case cl.send <- data:
	default:
		h.removeLocked(cl)
	}
}

func (h *Hub) encode(msg types.WSMessage) ([]byte, bool) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (h *Hub) readPump(cl *client) {
	defer h.remove(cl)

	cl.conn.SetReadLimit(maxInbound)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg types.WSMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.deliver(cl, types.WSMessage{Type: TypeError, Data: "invalid message"})
			continue
		}
		switch msg.Type {
		case "ping":
			h.deliver(cl, types.WSMessage{Type: TypePong})
		default:
			h.deliver(cl, types.WSMessage{Type: TypeError, Data: "unknown message type"})
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
