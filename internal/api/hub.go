package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"iotmon/internal/alerts"
	"iotmon/internal/logging"
	"iotmon/internal/models"
)

const (
	maxViewers    = 10
	viewerBuffer  = 16
	viewerWriteTO = 5 * time.Second
)

// Hub relays live alerts to local websocket viewers of the dashboard.
type Hub struct {
	upgrader websocket.Upgrader
	viewers  map[*websocket.Conn]chan []byte
	pending  int // slots held by handshakes in progress
	mutex    sync.Mutex
	logger   *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		viewers: make(map[*websocket.Conn]chan []byte),
		logger:  logger,
	}
}

// Deliver relays an alert in the same envelope the API pushes. A viewer too
// slow to keep up misses the alert.
func (h *Hub) Deliver(alert models.Alert) {
	msg, err := json.Marshal(alerts.Event{Type: alerts.TypeNotification, Alert: &alert})
	if err != nil {
		h.logger.Errorf("Failed to encode alert %s for viewers: %v", alert.ID, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, send := range h.viewers {
		select {
		case send <- msg:
		default:
			h.logger.Warnf("Viewer %s lagging, dropped alert %s", conn.RemoteAddr(), alert.ID)
		}
	}
}

func (h *Hub) Viewers() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.viewers)
}

func (h *Hub) ServeWS(c *gin.Context) {
	if !h.reserve() {
		h.logger.Warnf("Max viewer connections reached")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many viewers"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.release()
		h.logger.Errorf("Viewer upgrade failed: %v", err)
		return
	}

	send := make(chan []byte, viewerBuffer)
	h.addViewer(conn, send)
	go h.writePump(conn, send)

	// Viewers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.removeViewer(conn)
}

// reserve claims a viewer slot ahead of the handshake.
func (h *Hub) reserve() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.viewers)+h.pending >= maxViewers {
		return false
	}
	h.pending++
	return true
}

func (h *Hub) release() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.pending--
}

// addViewer turns a reserved slot into a registered viewer.
func (h *Hub) addViewer(conn *websocket.Conn, send chan []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.pending--
	h.viewers[conn] = send
	h.logger.Infof("Added viewer %s (total: %d)", conn.RemoteAddr(), len(h.viewers))
}

func (h *Hub) removeViewer(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if send, ok := h.viewers[conn]; ok {
		delete(h.viewers, conn)
		close(send)
		h.logger.Infof("Removed viewer %s (remaining: %d)", conn.RemoteAddr(), len(h.viewers))
	}
}

func (h *Hub) writePump(conn *websocket.Conn, send <-chan []byte) {
	defer conn.Close()
	for msg := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(viewerWriteTO))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Errorf("Failed to send alert to viewer %s: %v", conn.RemoteAddr(), err)
			h.removeViewer(conn)
			return
		}
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mutex.Lock()
	conns := make([]*websocket.Conn, 0, len(h.viewers))
	for conn := range h.viewers {
		conns = append(conns, conn)
	}
	h.mutex.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}
