package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dummy-library/inventory-core/internal/jobs"
)

// Publish adapts jobHub to jobs.EventSink so the runner can broadcast
// state transitions without importing the HTTP package.
func (h *jobHub) Publish(t jobs.Transition) {
	h.Broadcast(JobEvent{
		JobID:     t.JobID,
		Type:      string(t.Type),
		Status:    string(t.Status),
		Attempts:  t.Attempts,
		LastError: t.LastError,
		At:        t.At,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// JobEvent is one job state transition pushed to admin stream subscribers.
type JobEvent struct {
	JobID     string    `json:"jobId"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	At        time.Time `json:"at"`
}

// jobHub fans out JobEvents to every connected /api/admin/stream client.
// Scoped to a single event shape, unlike the teacher's multi-event-type
// WSHub, since this admin surface only tails job transitions.
type jobHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
	logger  zerolog.Logger
}

func newJobHub(logger zerolog.Logger) *jobHub {
	return &jobHub{clients: make(map[*wsClient]bool), logger: logger}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (h *jobHub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *jobHub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast pushes ev to every connected client. A client whose send
// buffer is full misses this event (it stays connected) rather than
// blocking the job runner that calls this inline.
func (h *jobHub) Broadcast(ev JobEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal job event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Msg("admin stream client buffer full, dropping event")
		}
	}
}

func (h *jobHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.register(client)

	go client.writePump()
	client.readPump(h)
}

func (c *wsClient) readPump(h *jobHub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
