// Package stream pushes committed frames to websocket subscribers. Each
// client holds only the newest frame: a slow client skips frames instead
// of building a backlog or holding up the tick loop.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/pitchside/internal/scheduler"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

const (
	defaultWriteTimeout = 500 * time.Millisecond
	bufferSize          = 4096
)

type client struct {
	conn   *websocket.Conn
	latest atomic.Pointer[[]byte]
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (c *client) offer(p *[]byte) {
	c.latest.Store(p)
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *client) close() { c.once.Do(func() { close(c.done) }) }

// Hub fans frames out to websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	last    *[]byte
	closed  bool

	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:      make(map[*client]struct{}),
		writeTimeout: defaultWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get().Named("stream")
	}
	return h
}

// Publish hands f to every client. It never blocks on a connection.
func (h *Hub) Publish(f scheduler.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.log.Error(context.Background(), "marshal frame", logger.Uint64("seq", f.Snapshot.Seq), logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &data
	for c := range h.clients {
		c.offer(&data)
	}
	if len(h.clients) > 0 {
		metrics.RecordStreamBroadcast()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "upgrade failed", logger.String("remote", r.RemoteAddr), logger.Error(err))
		return
	}

	c := &client{conn: conn, notify: make(chan struct{}, 1), done: make(chan struct{})}
	if !h.register(c) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		return
	}
	h.log.Debug(r.Context(), "client connected", logger.String("remote", r.RemoteAddr))

	go h.writeLoop(c)

	// Clients only listen; reading drives close and ping handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			c.close()
			return
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.offer(h.last)
	}
	metrics.UpdateStreamClients(len(h.clients))
	return true
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.RecordStreamDisconnect()
	}
	metrics.UpdateStreamClients(len(h.clients))
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeTimeout))
	_ = c.conn.Close()
}

func (h *Hub) writeLoop(c *client) {
	defer h.drop(c)
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
			p := c.latest.Swap(nil)
			if p == nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, *p); err != nil {
				h.log.Debug(context.Background(), "client write failed", logger.Error(err))
				c.close()
				return
			}
		}
	}
}
