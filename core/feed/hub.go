package feed

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
)

const (
	defaultClientBufferSize = 32
	defaultWriteTimeout     = 5 * time.Second
	maxClientMessageBytes   = 1024
)

// Source is the live state a new client receives as its snapshot.
type Source interface {
	TurnsSince(after int64) []conversations.Turn
	PassiveState() orchestration.PassiveState
	IsBusy() bool
}

type HubOption func(*Hub)

// WithClientBufferSize bounds the frames queued for a single client. A client
// that falls further behind is disconnected.
func WithClientBufferSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

func WithWriteTimeout(timeout time.Duration) HubOption {
	return func(h *Hub) {
		if timeout > 0 {
			h.writeTimeout = timeout
		}
	}
}

// Hub serves a read-only WebSocket feed of the session timeline.
type Hub struct {
	source       Source
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan Frame
	once sync.Once

	// lastSequence is the newest turn already delivered in the snapshot.
	lastSequence int64
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func NewHub(source Source, opts ...HubOption) *Hub {
	h := &Hub{
		source:       source,
		bufferSize:   defaultClientBufferSize,
		writeTimeout: defaultWriteTimeout,
		clients:      map[*client]struct{}{},
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: isOriginAllowed}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handle forwards an orchestrator event to every connected client. It never
// blocks; clients whose buffer is full are dropped.
func (h *Hub) Handle(event events.Event) {
	frame, ok, err := newEventFrame(event)
	if err != nil {
		logger.Warn("failed to convert event for feed", "kind", event.Kind(), "error", err)
		return
	}
	if !ok {
		return
	}

	h.broadcast(frame)
}

func (h *Hub) broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if frame.Turn != nil && frame.Turn.Sequence <= c.lastSequence {
			continue
		}
		select {
		case c.send <- frame:
		default:
			logger.Warn("dropping slow feed client", "buffer_size", h.bufferSize)
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	after, err := parseAfter(r.URL.Query().Get("after"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("feed upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxClientMessageBytes)

	c, err := h.register(conn, after)
	if err != nil {
		logger.Warn("failed to register feed client", "error", err)
		_ = conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// parseAfter reads the optional resume point: the last sequence the client
// has already seen.
func parseAfter(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	after, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || after < 0 {
		return 0, fmt.Errorf("invalid after parameter %q", raw)
	}
	return after, nil
}

// register queues the snapshot and adds the client under the same lock that
// broadcasts take, so a client sees every event after its snapshot. A turn
// appended before the snapshot is taken but announced after it is not sent
// twice.
func (h *Hub) register(conn *websocket.Conn, after int64) (*client, error) {
	c := &client{conn: conn, send: make(chan Frame, h.bufferSize+1), lastSequence: after}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, http.ErrServerClosed
	}

	snapshot, err := h.snapshot(after)
	if err != nil {
		return nil, err
	}
	if n := len(snapshot.Turns); n > 0 {
		c.lastSequence = snapshot.Turns[n-1].Sequence
	}
	c.send <- snapshot
	h.clients[c] = struct{}{}

	return c, nil
}

func (h *Hub) snapshot(after int64) (Frame, error) {
	frame := Frame{Kind: KindSnapshot, Timestamp: time.Now()}
	if h.source == nil {
		return frame, nil
	}

	turns, err := newTurnMessages(h.source.TurnsSince(after))
	if err != nil {
		return Frame{}, err
	}
	busy := h.source.IsBusy()

	frame.Turns = turns
	frame.Busy = &busy
	frame.Passive = newPassiveMessage(h.source.PassiveState())
	return frame, nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.conn.WriteJSON(frame); err != nil {
			h.unregister(c)
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(h.writeTimeout))
}

// readLoop discards client messages; it only exists to notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func isOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsedOrigin, err := url.Parse(origin)
	if err != nil || strings.TrimSpace(parsedOrigin.Host) == "" {
		return false
	}
	return strings.EqualFold(parsedOrigin.Host, r.Host)
}
