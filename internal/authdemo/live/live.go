package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/notify"
	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message types pushed to the browser.
const (
	TypeSession = "session"
	TypeToast   = "toast"
)

// Message is a single push frame.
type Message struct {
	Type          string        `json:"type"`
	Authenticated *bool         `json:"authenticated,omitempty"`
	Toast         *notify.Toast `json:"toast,omitempty"`
}

// Source is the per-visitor state a connection follows.
type Source interface {
	ID() string
	Session() *session.Store
	Toasts() *notify.Queue
}

// Resolver finds the visitor behind a request.
type Resolver func(r *http.Request) (Source, bool)

// Option customises a Hub.
type Option func(*Hub)

// WithConnectionObserver is told about every connect (+1) and disconnect (-1).
func WithConnectionObserver(fn func(delta int)) Option {
	return func(h *Hub) {
		h.observe = fn
	}
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// Hub upgrades requests to websockets and forwards session flips and toasts of the caller's visitor.
type Hub struct {
	resolve  Resolver
	upgrader websocket.Upgrader
	observe  func(delta int)

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub constructs a Hub.
func NewHub(resolve Resolver, opts ...Option) *Hub {
	h := &Hub{
		resolve: resolve,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close drops every open connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
	for conn := range conns {
		_ = conn.Close()
	}
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	src, ok := h.resolve(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	logger = logger.With(zap.String("visitor_id", src.ID()))
	logger.Debug("live connection opened")

	out := make(chan Message, sendBuffer)
	done := make(chan struct{})
	send := func(msg Message) {
		select {
		case <-done:
		case out <- msg:
		default:
			logger.Warn("live message dropped", zap.String("type", msg.Type))
		}
	}

	cancelSession := src.Session().Subscribe(func(authenticated bool) {
		flag := authenticated
		send(Message{Type: TypeSession, Authenticated: &flag})
	})
	cancelToasts := src.Toasts().Subscribe(func(t notify.Toast) {
		toast := t
		send(Message{Type: TypeToast, Toast: &toast})
	})
	h.track(conn, 1)
	defer h.track(conn, -1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeLoop(conn, out, done)
	}()

	readLoop(conn)

	cancelSession()
	cancelToasts()
	close(done)
	_ = conn.Close()
	wg.Wait()
	logger.Debug("live connection closed")
}

func (h *Hub) track(conn *websocket.Conn, delta int) {
	h.mu.Lock()
	if delta > 0 {
		h.conns[conn] = struct{}{}
	} else {
		delete(h.conns, conn)
	}
	h.mu.Unlock()
	if h.observe != nil {
		h.observe(delta)
	}
}

func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, out <-chan Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-out:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
