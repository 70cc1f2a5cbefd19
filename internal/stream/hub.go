// Package stream fans newly created events out to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"chronicle/internal/models"
)

const (
	MessageEventCreated = "event.created"

	defaultBuffer       = 16
	defaultWriteTimeout = 5 * time.Second
)

type Message struct {
	Type  string       `json:"type"`
	Event models.Event `json:"event"`
}

// ClientGauge receives the subscriber count after every change.
type ClientGauge interface {
	StreamClients(n int)
}

type subscriber struct {
	msgs chan []byte
	// closeSlow drops a subscriber that cannot keep up.
	closeSlow func()
	dropOnce  sync.Once
}

// drop runs closeSlow at most once however many broadcasts overflow.
func (s *subscriber) drop() {
	s.dropOnce.Do(func() { go s.closeSlow() })
}

type Hub struct {
	Logger       *zap.Logger
	Gauge        ClientGauge
	Buffer       int
	WriteTimeout time.Duration
	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub(logger *zap.Logger, gauge ClientGauge) *Hub {
	return &Hub{Logger: logger, Gauge: gauge}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// EventCreated broadcasts without blocking on any subscriber.
func (h *Hub) EventCreated(_ context.Context, event models.Event) {
	payload, err := json.Marshal(Message{Type: MessageEventCreated, Event: event})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stream marshal failed", zap.Error(err))
		}
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.msgs <- payload:
		default:
			s.drop()
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscribe(r.Context(), w, r); err != nil && h.Logger != nil {
		h.Logger.Debug("stream subscriber gone", zap.Error(err))
	}
}

// Subscribe upgrades the request and writes messages until the client
// disconnects or ctx ends.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		return err
	}
	defer func() { _ = conn.CloseNow() }()

	buffer := h.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &subscriber{
		msgs: make(chan []byte, buffer),
		closeSlow: func() {
			_ = conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
		},
	}
	h.add(s)
	defer h.remove(s)

	ctx = conn.CloseRead(ctx)
	for {
		select {
		case msg := <-s.msgs:
			if err := h.write(ctx, conn, msg); err != nil {
				return err
			}
		case <-ctx.Done():
			err := ctx.Err()
			if errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			return err
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[*subscriber]struct{})
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.report(n)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	h.report(n)
}

func (h *Hub) report(n int) {
	if h.Gauge != nil {
		h.Gauge.StreamClients(n)
	}
}
