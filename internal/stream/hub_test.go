package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chronicle/internal/models"
)

type gauge struct {
	mu   sync.Mutex
	last int
}

func (g *gauge) StreamClients(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = n
}

func (g *gauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func TestHubBroadcast(t *testing.T) {
	g := &gauge{}
	hub := NewHub(nil, g)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, g.value())

	hub.EventCreated(ctx, models.Event{ID: "e1", Title: "Upgraded pihole", Category: models.CategoryService})

	var msg Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, MessageEventCreated, msg.Type)
	assert.Equal(t, "e1", msg.Event.ID)
	assert.Equal(t, "Upgraded pihole", msg.Event.Title)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, g.value())
}

func TestHubWithoutSubscribers(t *testing.T) {
	hub := &Hub{}
	hub.EventCreated(context.Background(), models.Event{ID: "x"})
	assert.Zero(t, hub.Clients())
}

func TestHubClosesSlowSubscriberOnce(t *testing.T) {
	hub := &Hub{}
	var closed atomic.Int32
	s := &subscriber{
		msgs:      make(chan []byte, 1),
		closeSlow: func() { closed.Add(1) },
	}
	hub.add(s)

	for i := 0; i < 5; i++ {
		hub.EventCreated(context.Background(), models.Event{ID: "e"})
	}

	require.Eventually(t, func() bool { return closed.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, closed.Load())
	assert.Len(t, s.msgs, 1)
}
