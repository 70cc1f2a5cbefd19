package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/models"
)

func TestSend(t *testing.T) {
	received := make(chan Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	node := "pve01"
	event := models.Event{
		ID:                 "e1",
		Title:              "Alert: HighMemoryUsage on pve01",
		Category:           models.CategoryInfrastructure,
		Date:               time.Date(2024, 12, 19, 10, 0, 0, 0, time.UTC),
		Source:             models.SourcePrometheus,
		InfrastructureNode: &node,
	}
	s := &WebhookSender{URL: srv.URL, Timeout: time.Second}
	s.EventCreated(context.Background(), event)

	select {
	case p := <-received:
		assert.Equal(t, "**Alert: HighMemoryUsage on pve01** [infrastructure] 2024-12-19 10:00 UTC on pve01 via prometheus", p.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestSendStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := (&WebhookSender{URL: srv.URL}).Send(context.Background(), Payload{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad Gateway")

	var nilSender *WebhookSender
	nilSender.EventCreated(context.Background(), models.Event{})
}
