package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.Default())
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func registerTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := &Client{
		hub:    hub,
		send:   make(chan []byte, 16),
		id:     "test-client",
		logger: slog.Default(),
	}
	hub.register <- client
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)
	return client
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := testHub(t)
	client := registerTestClient(t, hub)

	hub.unregister <- client
	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := testHub(t)
	client := registerTestClient(t, hub)

	hub.NotifyDatasetLoaded(map[string]string{"id": "abc123"})

	select {
	case raw := <-client.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, TypeDatasetLoaded, msg.Type)
		payload, ok := msg.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "abc123", payload["id"])
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast message")
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Start()
	client := registerTestClient(t, hub)

	hub.Stop()

	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected send channel to close")
	}
}

func TestHub_StartIdempotent(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Start()
	hub.Start()
	defer hub.Stop()

	assert.Equal(t, 0, hub.ClientCount())
}
