package websocket

import (
	"testing"
	"time"

	"ai-docchat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHubDropsSlowConsumerOnce(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	go h.Run()

	userID := uuid.New()
	slow := &Client{Hub: h, UserID: userID, Send: make(chan []byte, 1)}
	h.register <- slow
	slow.Send <- []byte("backlog") // fill the buffer so the next delivery must drop

	h.Send(userID, IngestionEvent{Status: "ready"})

	assert.Equal(t, []byte("backlog"), <-slow.Send)
	_, open := <-slow.Send
	assert.False(t, open, "a dropped client's channel is closed")

	// The readPump's teardown arrives after the drop; it must be a no-op
	// rather than a second close.
	h.unregister <- slow

	healthy := &Client{Hub: h, UserID: userID, Send: make(chan []byte, 8)}
	h.register <- healthy
	h.Send(userID, IngestionEvent{Status: "ready", ChunkCount: 3})

	select {
	case msg := <-healthy.Send:
		assert.Contains(t, string(msg), `"ready"`)
	case <-time.After(time.Second):
		t.Fatal("hub stopped delivering after dropping a slow consumer")
	}
}

func TestHubSendToUserWithoutConnections(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	go h.Run()

	h.Send(uuid.New(), IngestionEvent{Status: "ready"})

	// Delivery to nobody must not wedge the hub.
	client := &Client{Hub: h, UserID: uuid.New(), Send: make(chan []byte, 1)}
	h.register <- client
	h.Send(client.UserID, IngestionEvent{Status: "failed", Error: "boom"})

	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), `"failed"`)
	case <-time.After(time.Second):
		t.Fatal("hub did not deliver")
	}
}
